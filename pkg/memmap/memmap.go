// Copyright 2026 The Hugepaa Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memmap defines a half-open page range primitive. No other package
// in this module imports it; the Filler, RegionSet and HugeCache describe
// their ranges with pageid types instead. Modeled on gVisor's
// pkg/sentry/memmap FileRange.
package memmap

import "fmt"

// FileRange represents a half-open range [Start, End) of page numbers.
type FileRange struct {
	Start uint64
	End   uint64
}

// Length returns the number of pages in fr.
func (fr FileRange) Length() uint64 {
	return fr.End - fr.Start
}

// String implements fmt.Stringer.
func (fr FileRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", fr.Start, fr.End)
}

// Intersects reports whether fr and other overlap.
func (fr FileRange) Intersects(other FileRange) bool {
	return fr.Start < other.End && other.Start < fr.End
}

// Contains reports whether other is entirely within fr.
func (fr FileRange) Contains(other FileRange) bool {
	return fr.Start <= other.Start && other.End <= fr.End
}
