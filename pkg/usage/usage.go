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

// Package usage categorizes the memory this allocator hands out, in the
// style of gVisor's pkg/sentry/usage memory accounting.
package usage

// MemoryKind represents which backend currently owns a range of pages.
type MemoryKind int

const (
	// System is memory still held by the VM provider / HugeCache that has
	// not been handed to any higher-level backend.
	System MemoryKind = iota

	// Filler is memory packed onto per-hugepage Filler trackers.
	Filler

	// Region is memory allocated from a multi-hugepage linear Region.
	Region

	// Lifetime is memory allocated from a lifetime-predicted region.
	Lifetime

	// Cache is memory sitting free in the HugeCache.
	Cache

	// Unbacked is memory that has been released to the OS (un-backed) but
	// whose address range is still reserved.
	Unbacked
)

func (k MemoryKind) String() string {
	switch k {
	case System:
		return "system"
	case Filler:
		return "filler"
	case Region:
		return "region"
	case Lifetime:
		return "lifetime"
	case Cache:
		return "cache"
	case Unbacked:
		return "unbacked"
	default:
		return "unknown"
	}
}

// MemoryStats tracks, in bytes, how much memory each MemoryKind currently
// holds. It is not internally synchronized; callers hold the pageheap lock.
type MemoryStats struct {
	ByKind [6]uint64
}

// Inc adds nbytes to the running total for kind.
func (m *MemoryStats) Inc(kind MemoryKind, nbytes uint64) {
	m.ByKind[kind] += nbytes
}

// Dec subtracts nbytes from the running total for kind.
func (m *MemoryStats) Dec(kind MemoryKind, nbytes uint64) {
	m.ByKind[kind] -= nbytes
}

// Total sums every kind's running total. Because a byte can be attributed
// to more than one kind's bucket across its lifetime transitions, this is
// meant for diagnostics, not as a substitute for the VM provider's own
// system_bytes figure.
func (m *MemoryStats) Total() uint64 {
	var total uint64
	for _, v := range m.ByKind {
		total += v
	}
	return total
}
