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

// Package pageid defines the page- and hugepage-granular units shared by
// the Policy Engine and every one of its collaborators (filler, hugecache,
// regionset, lifetime, vmprovider). Keeping them in their own leaf package,
// the way pkg/hostarch holds byte-granular address arithmetic, lets the
// collaborators depend on the vocabulary of pages without depending on the
// Policy Engine package that in turn depends on them.
package pageid

import (
	"fmt"

	"github.com/cappadokes/tcmalloc/pkg/hostarch"
)

// PagesPerHugePage is kPagesPerHugePage: the number of base pages packed
// into one hugepage.
const PagesPerHugePage = Length(hostarch.PagesPerHugePage)

// Length is a count of pages.
type Length int64

// PageId identifies a page-aligned address by page number.
type PageId int64

// HugePage identifies a hugepage-aligned address by hugepage number.
type HugePage int64

// HugeLength is a count of hugepages.
type HugeLength int64

// HugeRange is a contiguous set of hugepages [Start, Start+Len).
type HugeRange struct {
	Start HugePage
	Len   HugeLength
}

// Valid reports whether hr denotes a non-empty range.
func (hr HugeRange) Valid() bool { return hr.Len > 0 }

// String implements fmt.Stringer.
func (hr HugeRange) String() string {
	return fmt.Sprintf("[huge %d, huge %d)", hr.Start, hr.Start+HugePage(hr.Len))
}

// FirstPage returns the first PageId of hr.
func (hr HugeRange) FirstPage() PageId { return PageIdFromHugePage(hr.Start) }

// Pages returns the page-granular Length of hr.
func (hr HugeRange) Pages() Length { return Length(hr.Len) * PagesPerHugePage }

// HugePageContaining returns the hugepage that contains page p.
func HugePageContaining(p PageId) HugePage {
	return HugePage(int64(p) / int64(PagesPerHugePage))
}

// PageIdFromHugePage returns the first PageId of hugepage hp.
func PageIdFromHugePage(hp HugePage) PageId {
	return PageId(int64(hp) * int64(PagesPerHugePage))
}

// HugeLengthCeil returns ceil(n / PagesPerHugePage) hugepages.
func HugeLengthCeil(n Length) HugeLength {
	return HugeLength((int64(n) + int64(PagesPerHugePage) - 1) / int64(PagesPerHugePage))
}

// Slack returns ceil(n/H)*H - n, the wasted tail of an n-page allocation
// rounded up to whole hugepages.
func Slack(n Length) Length {
	return Length(HugeLengthCeil(n))*PagesPerHugePage - n
}
