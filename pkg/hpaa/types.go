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

// Package hpaa implements a hugepage-aware page allocator: a policy engine
// that routes page-granular allocation requests across a per-hugepage
// packing table (filler), a multi-hugepage linear packer (regionset), a
// free-hugepage cache (hugecache), and a raw virtual-memory allocator,
// packing requests onto host hugepages to minimize TLB pressure and
// resident-set bloat.
package hpaa

import (
	"github.com/cappadokes/tcmalloc/pkg/hostarch"
	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// PagesPerHugePage is kPagesPerHugePage: the number of base pages packed
// into one hugepage.
const PagesPerHugePage = pageid.PagesPerHugePage

// Length is a count of pages. Aliased from pageid so that every collaborator
// subpackage (filler, hugecache, regionset, lifetime, vmprovider) can share
// this vocabulary without importing this package back.
type Length = pageid.Length

// PageId identifies a page-aligned address by page number.
type PageId = pageid.PageId

// HugePage identifies a hugepage-aligned address by hugepage number.
type HugePage = pageid.HugePage

// HugeLength is a count of hugepages.
type HugeLength = pageid.HugeLength

// HugeRange is a contiguous set of hugepages [Start, Start+Len).
type HugeRange = pageid.HugeRange

// HugePageContaining returns the hugepage that contains page p.
func HugePageContaining(p PageId) HugePage { return pageid.HugePageContaining(p) }

// PageIdFromHugePage returns the first PageId of hugepage hp.
func PageIdFromHugePage(hp HugePage) PageId { return pageid.PageIdFromHugePage(hp) }

// HugeLengthCeil returns ceil(n / PagesPerHugePage) hugepages.
func HugeLengthCeil(n Length) HugeLength { return pageid.HugeLengthCeil(n) }

// Slack returns ceil(n/H)*H - n, the wasted tail of an n-page allocation
// rounded up to whole hugepages.
func Slack(n Length) Length { return pageid.Slack(n) }

// Span is a contiguous range of pages returned to callers by New/NewAligned.
// Unlike the page-arithmetic types above, Span is specific to the Policy
// Engine's public surface and has no collaborator-side use, so it stays
// defined here rather than in pageid.
type Span struct {
	// FirstPage is the first page of the span.
	FirstPage PageId
	// N is the number of pages in the span.
	N Length
	// Donated is set iff this allocation produced a donation (its
	// construction contributed slack to the Filler). Read only on Delete.
	Donated bool
	// Sampled is untouched by this package; it must be false on freshly
	// allocated spans and exists only so Span matches the shape the
	// object-level allocator above this package expects.
	Sampled bool
	// Tag is the MemoryTag of the Allocator that produced this span
	// (spec.md §6, P2).
	Tag MemoryTag
}

// End returns the PageId immediately following the span.
func (s *Span) End() PageId { return s.FirstPage + PageId(s.N) }

// Bytes returns the span's length in bytes.
func (s *Span) Bytes() uint64 { return uint64(s.N) * hostarch.PageSize }
