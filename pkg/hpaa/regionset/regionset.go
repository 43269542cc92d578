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

// Package regionset implements the multi-hugepage linear packer used for
// "large" allocations that don't fit the Filler's sub-hugepage granularity
// but aren't big enough to justify dedicating whole hugepages outright. A
// Region's internal free-tracking structure is a bitmap, exactly like the
// Filler's, kept deliberately simple since the spec scopes the Region's
// internal algorithm out.
package regionset

import "github.com/cappadokes/tcmalloc/pkg/pageid"

// RegionHugePages is the number of hugepages backing a single Region, i.e.
// RegionSize expressed in hugepages. Large allocations larger than
// RegionHugePages*PagesPerHugePage never reach the RegionSet (spec.md §4.1
// case 2/3 boundary).
const RegionHugePages = 8

// RegionSize is RegionHugePages expressed in pages.
const RegionSize = pageid.Length(RegionHugePages) * pageid.PagesPerHugePage

// Region is a single contiguous multi-hugepage range managed as a linear
// allocator over a free-page bitmap.
type Region struct {
	base   pageid.PageId
	bitmap [int64(RegionSize)]bool // true == free
	used   pageid.Length
}

func newRegion(base pageid.PageId) *Region {
	r := &Region{base: base}
	for i := range r.bitmap {
		r.bitmap[i] = true
	}
	return r
}

// Contains reports whether page lies within r.
func (r *Region) Contains(page pageid.PageId) bool {
	return page >= r.base && page < r.base+pageid.PageId(RegionSize)
}

// Empty reports whether r currently holds no live allocations.
func (r *Region) Empty() bool { return r.used == 0 }

// hugeRange returns the HugeRange of hugepages backing r. Every Region is
// contributed at exactly RegionHugePages long (Contribute/AllocRegion), so
// this is always recoverable from base alone.
func (r *Region) hugeRange() pageid.HugeRange {
	return pageid.HugeRange{Start: pageid.HugePageContaining(r.base), Len: pageid.HugeLength(RegionHugePages)}
}

func (r *Region) longestFreeRange() pageid.Length {
	var best, cur pageid.Length
	for _, free := range r.bitmap {
		if free {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func (r *Region) carve(n pageid.Length) (pageid.PageId, bool) {
	nn := int64(n)
	run := int64(0)
	start := int64(-1)
	for i, free := range r.bitmap {
		if free {
			if run == 0 {
				start = int64(i)
			}
			run++
			if run == nn {
				for j := start; j < start+nn; j++ {
					r.bitmap[j] = false
				}
				r.used += n
				return r.base + pageid.PageId(start), true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

func (r *Region) put(page pageid.PageId, n pageid.Length) {
	offset := int64(page - r.base)
	for i := offset; i < offset+int64(n); i++ {
		r.bitmap[i] = true
	}
	r.used -= n
}

// Source reserves a fresh RegionHugePages-long range from the layer below
// (ordinarily the HugeCache) for a new Region. fromReleased reports
// whether the returned range requires Back() before use.
type Source interface {
	AllocateHugePages(n pageid.HugeLength) (pageid.HugeRange, bool)
}

// Set is the collection of live Regions.
type Set struct {
	src     Source
	regions []*Region
}

// New returns an empty Set backed by src.
func New(src Source) *Set {
	return &Set{src: src}
}

// MaybeGet attempts to carve an n-page allocation from an existing region.
func (s *Set) MaybeGet(n pageid.Length) (pageid.PageId, bool) {
	var best *Region
	var bestLen pageid.Length
	for _, r := range s.regions {
		lfr := r.longestFreeRange()
		if lfr < n {
			continue
		}
		if best == nil || lfr < bestLen {
			best, bestLen = r, lfr
		}
	}
	if best == nil {
		return 0, false
	}
	page, ok := best.carve(n)
	return page, ok
}

// MaybePut returns true and frees [page, page+n) iff page belongs to one
// of this set's regions.
func (s *Set) MaybePut(page pageid.PageId, n pageid.Length) bool {
	for _, r := range s.regions {
		if r.Contains(page) {
			r.put(page, n)
			return true
		}
	}
	return false
}

// Contribute adds a fresh region backed by hr (which must be exactly
// RegionHugePages long) to the set.
func (s *Set) Contribute(hr pageid.HugeRange) *Region {
	r := newRegion(hr.FirstPage())
	s.regions = append(s.regions, r)
	return r
}

// AllocRegion reserves a new RegionSize range from the Source and
// contributes it, returning the region (or nil on allocation failure) and
// whether the backing range requires Back() before use.
func (s *Set) AllocRegion() (*Region, bool) {
	hr, fromReleased := s.src.AllocateHugePages(pageid.HugeLength(RegionHugePages))
	if !hr.Valid() {
		return nil, false
	}
	return s.Contribute(hr), fromReleased
}

// ReleasePages removes every region whose bitmap is currently entirely
// free from the set and returns the backing HugeRange of each. The caller
// owns what happens to those hugepages next (un-backing them through the
// VM and handing them back to the Cache): this collaborator has no Cache
// or VM Provider handle of its own. Partially-used regions are never
// released: doing so would require re-donating their slack, which this
// collaborator does not attempt (mirroring the Filler's donation machinery
// being the Policy Engine's responsibility, not a backend's).
func (s *Set) ReleasePages() []pageid.HugeRange {
	var released []pageid.HugeRange
	kept := s.regions[:0]
	for _, r := range s.regions {
		if r.Empty() {
			released = append(released, r.hugeRange())
			continue
		}
		kept = append(kept, r)
	}
	s.regions = kept
	return released
}

// Stats summarizes the Set's current holdings.
type Stats struct {
	NumRegions pageid.Length
	UsedPages  pageid.Length
	FreePages  pageid.Length
}

// Stats returns the Set's current stats.
func (s *Set) Stats() Stats {
	var st Stats
	st.NumRegions = pageid.Length(len(s.regions))
	for _, r := range s.regions {
		st.UsedPages += r.used
		st.FreePages += RegionSize - r.used
	}
	return st
}
