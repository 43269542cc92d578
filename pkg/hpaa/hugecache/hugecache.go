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

// Package hugecache implements the free-hugepage cache: a pool of hugepage
// ranges that have been reserved from the VM provider but are not currently
// owned by any of the other backends. Ranges are un-backed only when
// ReleaseCachedPages is called; nothing un-backs idle ranges on its own.
// The cache's internal layout (here, an unordered free list searched for
// the best fit by length, with adjacent ranges never merged) is an
// out-of-scope collaborator per the spec; only its external contract is
// load-bearing.
package hugecache

import (
	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// Source reserves hugepage-aligned address ranges from the VM provider
// when the cache itself is empty.
type Source interface {
	// AllocateHugePages reserves n contiguous hugepages, returning an
	// invalid range on failure.
	AllocateHugePages(n pageid.HugeLength) pageid.HugeRange
}

type freeRange struct {
	r        pageid.HugeRange
	released bool // true if this range's pages are currently un-backed
}

// Cache is a pool of free hugepage ranges.
type Cache struct {
	src   Source
	free  []freeRange
	stats Stats
}

// Stats summarizes the Cache's current holdings.
type Stats struct {
	FreeHugePages     pageid.HugeLength
	ReleasedHugePages pageid.HugeLength
}

// New returns an empty Cache backed by src.
func New(src Source) *Cache {
	return &Cache{src: src}
}

// Stats returns the Cache's current stats.
func (c *Cache) Stats() Stats { return c.stats }

// Get returns a HugeRange of n hugepages, preferring an exact or
// best-fit match among already-free ranges before falling back to the
// Source. fromReleased reports whether the returned range contains any
// pages that were previously un-backed and thus require Back() before use.
func (c *Cache) Get(n pageid.HugeLength) (pageid.HugeRange, bool, bool) {
	if best, idx, ok := c.bestFit(n); ok {
		c.consume(idx, n)
		return pageid.HugeRange{Start: best.r.Start, Len: n}, best.released, true
	}
	r := c.src.AllocateHugePages(n)
	if !r.Valid() {
		return pageid.HugeRange{}, false, false
	}
	return r, false, true
}

// AllocateHugePages adapts Get to the regionset.Source shape
// ((HugeRange, fromReleased)), so the Cache can be handed directly to a
// regionset.Set as its upstream source; Allocator.AllocRegion wraps it for
// the lifetime.RegionAllocator interface.
func (c *Cache) AllocateHugePages(n pageid.HugeLength) (pageid.HugeRange, bool) {
	r, fromReleased, ok := c.Get(n)
	if !ok {
		return pageid.HugeRange{}, false
	}
	return r, fromReleased
}

func (c *Cache) bestFit(n pageid.HugeLength) (freeRange, int, bool) {
	bestIdx := -1
	var best freeRange
	for i, fr := range c.free {
		if fr.r.Len < n {
			continue
		}
		if bestIdx == -1 || fr.r.Len < best.r.Len {
			best = fr
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return freeRange{}, -1, false
	}
	return best, bestIdx, true
}

// consume removes n hugepages from the front of the free range at idx,
// shrinking or deleting it, and updates stats.
func (c *Cache) consume(idx int, n pageid.HugeLength) {
	fr := c.free[idx]
	c.stats.FreeHugePages -= n
	if fr.released {
		// fromReleased reports a releasedness taken from the whole
		// matched range; consuming from the front keeps that contract
		// simple since released ranges are never split across
		// mixed-state boundaries by this cache (see Release/ReleaseUnbacked).
		c.stats.ReleasedHugePages -= n
	}
	remaining := fr.r.Len - n
	if remaining == 0 {
		c.free = append(c.free[:idx], c.free[idx+1:]...)
		return
	}
	c.free[idx] = freeRange{
		r:        pageid.HugeRange{Start: fr.r.Start + pageid.HugePage(n), Len: remaining},
		released: fr.released,
	}
}

// Release returns a backed range to the cache.
func (c *Cache) Release(r pageid.HugeRange) {
	c.free = append(c.free, freeRange{r: r, released: false})
	c.stats.FreeHugePages += r.Len
}

// ReleaseUnbacked returns a range whose pages have already been un-backed
// (e.g. via madvise DONTNEED) to the cache.
func (c *Cache) ReleaseUnbacked(r pageid.HugeRange) {
	c.free = append(c.free, freeRange{r: r, released: true})
	c.stats.FreeHugePages += r.Len
	c.stats.ReleasedHugePages += r.Len
}

// Unbacker performs the actual OS-level un-back call for ReleaseCachedPages.
type Unbacker interface {
	// ReleasePages un-backs the given hugepage range.
	ReleasePages(r pageid.HugeRange) bool
}

// ReleaseCachedPages proactively un-backs currently-backed free ranges,
// whole ranges at a time, until at least n hugepages have been released or
// no backed range remains, returning the number of hugepages actually
// released (which can exceed n).
func (c *Cache) ReleaseCachedPages(n pageid.HugeLength, u Unbacker) pageid.HugeLength {
	var released pageid.HugeLength
	for i := range c.free {
		if released >= n {
			break
		}
		fr := c.free[i]
		if fr.released {
			continue
		}
		if !u.ReleasePages(fr.r) {
			continue
		}
		c.free[i].released = true
		c.stats.ReleasedHugePages += fr.r.Len
		released += fr.r.Len
	}
	return released
}
