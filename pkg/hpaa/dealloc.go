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

package hpaa

import "github.com/cappadokes/tcmalloc/pkg/hpaa/filler"

// deleteLocked implements spec.md §4.2's four-way dispatch. The pageheap
// lock must already be held by the caller (Delete).
func (a *Allocator) deleteLocked(s *Span) {
	hp := HugePageContaining(s.FirstPage)
	if cur, ok := a.spanOwners.Get(s.FirstPage); !ok || cur != s {
		panic("hpaa: Delete of a span that is not live (double free?)")
	}
	a.counters.recordFree(s.N)
	a.spanOwners.Clear(s.FirstPage)
	if a.opts.PageMap != nil {
		a.opts.PageMap.ClearSpan(int64(s.FirstPage))
	}

	if t, ok := a.trackers.Get(hp); ok {
		a.deleteFillerOwned(hp, t, s)
		return
	}

	if a.regions.MaybePut(s.FirstPage, s.N) {
		return
	}
	if a.life.MaybePut(s.FirstPage, s.N) {
		return
	}
	a.deleteCacheSourced(hp, s)
}

// deleteFillerOwned handles the case where hp's Tracker slot is occupied:
// s is either an ordinary Filler sub-allocation or the parent of a
// donation whose tail tracker lives at hp itself (s.Donated).
func (a *Allocator) deleteFillerOwned(hp HugePage, t *filler.Tracker, s *Span) {
	emptied := a.filler.Put(t, s.FirstPage, s.N)
	if emptied == nil {
		if s.Donated {
			t.SetAbandoned(true)
			a.abandonedPages.Add(int64(t.AbandonedCount()))
			a.donatedHugePages.Add(-1)
		}
		return
	}

	if t.WasDonated() {
		if t.Abandoned() {
			a.abandonedPages.Add(-int64(t.AbandonedCount()))
			t.SetAbandoned(false)
		} else {
			a.donatedHugePages.Add(-1)
		}
	}
	a.life.ReleaseHandle(t.LifetimeTracker())
	a.releaseHugepage(hp, t.Released())
	a.trackers.Clear(hp)
}

// deleteCacheSourced handles a span that never touched the Filler or
// RegionSet: a raw multi-hugepage allocation, possibly with a donation
// tail tracker on its last hugepage.
func (a *Allocator) deleteCacheSourced(hp HugePage, s *Span) {
	hl := HugeLengthCeil(s.N)
	slack := Slack(s.N)
	last := hp + HugePage(hl) - 1

	if slack == 0 {
		a.cache.Release(HugeRange{Start: hp, Len: hl})
		return
	}

	tail, ok := a.trackers.Get(last)
	if !ok {
		// Invariant D1/D2 violation: a sliced raw allocation with nonzero
		// slack must always have left a tail tracker behind.
		panic("hpaa: cache-sourced span with slack has no tail tracker")
	}
	a.life.ReleaseHandle(tail.LifetimeTracker())

	emptied := a.filler.Put(tail, PageIdFromHugePage(last), PagesPerHugePage-slack)
	if emptied == nil {
		// The last hugepage stays in the Filler; only the leading whole
		// hugepages go back to the Cache.
		a.cache.Release(HugeRange{Start: hp, Len: hl - 1})
		tail.SetAbandoned(true)
		a.abandonedPages.Add(int64(tail.AbandonedCount()))
		a.donatedHugePages.Add(-1)
		return
	}

	a.donatedHugePages.Add(-1)
	if tail.Released() {
		a.cache.Release(HugeRange{Start: hp, Len: hl - 1})
		a.cache.ReleaseUnbacked(HugeRange{Start: last, Len: 1})
	} else {
		a.cache.Release(HugeRange{Start: hp, Len: hl})
	}
	a.trackers.Clear(last)
}

// releaseHugepage returns a single, now-entirely-free hugepage to the
// Cache, as un-backed if released was set on its tracker, else as backed.
func (a *Allocator) releaseHugepage(hp HugePage, released bool) {
	r := HugeRange{Start: hp, Len: 1}
	if released {
		a.cache.ReleaseUnbacked(r)
	} else {
		a.cache.Release(r)
	}
}
