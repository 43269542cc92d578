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

import (
	"time"

	"github.com/cappadokes/tcmalloc/pkg/hostarch"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/filler"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/forwarder"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/lifetime"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/regionset"
	"github.com/cappadokes/tcmalloc/pkg/log"
)

// minDonatedBytesForRegion is the 64MiB threshold in the slack heuristic
// (spec.md §4.1 case 2).
const minDonatedBytesForRegion = 64 << 20

// allocLocked is the size-class router (spec.md §4.1). It must be called
// with the pageheap lock held.
func (a *Allocator) allocLocked(n Length, objsPerSpan int64, lifeCtx lifetime.Context, params forwarder.Parameters) (*Span, bool, bool) {
	switch {
	case n <= PagesPerHugePage/2:
		return a.allocSmallLocked(n, objsPerSpan)
	case n <= regionset.RegionSize:
		return a.allocLargeLocked(n, objsPerSpan, lifeCtx, params)
	default:
		return a.allocRawHugepagesLocked(n)
	}
}

// allocSmallLocked implements spec.md §4.1 case 1.
func (a *Allocator) allocSmallLocked(n Length, objsPerSpan int64) (*Span, bool, bool) {
	if _, page, ok := a.filler.TryGet(n, objsPerSpan); ok {
		span := a.finalize(n, page, false)
		a.opts.UsageLimiter.OnAllocation(int64(n))
		return span, false, true
	}
	hr, fromReleased, ok := a.cache.Get(1)
	if !ok {
		return nil, false, false
	}
	tracker, firstPage := filler.NewTracker(hr.Start, n, false, 0, time.Now())
	a.filler.Contribute(tracker)
	a.trackers.Set(hr.Start, tracker)
	span := a.finalize(n, firstPage, false)
	a.opts.UsageLimiter.OnAllocation(int64(n))
	return span, fromReleased, true
}

// allocLargeLocked implements spec.md §4.1 case 2.
func (a *Allocator) allocLargeLocked(n Length, objsPerSpan int64, lifeCtx lifetime.Context, params forwarder.Parameters) (*Span, bool, bool) {
	if n%PagesPerHugePage == 0 {
		return a.allocRawHugepagesLocked(n)
	}
	if n < PagesPerHugePage {
		if _, page, ok := a.filler.TryGet(n, objsPerSpan); ok {
			span := a.finalize(n, page, false)
			a.opts.UsageLimiter.OnAllocation(int64(n))
			return span, false, true
		}
	}
	if page, fromReleased, ok := a.life.MaybeGet(n, lifeCtx); ok {
		return a.finalize(n, page, false), fromReleased, true
	}
	if page, ok := a.regions.MaybeGet(n); ok {
		return a.finalize(n, page, false), false, true
	}

	slack := a.liveDonatedSlack()
	donated := slack
	if params.UseHugeRegionMoreOften {
		donated += Length(a.abandonedPages.Load())
	}
	if int64(donated)*hostarch.PageSize < minDonatedBytesForRegion {
		return a.allocRawHugepagesLocked(n)
	}
	small := a.filler.Stats().UsedPages
	if slack < small && !params.UseHugeRegionMoreOften {
		return a.allocRawHugepagesLocked(n)
	}
	region, fromReleased := a.regions.AllocRegion()
	if region == nil {
		return a.allocRawHugepagesLocked(n)
	}
	page, ok := a.regions.MaybeGet(n)
	if !ok {
		// The region we just created is exactly RegionSize pages and n
		// <= RegionSize, so this cannot fail; treat it as an invariant
		// violation rather than silently falling back.
		panic("hpaa: freshly-contributed region could not satisfy an allocation within its own capacity")
	}
	return a.finalize(n, page, false), fromReleased, true
}

// liveDonatedSlack sums DonatedSlack() over Filler trackers whose donating
// allocation is still alive (was_donated && !abandoned): the "slack"
// quantity the large-allocation routing heuristic reads (spec.md §4.1).
func (a *Allocator) liveDonatedSlack() Length {
	var total Length
	for _, t := range a.filler.Trackers() {
		if t.WasDonated() && !t.Abandoned() {
			total += t.DonatedSlack()
		}
	}
	return total
}

// allocRawHugepagesLocked implements spec.md §4.1 case 4.
func (a *Allocator) allocRawHugepagesLocked(n Length) (*Span, bool, bool) {
	hn := HugeLengthCeil(n)
	hr, fromReleased, ok := a.cache.Get(hn)
	if !ok {
		return nil, false, false
	}
	slack := Slack(n)
	if slack == 0 {
		return a.finalize(n, hr.FirstPage(), false), fromReleased, true
	}

	last := hr.Start + HugePage(hn) - 1
	carve := PagesPerHugePage - slack // == n mod H
	tracker, _ := filler.NewTracker(last, carve, true, n, time.Now())
	a.filler.Contribute(tracker)
	a.trackers.Set(last, tracker)
	a.donatedHugePages.Add(1)

	a.life.MaybeAddTracker(func(v any) {
		cur, present := a.trackers.Get(last)
		if !present || cur != tracker || !tracker.WasDonated() {
			// spec.md §9 Open Question: preserve the silent skip, but
			// make it observable.
			a.lifetimeDonationRaces.Add(1)
			log.Debugf("hpaa: skipping lifetime attach on hugepage %d: donated status changed", last)
			return
		}
		tracker.SetLifetimeTracker(v)
	})

	span := a.finalize(n, hr.FirstPage(), true)
	return span, fromReleased, true
}

// finalize constructs a Span descriptor for [page, page+n), records it in
// spanOwners under its first page only (Delete's lookup key) and, if a
// PageMap is configured, in the PageMap for every page it covers, and
// returns it (spec.md §4.1 "Finalize").
func (a *Allocator) finalize(n Length, page PageId, donated bool) *Span {
	s := &Span{FirstPage: page, N: n, Donated: donated, Tag: a.opts.Tag}
	a.spanOwners.Set(page, s)
	if a.opts.PageMap != nil {
		for p := page; p < page+PageId(n); p++ {
			a.opts.PageMap.SetSpan(int64(p), s)
		}
	}
	a.counters.recordAlloc(n)
	return s
}
