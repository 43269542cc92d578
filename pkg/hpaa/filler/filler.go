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

// Package filler implements the per-hugepage packing table: it maps a
// HugePage to a free-page bitmap (the Tracker) and packs sub-hugepage
// allocations onto the hugepage with the smallest sufficient
// longest-free-range (best fit), to keep fragmentation low. The bitmap
// layout and the packing index's internal data structure are deliberately
// simple (a bool bitmap, a linear best-fit scan): the spec treats the
// Filler's internal algorithm as an out-of-scope collaborator and only
// constrains its external contract.
package filler

import (
	"time"

	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// Tracker is the per-hugepage Filler descriptor (spec.md §3 "Tracker").
type Tracker struct {
	location HugePage
	bitmap   [int64(pageid.PagesPerHugePage)]bool // true == free

	longestFreeRange pageid.Length
	usedPages        pageid.Length

	wasDonated     bool
	abandonedCount pageid.Length
	donatedSlack   pageid.Length // fixed at donation; H - (n mod H) for the donating allocation
	abandoned      bool
	released       bool

	lifetimeTracker any
	objsPerSpan     int64
	createdAt       time.Time
}

// HugePage is re-exported for package-local readability.
type HugePage = pageid.HugePage

// Location returns the hugepage this tracker describes.
func (t *Tracker) Location() HugePage { return t.location }

// LongestFreeRange returns the longest contiguous free run.
func (t *Tracker) LongestFreeRange() pageid.Length { return t.longestFreeRange }

// UsedPages returns the number of currently allocated pages.
func (t *Tracker) UsedPages() pageid.Length { return t.usedPages }

// WasDonated returns whether this hugepage was born as the slack tail of a
// multi-hugepage allocation. Fixed at construction (invariant D4).
func (t *Tracker) WasDonated() bool { return t.wasDonated }

// AbandonedCount returns the size of the original donating allocation.
func (t *Tracker) AbandonedCount() pageid.Length { return t.abandonedCount }

// DonatedSlack returns the per-hugepage slack this tracker contributed at
// donation time, fixed regardless of later sub-allocation traffic. Used by
// the Policy Engine's large-allocation slack heuristic (spec.md §4.1).
func (t *Tracker) DonatedSlack() pageid.Length { return t.donatedSlack }

// Abandoned reports whether the donating allocation has been freed while
// sub-allocations remain.
func (t *Tracker) Abandoned() bool { return t.abandoned }

// SetAbandoned sets the abandoned flag.
func (t *Tracker) SetAbandoned(v bool) { t.abandoned = v }

// Released reports whether the Filler has returned this hugepage's backing
// pages to the OS (subrelease).
func (t *Tracker) Released() bool { return t.released }

// SetReleased marks the tracker released (or not).
func (t *Tracker) SetReleased(v bool) { t.released = v }

// LifetimeTracker returns the opaque handle owned by the LifetimePredictor.
func (t *Tracker) LifetimeTracker() any { return t.lifetimeTracker }

// SetLifetimeTracker installs the lifetime handle.
func (t *Tracker) SetLifetimeTracker(v any) { t.lifetimeTracker = v }

// Empty reports whether this tracker currently holds no used pages.
func (t *Tracker) Empty() bool { return t.usedPages == 0 }

// recomputeLongestFreeRange scans the bitmap for its longest contiguous
// free run. Linear, and intentionally so: see the package doc comment.
func (t *Tracker) recomputeLongestFreeRange() {
	var best, cur pageid.Length
	for _, free := range t.bitmap {
		if free {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	t.longestFreeRange = best
}

// carve allocates the first run of n contiguous free bits, returning the
// page offset within the hugepage. Panics if no such run exists; callers
// must check LongestFreeRange first.
func (t *Tracker) carve(n pageid.Length) int64 {
	nn := int64(n)
	run := int64(0)
	start := int64(-1)
	for i, free := range t.bitmap {
		if free {
			if run == 0 {
				start = int64(i)
			}
			run++
			if run == nn {
				for j := start; j < start+nn; j++ {
					t.bitmap[j] = false
				}
				t.usedPages += n
				t.recomputeLongestFreeRange()
				return start
			}
		} else {
			run = 0
		}
	}
	panic("filler: carve called without sufficient longest free range")
}

// put frees the run [offset, offset+n) within the hugepage.
func (t *Tracker) put(offset int64, n pageid.Length) {
	for i := offset; i < offset+int64(n); i++ {
		t.bitmap[i] = true
	}
	t.usedPages -= n
	t.recomputeLongestFreeRange()
}

// Filler packs sub-hugepage allocations across a set of Trackers.
type Filler struct {
	trackers []*Tracker
}

// New returns an empty Filler.
func New() *Filler {
	return &Filler{}
}

// Stats summarizes the Filler's current holdings.
type Stats struct {
	NumHugePages pageid.HugeLength
	UsedPages    pageid.Length
	FreePages    pageid.Length
}

// Empty reports whether the Filler currently holds no hugepages.
func (f *Filler) Empty() bool { return len(f.trackers) == 0 }

// stats returns the Filler's aggregate stats.
func (f *Filler) Stats() Stats {
	var s Stats
	s.NumHugePages = pageid.HugeLength(len(f.trackers))
	for _, t := range f.trackers {
		s.UsedPages += t.usedPages
		s.FreePages += pageid.PagesPerHugePage - t.usedPages
	}
	return s
}

// TryGet returns the PageId of an n-page allocation carved from the
// hugepage with the smallest sufficient longest-free-range (best fit), or
// (nil, 0, false) if no hugepage currently held by the Filler can satisfy
// n.
func (f *Filler) TryGet(n pageid.Length, objsPerSpan int64) (*Tracker, pageid.PageId, bool) {
	var best *Tracker
	for _, t := range f.trackers {
		if t.longestFreeRange < n {
			continue
		}
		if best == nil || t.longestFreeRange < best.longestFreeRange {
			best = t
		}
	}
	if best == nil {
		return nil, 0, false
	}
	offset := best.carve(n)
	return best, pageid.PageIdFromHugePage(best.location) + pageid.PageId(offset), true
}

// Trackers returns the Filler's currently-held trackers, for use by the
// Policy Engine's stats and routing heuristics. The returned slice is
// owned by the Filler and must not be retained past the caller's critical
// section.
func (f *Filler) Trackers() []*Tracker { return f.trackers }

// Contribute registers a freshly constructed tracker with the Filler's
// packing index. The tracker's Location identifies the hugepage; the
// tracker is expected to have already had its initial allocation (if any)
// carved.
func (f *Filler) Contribute(t *Tracker) {
	f.trackers = append(f.trackers, t)
}

// NewTracker constructs a Tracker for hp, with the entire hugepage free,
// and immediately carves out the first carve pages if carve > 0. donated
// marks whether this hugepage was born via the donation path; when it is,
// abandonedCount records the size of the ORIGINAL donating allocation
// (which may be much larger than carve — e.g. an enormous allocation whose
// tail partially occupies this hugepage).
func NewTracker(hp pageid.HugePage, carve pageid.Length, donated bool, abandonedCount pageid.Length, now time.Time) (*Tracker, pageid.PageId) {
	t := &Tracker{
		location:    hp,
		wasDonated:  donated,
		createdAt:   now,
		objsPerSpan: 0,
	}
	for i := range t.bitmap {
		t.bitmap[i] = true
	}
	t.longestFreeRange = pageid.PagesPerHugePage
	if donated {
		t.abandonedCount = abandonedCount
		t.donatedSlack = pageid.PagesPerHugePage - carve
	}
	var offset int64
	if carve > 0 {
		offset = t.carve(carve)
	}
	return t, pageid.PageIdFromHugePage(hp) + pageid.PageId(offset)
}

// Put frees the n-page run starting at page (which must lie on tracker's
// hugepage) back into tracker's bitmap. It returns tracker itself iff the
// hugepage is now entirely free, transferring ownership back to the
// caller (per the Filler contract); otherwise it returns nil, meaning the
// hugepage remains Filler-owned.
func (f *Filler) Put(t *Tracker, page pageid.PageId, n pageid.Length) *Tracker {
	offset := int64(page) - int64(pageid.PageIdFromHugePage(t.location))
	t.put(offset, n)
	if !t.Empty() {
		return nil
	}
	f.remove(t)
	return t
}

func (f *Filler) remove(t *Tracker) {
	for i, o := range f.trackers {
		if o == t {
			f.trackers[i] = f.trackers[len(f.trackers)-1]
			f.trackers = f.trackers[:len(f.trackers)-1]
			return
		}
	}
}

// ReleasePages asks the Filler to un-back up to n free pages. A hugepage
// that still has live sub-allocations (usedPages > 0) is only eligible
// when partialAllocPages (the release_partial_alloc_pages parameter) or
// hitLimit (the emergency, skip-intervals-zeroed path) is set; otherwise
// only fully-free hugepages qualify. The skip-subrelease interval
// heuristics themselves are this package's internal policy and out of
// scope for the core's contract; this implementation releases whichever
// eligible tracker has the most free pages first, until n is satisfied or
// no releasable hugepage remains.
func (f *Filler) ReleasePages(n pageid.Length, partialAllocPages, hitLimit bool) pageid.Length {
	var released pageid.Length
	for released < n {
		var best *Tracker
		var bestFree pageid.Length
		for _, t := range f.trackers {
			if t.released {
				continue
			}
			free := pageid.PagesPerHugePage - t.usedPages
			if free == 0 {
				continue
			}
			if t.usedPages > 0 && !partialAllocPages && !hitLimit {
				continue
			}
			if free > bestFree {
				best = t
				bestFree = free
			}
		}
		if best == nil {
			break
		}
		best.released = true
		released += bestFree
	}
	return released
}
