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
	"context"
	"fmt"

	"github.com/cappadokes/tcmalloc/pkg/atomicbitops"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/filler"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/forwarder"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/hugecache"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/lifetime"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/pagemap"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/regionset"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/vmprovider"
	"github.com/cappadokes/tcmalloc/pkg/log"
	"github.com/cappadokes/tcmalloc/pkg/syncx"
)

// Allocator is the Policy Engine: it routes New/Delete across the Filler,
// RegionSet, HugeCache, and raw-hugepage backends, and owns the donation
// bookkeeping that ties them together (spec.md §4).
type Allocator struct {
	mu syncx.PageheapMutex

	opts Options

	vm      *vmprovider.Provider
	cache   *hugecache.Cache
	filler  *filler.Filler
	regions *regionset.Set
	life    *lifetime.Predictor

	// trackers implements invariant D1's Tracker-slot lookup: the
	// hugepage-indexed side table Delete's hot path consults to find a
	// span's owning backend, per the Design Notes' recommendation.
	trackers *pagemap.Table[HugePage, *filler.Tracker]

	// spanOwners maps a span's first page to the span itself, so Delete
	// can recover its length and donated flag, and so a double-free of
	// an already-cleared first page is detected (Delete panics) rather
	// than silently corrupting accounting.
	spanOwners *pagemap.Table[PageId, *Span]

	donatedHugePages      atomicbitops.Int64
	abandonedPages        atomicbitops.Int64
	lifetimeDonationRaces atomicbitops.Int64

	counters       Stats
	lastSubrelease subreleaseResult
}

// NewAllocator constructs an Allocator per opts. A zero MaxBytes or a nil
// UsageLimiter is replaced by its DefaultOptions value.
func NewAllocator(opts Options) (*Allocator, error) {
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultOptions().MaxBytes
	}
	if opts.UsageLimiter == nil {
		opts.UsageLimiter = forwarder.NoopUsageLimiter{}
	}
	vm, err := vmprovider.New(opts.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("hpaa: constructing VM provider: %w", err)
	}
	a := &Allocator{
		opts:       opts,
		vm:         vm,
		filler:     filler.New(),
		trackers:   pagemap.NewTable[HugePage, *filler.Tracker](),
		spanOwners: pagemap.NewTable[PageId, *Span](),
	}
	a.cache = hugecache.New(vm)
	a.regions = regionset.New(a.cache)
	a.life = lifetime.New(opts.LifetimeOptions, a)
	return a, nil
}

// AllocRegion implements lifetime.RegionAllocator: the narrow capability
// the Predictor uses to acquire a fresh region without holding a
// back-pointer to the full Allocator (SPEC_FULL.md §9, "RegionAlloc
// capability").
func (a *Allocator) AllocRegion(n HugeLength) (HugeRange, bool) {
	return a.cache.AllocateHugePages(n)
}

// DonatedHugePages returns the current count of hugepages whose slack tail
// is donated to the Filler.
func (a *Allocator) DonatedHugePages() int64 { return a.donatedHugePages.Load() }

// AbandonedPages returns the current total of abandoned_count across all
// Trackers whose donating allocation has been freed while sub-allocations
// remain.
func (a *Allocator) AbandonedPages() int64 { return a.abandonedPages.Load() }

// MemoryTag returns the MemoryTag recorded for the span starting at page,
// and whether one was found, so a caller holding only a page address (not
// the original *Span) can recover which Allocator produced it and route a
// free back to it (spec.md §6, P2).
func (a *Allocator) MemoryTag(page PageId) (MemoryTag, bool) {
	s, ok := a.spanOwners.Get(page)
	if !ok {
		return 0, false
	}
	return s.Tag, true
}

// LifetimeDonationRaces returns the Open Question counter (spec.md §9) of
// times the lifetime-attach callback in allocRawHugepagesLocked found the
// donated tracker no longer installed or no longer donated and silently
// skipped lifetime attachment. allocRawHugepagesLocked does not release the
// pageheap lock between creating the tracker and that check, so the counter
// stays zero in this implementation.
func (a *Allocator) LifetimeDonationRaces() int64 {
	return a.lifetimeDonationRaces.Load()
}

// New acquires the pageheap lock, routes an n-page allocation per
// spec.md §4.1, releases the lock, backs the result if it came from
// previously-released memory, and returns the span (or nil on OOM).
// Requires n > 0.
func (a *Allocator) New(ctx context.Context, n Length, objsPerSpan int64) *Span {
	if n <= 0 {
		panic("hpaa: New called with n <= 0")
	}
	params := a.parameters(ctx)

	lifeCtx := a.life.CollectLifetimeContext(n)

	a.mu.Lock()
	span, fromReleased, ok := a.allocLocked(n, objsPerSpan, lifeCtx, params)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	if fromReleased {
		if err := a.vm.Back(hugeRangeCovering(span.FirstPage, span.N)); err != nil {
			log.Warningf("hpaa: backing span %v: %v", span, err)
		}
	}
	return span
}

// NewAligned is New, but guarantees the returned span's first page is
// align-page aligned. align must be a power of two no greater than
// PagesPerHugePage. If align <= 1, NewAligned is equivalent to New;
// otherwise it always goes through AllocRawHugepages, accepting the
// resulting slack as a donation, since only whole-hugepage-aligned
// carving can guarantee arbitrary sub-hugepage alignment cheaply.
func (a *Allocator) NewAligned(ctx context.Context, n Length, align Length, objsPerSpan int64) *Span {
	if align <= 1 {
		return a.New(ctx, n, objsPerSpan)
	}
	if align > PagesPerHugePage || align&(align-1) != 0 {
		panic("hpaa: NewAligned requires a power-of-two align <= PagesPerHugePage")
	}
	a.mu.Lock()
	span, fromReleased, ok := a.allocRawHugepagesLocked(n)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	if fromReleased {
		if err := a.vm.Back(hugeRangeCovering(span.FirstPage, span.N)); err != nil {
			log.Warningf("hpaa: backing span %v: %v", span, err)
		}
	}
	return span
}

// Lock acquires the pageheap lock. Delete and the lock-held external
// interfaces (ReleaseAtLeastNPages, stats, Print, ...) require the caller
// to hold it already, per spec.md §5/§6.
func (a *Allocator) Lock() { a.mu.Lock() }

// Unlock releases the pageheap lock.
func (a *Allocator) Unlock() { a.mu.Unlock() }

// Delete routes the free of a previously-returned span per spec.md §4.2.
// The pageheap lock must already be held by the caller (spec.md §6).
// objsPerSpan is not used.
func (a *Allocator) Delete(s *Span, objsPerSpan int64) {
	a.deleteLocked(s)
}

// parameters merges the per-call Parameters carried on ctx with this
// allocator's construction-time Options: opts.UseHugeRegionMoreOften acts
// as a floor a context can only raise, never lower, mirroring how tcmalloc
// treats a compile-time knob alongside its same-named runtime flag.
func (a *Allocator) parameters(ctx context.Context) forwarder.Parameters {
	p := forwarder.FromContext(ctx)
	if a.opts.UseHugeRegionMoreOften {
		p.UseHugeRegionMoreOften = true
	}
	return p
}

// hugeRangeCovering returns the HugeRange of whole hugepages that overlap
// [first, first+n).
func hugeRangeCovering(first PageId, n Length) HugeRange {
	start := HugePageContaining(first)
	end := HugePageContaining(first + PageId(n) - 1)
	return HugeRange{Start: start, Len: HugeLength(end-start) + 1}
}
