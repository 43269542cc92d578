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

// Package lifetime implements the LifetimePredictor collaborator: it
// routes large allocations it believes will be short-lived to a region
// separate from the RegionSet's general-purpose regions, so that their
// eventual free doesn't fragment longer-lived allocations. The prediction
// heuristic itself (here, a simple repeat-count-per-size-class threshold)
// is explicitly out of scope per the spec; only the external contract
// (CollectLifetimeContext/MaybeGet/MaybePut/MaybeAddTracker) is load-bearing.
package lifetime

import (
	"github.com/cappadokes/tcmalloc/pkg/hpaa/regionset"
	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// RegionAllocator is the narrow capability interface the Predictor uses to
// acquire a fresh region, implemented by the Policy Engine and handed to
// the Predictor at construction. This keeps the dependency one-directional:
// the Predictor never holds a back-pointer to the full allocator (see
// SPEC_FULL.md §9, "RegionAlloc capability").
type RegionAllocator interface {
	// AllocRegion reserves n hugepages for exclusive use by a lifetime
	// region, returning an invalid range on failure, and reports whether
	// the range requires Back() before use.
	AllocRegion(n pageid.HugeLength) (pageid.HugeRange, bool)
}

// Options configures the Predictor, corresponding to spec.md §6's
// lifetime_options knob.
type Options struct {
	Enabled bool
	// ShortLivedThreshold is the number of times an allocation of a given
	// size class must have been observed before it is routed here.
	ShortLivedThreshold int
}

// Context is the thread-local allocation context CollectLifetimeContext
// gathers without the pageheap lock held.
type Context struct {
	sizeClass pageid.Length
	repeat    int
}

// Predictor is the LifetimePredictor collaborator.
type Predictor struct {
	opts    Options
	alloc   RegionAllocator
	regions *regionset.Set

	// observed counts allocation repeats per size class; this is the
	// out-of-scope prediction heuristic's entire state.
	observed map[pageid.Length]int
}

// regionAllocatorAdapter adapts a RegionAllocator to regionset.Source.
type regionAllocatorAdapter struct{ a RegionAllocator }

func (r regionAllocatorAdapter) AllocateHugePages(n pageid.HugeLength) (pageid.HugeRange, bool) {
	return r.a.AllocRegion(n)
}

// New returns a Predictor configured by opts, using alloc to acquire
// backing regions.
func New(opts Options, alloc RegionAllocator) *Predictor {
	return &Predictor{
		opts:     opts,
		alloc:    alloc,
		regions:  regionset.New(regionAllocatorAdapter{alloc}),
		observed: make(map[pageid.Length]int),
	}
}

// CollectLifetimeContext gathers the thread-local allocation context for
// an n-page request. Per spec.md §5, this MUST be called before the
// pageheap lock is taken.
func (p *Predictor) CollectLifetimeContext(n pageid.Length) Context {
	if !p.opts.Enabled {
		return Context{sizeClass: n}
	}
	p.observed[n]++
	return Context{sizeClass: n, repeat: p.observed[n]}
}

// MaybeGet attempts to satisfy an n-page request from an existing lifetime
// region, or (if the collected context has reached the short-lived
// threshold and no existing region can fit it) by allocating a new one. It returns the starting
// page and whether the allocation came from previously-released memory.
func (p *Predictor) MaybeGet(n pageid.Length, ctx Context) (pageid.PageId, bool, bool) {
	if !p.opts.Enabled || n >= regionset.RegionSize {
		return 0, false, false
	}
	if page, ok := p.regions.MaybeGet(n); ok {
		return page, false, true
	}
	if ctx.repeat < p.opts.ShortLivedThreshold {
		return 0, false, false
	}
	r, fromReleased := p.regions.AllocRegion()
	if r == nil {
		return 0, false, false
	}
	page, ok := p.regions.MaybeGet(n)
	return page, fromReleased, ok
}

// MaybePut returns true and frees [page, page+n) iff page belongs to one
// of this predictor's lifetime regions.
func (p *Predictor) MaybePut(page pageid.PageId, n pageid.Length) bool {
	return p.regions.MaybePut(page, n)
}

// MaybeAddTracker attaches a lifetime-tracking handle to a donated
// hugepage's Tracker, via the supplied setter, if the predictor is
// enabled. The handle is opaque to the Policy Engine.
func (p *Predictor) MaybeAddTracker(setLifetimeTracker func(any)) {
	if !p.opts.Enabled {
		return
	}
	setLifetimeTracker(&struct{}{})
}

// ReleaseHandle releases a lifetime-tracker handle previously attached via
// MaybeAddTracker; it is a no-op placeholder since this predictor's
// handles carry no external resources.
func (p *Predictor) ReleaseHandle(any) {}

// ReleasePages removes every entirely-free lifetime region and returns the
// HugeRange each was backed by; the caller is responsible for un-backing
// and recycling them, mirroring regionset.Set.ReleasePages.
func (p *Predictor) ReleasePages() []pageid.HugeRange {
	return p.regions.ReleasePages()
}

// Stats summarizes the Predictor's current holdings.
func (p *Predictor) Stats() regionset.Stats { return p.regions.Stats() }
