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

import "context"

// subreleaseResult is the (requested, released) pair recorded in info by
// ReleaseAtLeastNPages (spec.md §4.6 step 4).
type subreleaseResult struct {
	requested Length
	released  Length
}

// ReleaseAtLeastNPages implements spec.md §4.6. The pageheap lock must
// already be held by the caller.
func (a *Allocator) ReleaseAtLeastNPages(ctx context.Context, num Length) Length {
	return a.releaseAtLeastNPages(ctx, num, false)
}

// ReleaseAtLeastNPagesBreakingHugepages is the emergency variant: it asks
// the Filler with hitLimit set, so the Filler is consulted even when
// HPAASubrelease is off and hugepages that still hold live sub-allocations
// become eligible. Hugepages with no free page are never picked.
func (a *Allocator) ReleaseAtLeastNPagesBreakingHugepages(ctx context.Context, num Length) Length {
	return a.releaseAtLeastNPages(ctx, num, true)
}

func (a *Allocator) releaseAtLeastNPages(ctx context.Context, num Length, hitLimit bool) Length {
	params := a.parameters(ctx)

	released := Length(a.cache.ReleaseCachedPages(HugeLengthCeil(num), a.vm)) * PagesPerHugePage
	if released < num && (hitLimit || params.HPAASubrelease) {
		deficit := num - released
		released += a.filler.ReleasePages(deficit, params.ReleasePartialAllocPages, hitLimit)
	}
	if released < num && params.UseHugeRegionMoreOften {
		for _, r := range a.regions.ReleasePages() {
			a.vm.ReleasePages(r)
			a.cache.ReleaseUnbacked(r)
			released += Length(r.Len) * PagesPerHugePage
		}
		for _, r := range a.life.ReleasePages() {
			a.vm.ReleasePages(r)
			a.cache.ReleaseUnbacked(r)
			released += Length(r.Len) * PagesPerHugePage
		}
	}

	a.lastSubrelease = subreleaseResult{requested: num, released: released}
	return released
}
