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
	"fmt"
	"io"

	"github.com/cappadokes/tcmalloc/pkg/hostarch"
)

// Stats is the Policy Engine's own bookkeeping (live allocation count and
// pages), independent of the per-backend Stats each collaborator already
// reports for itself (spec.md §6/§8).
type Stats struct {
	numAllocs int64
	allocated Length
}

func (s *Stats) recordAlloc(n Length) {
	s.numAllocs++
	s.allocated += n
}

func (s *Stats) recordFree(n Length) {
	s.numAllocs--
	s.allocated -= n
}

// BackingStats aggregates byte-granular totals across every backend.
// SystemBytes - FreeBytes - UnmappedBytes must equal the bytes actually
// live in callers' hands (spec.md §6's conservation property): SystemBytes
// is sourced directly from the VM Provider's own reservation ledger rather
// than reconstructed from the backends above it, and FreeBytes includes
// every free page each backend holds, including the hugepages the Cache is
// holding backed-but-free (which are otherwise invisible to the
// Filler/RegionSet/LifetimePredictor's own FreePages counters).
type BackingStats struct {
	SystemBytes    uint64
	FreeBytes      uint64
	UnmappedBytes  uint64
	FillerBytes    uint64
	RegionBytes    uint64
	LifetimeBytes  uint64
	CacheFreeBytes uint64
	NumAllocs      int64
}

// stats gathers a BackingStats snapshot. The pageheap lock must already be
// held by the caller (spec.md §6).
func (a *Allocator) stats() BackingStats {
	fs := a.filler.Stats()
	rs := a.regions.Stats()
	ls := a.life.Stats()
	cs := a.cache.Stats()

	pageBytes := func(n Length) uint64 { return uint64(n) * hostarch.PageSize }
	hugeBytes := func(n HugeLength) uint64 { return uint64(n) * hostarch.HugePageSize }

	return BackingStats{
		SystemBytes:    a.vm.SystemBytes(),
		FreeBytes:      pageBytes(fs.FreePages) + pageBytes(rs.FreePages) + pageBytes(ls.FreePages) + hugeBytes(cs.FreeHugePages-cs.ReleasedHugePages),
		UnmappedBytes:  hugeBytes(cs.ReleasedHugePages),
		FillerBytes:    pageBytes(fs.UsedPages),
		RegionBytes:    pageBytes(rs.UsedPages),
		LifetimeBytes:  pageBytes(ls.UsedPages),
		CacheFreeBytes: hugeBytes(cs.FreeHugePages),
		NumAllocs:      a.counters.numAllocs,
	}
}

// Print writes a human-readable stats dump to out, in tcmalloc's
// traditional "Stats:" block style. If everything is false, only the two
// summary lines are printed; the per-backend breakdown is always useful for
// debugging an allocator embedded in a larger process, so it is gated on
// the same flag the original used for its exhaustive per-size-class dump.
func (a *Allocator) Print(out io.Writer, everything bool) {
	st := a.stats()
	fmt.Fprintf(out, "HugePageAware: %d bytes system, %d bytes free, %d bytes unmapped\n",
		st.SystemBytes, st.FreeBytes, st.UnmappedBytes)
	fmt.Fprintf(out, "HugePageAware: %d donated hugepages, %d abandoned pages, %d lifetime donation races\n",
		a.donatedHugePages.Load(), a.abandonedPages.Load(), a.lifetimeDonationRaces.Load())
	if !everything {
		return
	}
	fmt.Fprintf(out, "HugePageAware: filler %d bytes, region %d bytes, lifetime %d bytes, cache free %d bytes\n",
		st.FillerBytes, st.RegionBytes, st.LifetimeBytes, st.CacheFreeBytes)
	fmt.Fprintf(out, "HugePageAware: %d live allocations\n", st.NumAllocs)
}

// PrintInPbtxt writes the stats Print reports, except the lifetime donation
// race count and the live allocation count, as a sequence of "key: value"
// lines nested under region, matching the pbtxt fragment style tcmalloc
// embeds in its larger proto dump.
func (a *Allocator) PrintInPbtxt(out io.Writer, region string) {
	st := a.stats()
	fmt.Fprintf(out, "%s {\n", region)
	fmt.Fprintf(out, "  system_bytes: %d\n", st.SystemBytes)
	fmt.Fprintf(out, "  free_bytes: %d\n", st.FreeBytes)
	fmt.Fprintf(out, "  unmapped_bytes: %d\n", st.UnmappedBytes)
	fmt.Fprintf(out, "  filler_bytes: %d\n", st.FillerBytes)
	fmt.Fprintf(out, "  region_bytes: %d\n", st.RegionBytes)
	fmt.Fprintf(out, "  lifetime_bytes: %d\n", st.LifetimeBytes)
	fmt.Fprintf(out, "  cache_free_bytes: %d\n", st.CacheFreeBytes)
	fmt.Fprintf(out, "  donated_huge_pages: %d\n", a.donatedHugePages.Load())
	fmt.Fprintf(out, "  abandoned_pages: %d\n", a.abandonedPages.Load())
	fmt.Fprintf(out, "}\n")
}

// GetSmallSpanStats reports the Filler's current holdings, the backend
// every n <= PagesPerHugePage/2 allocation routes through.
func (a *Allocator) GetSmallSpanStats() (usedPages, freePages Length) {
	s := a.filler.Stats()
	return s.UsedPages, s.FreePages
}

// GetLargeSpanStats reports the RegionSet's current holdings, the backend
// most PagesPerHugePage/2 < n <= RegionSize allocations route through.
func (a *Allocator) GetLargeSpanStats() (usedPages, freePages Length) {
	s := a.regions.Stats()
	return s.UsedPages, s.FreePages
}
