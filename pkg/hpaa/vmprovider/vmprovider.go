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

// Package vmprovider implements the VM Provider and HugeAllocator: the
// bottom of the stack, reserving hugepage-aligned address ranges directly
// from the host via mmap/madvise, exactly as gVisor's pgalloc backs and
// un-backs its own memory file.
package vmprovider

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/cappadokes/tcmalloc/pkg/hostarch"
	"github.com/cappadokes/tcmalloc/pkg/log"
	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// Provider reserves and releases hugepage-aligned address ranges from the
// host kernel. It holds a single PROT_NONE mmap reservation and carves
// HugeAllocator ranges from it; Back/ReleasePages madvise sub-ranges of
// that same mapping rather than mapping/unmapping separately, so the
// address space callers see never moves.
type Provider struct {
	mu       sync.Mutex
	mem      []byte
	nextHuge pageid.HugePage
}

// New reserves a maxBytes-sized address space (never populated eagerly)
// aligned to the hugepage size, from which HugeAllocator carves ranges.
// maxBytes is rounded up to a whole number of hugepages.
func New(maxBytes uintptr) (*Provider, error) {
	if !hostarch.IsPageAligned(hostarch.Addr(maxBytes)) {
		return nil, fmt.Errorf("vmprovider: maxBytes %d is not page-aligned", maxBytes)
	}
	size := mustRoundUpHuge(maxBytes)
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("vmprovider: reserving %d bytes: %w", size, err)
	}
	return &Provider{mem: mem}, nil
}

// SystemBytes returns the total bytes this Provider has carved out of its
// reservation and handed to the stack above it, backed or released. It is
// the ground truth for the Policy Engine's reported system_bytes, rather
// than a figure reconstructed from the backends' own bookkeeping.
func (p *Provider) SystemBytes() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint64(p.nextHuge) * hostarch.HugePageSize
}

// AllocateHugePages reserves n contiguous, not-yet-backed hugepages and
// returns their range, or an invalid range if the reservation is
// exhausted. This is the HugeAllocator layered directly on the VM
// Provider's single backing reservation (spec.md §2's "HugeAllocator").
func (p *Provider) AllocateHugePages(n pageid.HugeLength) pageid.HugeRange {
	p.mu.Lock()
	defer p.mu.Unlock()
	need := uintptr(n) * hostarch.HugePageSize
	used := uintptr(p.nextHuge) * hostarch.HugePageSize
	if used+need > uintptr(len(p.mem)) {
		return pageid.HugeRange{}
	}
	start := p.nextHuge
	p.nextHuge += pageid.HugePage(n)
	return pageid.HugeRange{Start: start, Len: n}
}

// sliceOf returns the sub-slice of the backing mapping that r covers.
func (p *Provider) sliceOf(r pageid.HugeRange) []byte {
	off := uintptr(r.Start) * hostarch.HugePageSize
	n := uintptr(r.Len) * hostarch.HugePageSize
	if !hostarch.IsHugePageAligned(hostarch.Addr(off)) {
		panic("vmprovider: range does not start on a hugepage boundary")
	}
	return p.mem[off : off+n]
}

// Back ensures the pages of r are resident, advising the kernel to use
// transparent hugepages where possible. Per spec.md §5, this MUST be
// called without the pageheap lock held.
func (p *Provider) Back(r pageid.HugeRange) error {
	b := p.sliceOf(r)
	if err := unix.Madvise(b, unix.MADV_WILLNEED); err != nil {
		return fmt.Errorf("vmprovider: backing %v: %w", r, err)
	}
	if err := unix.Madvise(b, unix.MADV_HUGEPAGE); err != nil {
		log.Debugf("vmprovider: MADV_HUGEPAGE on %v not honored: %v", r, err)
	}
	return nil
}

// ReleasePages un-backs r, discarding its contents, via
// madvise(MADV_DONTNEED). It takes no lock. Its callers in this module
// (Cache.ReleaseCachedPages and the region release loop, both reached from
// Allocator.ReleaseAtLeastNPages) call it with the pageheap lock held; the
// lock is not dropped around the madvise call.
func (p *Provider) ReleasePages(r pageid.HugeRange) bool {
	if err := unix.Madvise(p.sliceOf(r), unix.MADV_DONTNEED); err != nil {
		log.Warningf("vmprovider: releasing %v: %v", r, err)
		return false
	}
	return true
}

func mustRoundUpHuge(n uintptr) uintptr {
	up, ok := hostarch.HugePageRoundUp(hostarch.Addr(n))
	if !ok {
		panic("vmprovider: maxBytes overflows hugepage rounding")
	}
	return uintptr(up)
}
