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

// Package hostarch defines page and hugepage size constants and the integer
// arithmetic used to round addresses and lengths to them.
package hostarch

const (
	// PageShift is the binary log of the system page size.
	PageShift = 12

	// PageSize is the system page size in bytes.
	PageSize = 1 << PageShift

	// HugePageShift is the binary log of the host hugepage size (2MiB on
	// x86-64 and arm64 with 4K base pages).
	HugePageShift = 21

	// HugePageSize is the host hugepage size in bytes.
	HugePageSize = 1 << HugePageShift

	// PagesPerHugePage is the number of base pages packed into one
	// hugepage. This is kPagesPerHugePage in the spec.
	PagesPerHugePage = HugePageSize / PageSize
)

// Addr represents a generic virtual address, in bytes.
type Addr uint64

// PageRoundUp rounds addr up to the nearest page boundary. ok is false if
// rounding up would overflow.
func PageRoundUp(addr Addr) (Addr, bool) {
	if addr > ^Addr(0)-(PageSize-1) {
		return 0, false
	}
	return (addr + PageSize - 1) &^ (PageSize - 1), true
}

// PageRoundDown rounds addr down to the nearest page boundary.
func PageRoundDown(addr Addr) Addr {
	return addr &^ (PageSize - 1)
}

// HugePageRoundUp rounds addr up to the nearest hugepage boundary.
func HugePageRoundUp(addr Addr) (Addr, bool) {
	if addr > ^Addr(0)-(HugePageSize-1) {
		return 0, false
	}
	return (addr + HugePageSize - 1) &^ (HugePageSize - 1), true
}

// HugePageRoundDown rounds addr down to the nearest hugepage boundary.
func HugePageRoundDown(addr Addr) Addr {
	return addr &^ (HugePageSize - 1)
}

// IsPageAligned returns true if addr is a multiple of PageSize.
func IsPageAligned(addr Addr) bool {
	return addr&(PageSize-1) == 0
}

// IsHugePageAligned returns true if addr is a multiple of HugePageSize.
func IsHugePageAligned(addr Addr) bool {
	return addr&(HugePageSize-1) == 0
}
