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

package hostarch

import "testing"

func TestPageRounding(t *testing.T) {
	for _, test := range []struct {
		name string
		addr Addr
		up   Addr
		down Addr
	}{
		{name: "already aligned", addr: PageSize, up: PageSize, down: PageSize},
		{name: "one byte over", addr: PageSize + 1, up: 2 * PageSize, down: PageSize},
		{name: "zero", addr: 0, up: 0, down: 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, ok := PageRoundUp(test.addr)
			if !ok {
				t.Fatalf("PageRoundUp(%d) reported overflow", test.addr)
			}
			if got != test.up {
				t.Errorf("PageRoundUp(%d) = %d, want %d", test.addr, got, test.up)
			}
			if got := PageRoundDown(test.addr); got != test.down {
				t.Errorf("PageRoundDown(%d) = %d, want %d", test.addr, got, test.down)
			}
		})
	}
}

func TestPageRoundUpOverflow(t *testing.T) {
	if _, ok := PageRoundUp(^Addr(0)); ok {
		t.Errorf("PageRoundUp(max Addr) reported success, want overflow")
	}
}

func TestHugePageRounding(t *testing.T) {
	up, ok := HugePageRoundUp(HugePageSize + 1)
	if !ok {
		t.Fatalf("HugePageRoundUp(HugePageSize+1) reported overflow")
	}
	if want := Addr(2 * HugePageSize); up != want {
		t.Errorf("HugePageRoundUp(HugePageSize+1) = %d, want %d", up, want)
	}
	if got, want := HugePageRoundDown(HugePageSize+1), Addr(HugePageSize); got != want {
		t.Errorf("HugePageRoundDown(HugePageSize+1) = %d, want %d", got, want)
	}
}

func TestAlignmentPredicates(t *testing.T) {
	if !IsPageAligned(PageSize) {
		t.Errorf("IsPageAligned(PageSize) = false, want true")
	}
	if IsPageAligned(PageSize + 1) {
		t.Errorf("IsPageAligned(PageSize+1) = true, want false")
	}
	if !IsHugePageAligned(HugePageSize) {
		t.Errorf("IsHugePageAligned(HugePageSize) = false, want true")
	}
	if IsHugePageAligned(HugePageSize + PageSize) {
		t.Errorf("IsHugePageAligned(HugePageSize+PageSize) = true, want false")
	}
}

func TestPagesPerHugePage(t *testing.T) {
	if got, want := PagesPerHugePage, HugePageSize/PageSize; got != want {
		t.Errorf("PagesPerHugePage = %d, want %d", got, want)
	}
}
