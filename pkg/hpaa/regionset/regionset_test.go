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

package regionset

import (
	"testing"

	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

type fakeSource struct {
	next pageid.HugePage
	fail bool
}

func (s *fakeSource) AllocateHugePages(n pageid.HugeLength) (pageid.HugeRange, bool) {
	if s.fail {
		return pageid.HugeRange{}, false
	}
	r := pageid.HugeRange{Start: s.next, Len: n}
	s.next += pageid.HugePage(n)
	return r, false
}

func TestSetMaybeGetEmpty(t *testing.T) {
	s := New(&fakeSource{})
	if _, ok := s.MaybeGet(10); ok {
		t.Errorf("MaybeGet on an empty Set succeeded, want failure")
	}
}

func TestAllocRegionThenMaybeGet(t *testing.T) {
	s := New(&fakeSource{})
	r, fromReleased := s.AllocRegion()
	if r == nil {
		t.Fatalf("AllocRegion failed")
	}
	if fromReleased {
		t.Errorf("AllocRegion reported fromReleased = true from a fresh fakeSource")
	}

	page, ok := s.MaybeGet(300)
	if !ok {
		t.Fatalf("MaybeGet(300) failed against a freshly contributed region")
	}
	if !r.Contains(page) {
		t.Errorf("MaybeGet(300) returned a page outside the contributed region")
	}
}

func TestMaybePutRoundTrip(t *testing.T) {
	s := New(&fakeSource{})
	s.AllocRegion()
	page, ok := s.MaybeGet(100)
	if !ok {
		t.Fatalf("MaybeGet(100) failed")
	}
	if !s.MaybePut(page, 100) {
		t.Errorf("MaybePut did not claim a page it handed out")
	}
	if got := s.Stats().UsedPages; got != 0 {
		t.Errorf("UsedPages = %d after freeing the only allocation, want 0", got)
	}
}

func TestMaybePutUnownedPage(t *testing.T) {
	s := New(&fakeSource{})
	s.AllocRegion()
	if s.MaybePut(999999, 1) {
		t.Errorf("MaybePut claimed a page far outside any region")
	}
}

func TestReleasePagesOnlyFullyEmptyRegions(t *testing.T) {
	s := New(&fakeSource{})
	s.AllocRegion()
	page, _ := s.MaybeGet(100)

	if got := s.ReleasePages(); len(got) != 0 {
		t.Errorf("ReleasePages() on a partially-used region released %d ranges, want 0", len(got))
	}

	s.MaybePut(page, 100)
	released := s.ReleasePages()
	if len(released) != 1 {
		t.Fatalf("ReleasePages() on a fully-freed region released %d ranges, want 1", len(released))
	}
	if got, want := released[0].Len, pageid.HugeLength(RegionHugePages); got != want {
		t.Errorf("released range length = %d, want %d", got, want)
	}
	if got := s.Stats().NumRegions; got != 0 {
		t.Errorf("NumRegions = %d after releasing the only region, want 0", got)
	}
}
