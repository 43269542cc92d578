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

package hugecache

import (
	"testing"

	"github.com/cappadokes/tcmalloc/pkg/pageid"
)

// fakeSource is a bump allocator standing in for the VM Provider, so these
// tests exercise only the Cache's own bookkeeping.
type fakeSource struct {
	next  pageid.HugePage
	limit pageid.HugePage
}

func (s *fakeSource) AllocateHugePages(n pageid.HugeLength) pageid.HugeRange {
	if pageid.HugePage(int64(s.next)+int64(n)) > s.limit {
		return pageid.HugeRange{}
	}
	r := pageid.HugeRange{Start: s.next, Len: n}
	s.next += pageid.HugePage(n)
	return r
}

type fakeUnbacker struct{ released []pageid.HugeRange }

func (u *fakeUnbacker) ReleasePages(r pageid.HugeRange) bool {
	u.released = append(u.released, r)
	return true
}

func TestCacheGetFallsBackToSource(t *testing.T) {
	src := &fakeSource{limit: 100}
	c := New(src)

	r, fromReleased, ok := c.Get(2)
	if !ok {
		t.Fatalf("Get(2) failed on an empty cache with room in the source")
	}
	if fromReleased {
		t.Errorf("Get(2) reported fromReleased = true for a fresh source allocation")
	}
	if got, want := r, (pageid.HugeRange{Start: 0, Len: 2}); got != want {
		t.Errorf("Get(2) = %v, want %v", got, want)
	}
}

func TestCacheGetPrefersFreeOverSource(t *testing.T) {
	src := &fakeSource{limit: 100}
	c := New(src)
	c.Release(pageid.HugeRange{Start: 50, Len: 4})

	r, fromReleased, ok := c.Get(3)
	if !ok {
		t.Fatalf("Get(3) failed")
	}
	if fromReleased {
		t.Errorf("Get(3) reported fromReleased = true for a backed free range")
	}
	if got, want := r, (pageid.HugeRange{Start: 50, Len: 3}); got != want {
		t.Errorf("Get(3) = %v, want %v", got, want)
	}
	if src.next != 0 {
		t.Errorf("Get(3) fell through to the source despite a sufficient free range")
	}
}

func TestCacheGetReportsFromReleased(t *testing.T) {
	src := &fakeSource{limit: 100}
	c := New(src)
	c.ReleaseUnbacked(pageid.HugeRange{Start: 10, Len: 1})

	_, fromReleased, ok := c.Get(1)
	if !ok {
		t.Fatalf("Get(1) failed")
	}
	if !fromReleased {
		t.Errorf("Get(1) reported fromReleased = false for an un-backed range")
	}
}

func TestCacheGetExhaustion(t *testing.T) {
	src := &fakeSource{limit: 1}
	c := New(src)
	if _, _, ok := c.Get(2); ok {
		t.Errorf("Get(2) succeeded against a 1-hugepage source, want failure")
	}
}

func TestReleaseCachedPagesUnbacksFreeRanges(t *testing.T) {
	src := &fakeSource{limit: 100}
	c := New(src)
	c.Release(pageid.HugeRange{Start: 0, Len: 5})

	u := &fakeUnbacker{}
	released := c.ReleaseCachedPages(3, u)
	if released != 3 && released != 5 {
		t.Fatalf("ReleaseCachedPages(3) released %d hugepages, want 3 or 5 (whole-range granularity)", released)
	}
	if len(u.released) == 0 {
		t.Errorf("ReleaseCachedPages did not invoke the Unbacker")
	}
	if got := c.Stats().ReleasedHugePages; got == 0 {
		t.Errorf("Stats().ReleasedHugePages = 0 after a successful release")
	}
}
