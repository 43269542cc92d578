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

package pagemap

import "testing"

func TestTableGetSetClear(t *testing.T) {
	tbl := NewTable[int, string]()
	if _, ok := tbl.Get(1); ok {
		t.Fatalf("Get on an empty table succeeded")
	}
	tbl.Set(1, "one")
	tbl.Set(2, "two")
	if got, ok := tbl.Get(1); !ok || got != "one" {
		t.Errorf("Get(1) = (%q, %v), want (\"one\", true)", got, ok)
	}
	if got := tbl.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	tbl.Clear(1)
	if _, ok := tbl.Get(1); ok {
		t.Errorf("Get(1) succeeded after Clear(1)")
	}
	if got := tbl.Len(); got != 1 {
		t.Errorf("Len() = %d after Clear, want 1", got)
	}
}

func TestTableOverwrite(t *testing.T) {
	tbl := NewTable[string, int]()
	tbl.Set("k", 1)
	tbl.Set("k", 2)
	if got, ok := tbl.Get("k"); !ok || got != 2 {
		t.Errorf("Get(\"k\") = (%d, %v), want (2, true)", got, ok)
	}
	if got := tbl.Len(); got != 1 {
		t.Errorf("Len() = %d after overwriting the same key, want 1", got)
	}
}
