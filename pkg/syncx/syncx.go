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

// Package syncx re-exports the stdlib sync primitives this module uses and
// adds a named-mutex convention: one Mutex type per lock-holding struct, so
// that a lock's owner is visible at every call site (e.g. PageheapMutex
// instead of an anonymous sync.Mutex field). This mirrors gVisor's pkg/sync
// per-struct generated mutex types, without reproducing its static
// lock-order checker (pkg/sync/locking), which is orthogonal build tooling
// out of scope for a single-spinlock allocator.
package syncx

import "sync"

// Aliases of standard library types, named the way gVisor's pkg/sync names
// them so call sites read identically.
type (
	// Mutex is an alias of sync.Mutex.
	Mutex = sync.Mutex

	// RWMutex is an alias of sync.RWMutex.
	RWMutex = sync.RWMutex

	// Locker is an alias of sync.Locker.
	Locker = sync.Locker
)

// PageheapMutex guards all Policy Engine state: the Filler, RegionSet,
// HugeCache, LifetimePredictor, Tracker slots, donated_huge_pages,
// abandoned_pages, and stats. There is exactly one instance per Allocator.
type PageheapMutex struct {
	mu sync.Mutex
}

// Lock locks m.
func (m *PageheapMutex) Lock() { m.mu.Lock() }

// Unlock unlocks m.
func (m *PageheapMutex) Unlock() { m.mu.Unlock() }
