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

// Package atomicbitops provides typed wrappers around sync/atomic for
// counters that are read for diagnostics without holding the owning lock.
package atomicbitops

import "sync/atomic"

// Int64 is an atomically accessed int64.
type Int64 struct {
	value int64
}

// FromInt64 returns an Int64 initialized to val.
func FromInt64(val int64) Int64 {
	return Int64{value: val}
}

// Load returns the current value.
func (i *Int64) Load() int64 { return atomic.LoadInt64(&i.value) }

// Store sets the value.
func (i *Int64) Store(val int64) { atomic.StoreInt64(&i.value, val) }

// Add adds delta and returns the new value.
func (i *Int64) Add(delta int64) int64 { return atomic.AddInt64(&i.value, delta) }

// RacyLoad returns the value without synchronization; for use only when the
// owning lock is already held by the caller.
func (i *Int64) RacyLoad() int64 { return i.value }

// Uint64 is an atomically accessed uint64.
type Uint64 struct {
	value uint64
}

// FromUint64 returns a Uint64 initialized to val.
func FromUint64(val uint64) Uint64 {
	return Uint64{value: val}
}

// Load returns the current value.
func (u *Uint64) Load() uint64 { return atomic.LoadUint64(&u.value) }

// Store sets the value.
func (u *Uint64) Store(val uint64) { atomic.StoreUint64(&u.value, val) }

// Add adds delta and returns the new value.
func (u *Uint64) Add(delta uint64) uint64 { return atomic.AddUint64(&u.value, delta) }

// Bool is an atomic Boolean, implemented by a Uint32 with 0 == false.
type Bool struct {
	value uint32
}

// FromBool returns a Bool initialized to val.
func FromBool(val bool) Bool {
	var b Bool
	b.Store(val)
	return b
}

// Load returns the current value.
func (b *Bool) Load() bool { return atomic.LoadUint32(&b.value) == 1 }

// Store sets the value.
func (b *Bool) Store(val bool) {
	var u uint32
	if val {
		u = 1
	}
	atomic.StoreUint32(&b.value, u)
}
