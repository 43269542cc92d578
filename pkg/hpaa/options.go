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
	"github.com/cappadokes/tcmalloc/pkg/hpaa/forwarder"
	"github.com/cappadokes/tcmalloc/pkg/hpaa/lifetime"
)

// MemoryTag is applied to every page this allocator hands out, so frees of
// its spans can be routed back here even when multiple allocators share a
// process (spec.md §6, P2).
type MemoryTag uint8

// Options configures an Allocator at construction time. All fields
// correspond to spec.md §6's enumerated compile-time/init-time
// configuration.
type Options struct {
	// Tag is this allocator's MemoryTag.
	Tag MemoryTag

	// UseHugeRegionMoreOften enables the aggressive region policy
	// (spec.md §4.1 step 2, §4.6 step 3).
	UseHugeRegionMoreOften bool

	// LifetimeOptions configures the LifetimePredictor.
	LifetimeOptions lifetime.Options

	// SeparateAllocsForFewAndManyObjectsSpans names the Filler-internal
	// bucketing by object density. The Filler's internal bucketing
	// algorithm is out of scope (§1); this flag is accepted and stored but
	// nothing reads it. objsPerSpan reaches Filler.TryGet whatever its
	// value, and TryGet ignores it.
	SeparateAllocsForFewAndManyObjectsSpans bool

	// MaxBytes bounds the VM provider's address-space reservation.
	MaxBytes uintptr

	// UsageLimiter is invoked after every successful Filler allocation.
	UsageLimiter forwarder.UsageLimiter

	// PageMap, if non-nil, receives SetSpan/ClearSpan calls alongside
	// this allocator's own hugepage-indexed tracker table.
	PageMap forwarder.PageMapWriter
}

// DefaultOptions returns conservative defaults: no lifetime prediction, no
// aggressive region policy, a 64GiB address-space reservation, and a
// no-op usage limiter.
func DefaultOptions() Options {
	return Options{
		MaxBytes:     64 << 30,
		UsageLimiter: forwarder.NoopUsageLimiter{},
	}
}
