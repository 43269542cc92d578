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

// Package forwarder stands in for the collaborators the Policy Engine talks
// to but does not own: the PageMap, the span descriptor pool, the
// usage-limit enforcement hook, and the per-call tunable parameters. Its
// context-key pattern mirrors gVisor's pkg/sentry/pgalloc/context.go.
package forwarder

import "context"

type contextKey int

const (
	// CtxParameters is a context.Context Value key for a *Parameters.
	CtxParameters contextKey = iota
)

// Parameters holds the per-call tunables enumerated in the external
// interfaces section: the subrelease knobs and the aggressive-region mode.
type Parameters struct {
	// HPAASubrelease enables Filler-level subrelease in
	// ReleaseAtLeastNPages.
	HPAASubrelease bool

	// UseHugeRegionMoreOften enables the aggressive RegionSet policy in
	// both large-allocation routing and subrelease.
	UseHugeRegionMoreOften bool

	// ReleasePartialAllocPages allows subrelease to break up a hugepage
	// that is not yet fully free.
	ReleasePartialAllocPages bool

	// FillerSkipSubreleaseInterval is the single skip-subrelease window.
	// None of the three skip-subrelease intervals is read by this module:
	// Filler.ReleasePages applies no skip window whatever their values.
	FillerSkipSubreleaseInterval int64 // nanoseconds

	// FillerSkipSubreleaseShortInterval is the short-window variant.
	FillerSkipSubreleaseShortInterval int64 // nanoseconds

	// FillerSkipSubreleaseLongInterval is the long-window variant.
	FillerSkipSubreleaseLongInterval int64 // nanoseconds
}

// DefaultParameters returns the conservative defaults: subrelease enabled,
// aggressive region mode and partial-alloc release disabled.
func DefaultParameters() Parameters {
	return Parameters{HPAASubrelease: true}
}

// FromContext extracts Parameters from ctx, falling back to
// DefaultParameters if none were installed.
func FromContext(ctx context.Context) Parameters {
	if ctx == nil {
		return DefaultParameters()
	}
	if p, ok := ctx.Value(CtxParameters).(*Parameters); ok && p != nil {
		return *p
	}
	return DefaultParameters()
}

// WithParameters returns a context carrying p.
func WithParameters(ctx context.Context, p *Parameters) context.Context {
	return context.WithValue(ctx, CtxParameters, p)
}

// PageMapWriter is the narrow slice of the system page-mapping metadata the
// Policy Engine touches: associating/clearing a span pointer for the pages
// it covers. The per-hugepage Tracker side table lives in pkg/hpaa/pagemap,
// not here; this interface is only the external PageMap surface.
type PageMapWriter interface {
	// SetSpan records that page belongs to span.
	SetSpan(page int64, span any)
	// ClearSpan erases any span recorded for page.
	ClearSpan(page int64)
}

// SpanPool supplies and recycles Span descriptors, standing in for the
// external span-pool collaborator (object sizing/pooling itself is out of
// scope here).
type SpanPool interface {
	// NewSpan returns a fresh, zeroed Span descriptor.
	NewSpan() any
}

// UsageLimiter is invoked after a successful Filler allocation with the
// page count just consumed; it may choose to abort the process or to
// release pages elsewhere. Its policy is out of scope; the Policy Engine
// only guarantees the call happens.
type UsageLimiter interface {
	// OnAllocation is called with the number of pages just allocated.
	OnAllocation(n int64)
}

// NoopUsageLimiter never intervenes.
type NoopUsageLimiter struct{}

// OnAllocation implements UsageLimiter.OnAllocation.
func (NoopUsageLimiter) OnAllocation(int64) {}
