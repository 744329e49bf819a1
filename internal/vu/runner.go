// Package vu implements the VU Runner (§4.4): the per-virtual-user loop
// that owns a ScriptHost and the active group stack, and turns each
// iteration into metrics samples.
package vu

import (
	"context"
	"fmt"
	"time"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/value"
)

// maxGroupDepth bounds the group() nesting stack (§4.4).
const maxGroupDepth = 64

// Runner drives one VU's iteration loop. It is not safe for concurrent use;
// the scheduler guarantees it never calls Iterate concurrently for the same
// Runner (§4.3 "Scheduler never calls iteration concurrently for the same
// VU handle").
type Runner struct {
	ID      int
	Host    scripthost.Host
	Metrics *metrics.Engine
	Scenario string

	groupStack []string
}

// PushGroup enters a nested group scope, returning the dotted group tag
// value in effect while fn runs. Scripts call this via the `group` built-in
// module (gojahost); the runner itself has no notion of a JS closure, so
// callers invoke PushGroup/PopGroup around their own fn call.
func (r *Runner) PushGroup(name string) (string, error) {
	if len(r.groupStack) >= maxGroupDepth {
		return "", wrkrerr.InvalidUsage("group nesting exceeds max depth %d", maxGroupDepth)
	}
	r.groupStack = append(r.groupStack, name)
	return r.GroupTag(), nil
}

// PopGroup exits the innermost group scope.
func (r *Runner) PopGroup() {
	if len(r.groupStack) == 0 {
		return
	}
	r.groupStack = r.groupStack[:len(r.groupStack)-1]
}

// GroupTag renders the active group stack as a dotted name, or "" when no
// group is active (§4.4 "nested groups use dotted names").
func (r *Runner) GroupTag() string {
	if len(r.groupStack) == 0 {
		return ""
	}
	out := r.groupStack[0]
	for _, g := range r.groupStack[1:] {
		out = out + "." + g
	}
	return out
}

// BaseTags returns the tag set every sample recorded by this VU inherits:
// scenario, and group when active (§3 reserved tag names).
func (r *Runner) BaseTags() value.Tags {
	tags := value.NewTags().With(metrics.TagScenario, value.TagString(r.Scenario))
	if g := r.GroupTag(); g != "" {
		tags = tags.With(metrics.TagGroup, value.TagString(g))
	}
	return tags
}

// Iterate runs exactly one iteration of execFn, recording iterations,
// iteration_duration samples and swallowing script errors into
// iterations_errored (§4.4, §7 ScriptError "aborts the current iteration
// only"). It returns false when ctx was already cancelled before the
// iteration could start, signalling the scheduler to stop spawning further
// iterations for this VU.
func (r *Runner) Iterate(ctx context.Context, execFn string) bool {
	if ctx.Err() != nil {
		return false
	}
	r.groupStack = r.groupStack[:0]

	start := time.Now()
	result := r.Host.Iteration(execFn, r.ID)
	elapsed := time.Since(start)

	tags := r.BaseTags()
	r.Metrics.AddCounter(metrics.MetricIterations, tags, 1)
	r.Metrics.RecordTrend("iteration_duration", tags, float64(elapsed.Microseconds()))

	if result.Err != nil {
		r.Metrics.AddCounter("iterations_errored", tags, 1)
	}
	return true
}

// String implements fmt.Stringer for log fields.
func (r *Runner) String() string { return fmt.Sprintf("vu[%d]", r.ID) }
