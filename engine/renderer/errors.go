package renderer

import (
	"fmt"
	"strings"
)

// CompileError reports a shader stage that failed to compile or link. It is
// fatal for the owning drawable only: the drawable is skipped for the current
// frame and the error is surfaced with the offending stage's source annotated
// with line numbers plus the backend diagnostic. There is no automatic retry;
// the caller must correct the source and re-render.
type CompileError struct {
	// Stage names the failing stage ("vertex", "fragment", "compute",
	// "link" or "pipeline").
	Stage string

	// Source is the offending stage's source text.
	Source string

	// Diagnostic is the backend's error message.
	Diagnostic string
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s stage failed to compile: %s", e.Stage, e.Diagnostic)
	if e.Source != "" {
		b.WriteString("\n")
		for i, line := range strings.Split(e.Source, "\n") {
			fmt.Fprintf(&b, "%4d | %s\n", i+1, line)
		}
	}
	return b.String()
}

// AllocationError reports a backend refusal to allocate a buffer, texture or
// pipeline. It propagates to the caller: continuing would draw with a null or
// stale resource.
type AllocationError struct {
	// Resource names the allocation that failed ("buffer", "texture",
	// "target", "pipeline").
	Resource string

	// Err is the backend error.
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %s: %v", e.Resource, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// StateError reports an operation rejected synchronously, before any GPU call
// is issued: a compute request on a drawable without a compute stage, or a
// render with no bound surface or target.
type StateError struct {
	// Op is the rejected operation ("render", "compute").
	Op string

	// Reason describes the precondition that failed.
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}
