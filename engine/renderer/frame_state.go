package renderer

import "fmt"

// frameState is one position in the per-frame state machine:
// Idle -> TargetBound -> Cleared -> Traversing ->
// {Compiled -> StateApplied -> Drawn}* -> Submitted -> Idle.
type frameState int

const (
	frameIdle frameState = iota
	frameTargetBound
	frameCleared
	frameTraversing
	frameCompiled
	frameStateApplied
	frameDrawn
	frameSubmitted
)

func (s frameState) String() string {
	switch s {
	case frameIdle:
		return "Idle"
	case frameTargetBound:
		return "TargetBound"
	case frameCleared:
		return "Cleared"
	case frameTraversing:
		return "Traversing"
	case frameCompiled:
		return "Compiled"
	case frameStateApplied:
		return "StateApplied"
	case frameDrawn:
		return "Drawn"
	case frameSubmitted:
		return "Submitted"
	default:
		return "Unknown"
	}
}

// frameTransitions lists the legal successor states. Cleared may be skipped
// (auto-clear disabled), the drawable loop may run zero or more times, and a
// frame that begins always reaches Submitted.
var frameTransitions = map[frameState][]frameState{
	frameIdle:         {frameTargetBound},
	frameTargetBound:  {frameCleared, frameTraversing},
	frameCleared:      {frameTraversing},
	frameTraversing:   {frameCompiled, frameSubmitted},
	frameCompiled:     {frameStateApplied},
	frameStateApplied: {frameDrawn},
	frameDrawn:        {frameCompiled, frameSubmitted},
	frameSubmitted:    {frameIdle},
}

// frameMachine enforces the per-frame state discipline. A violation is a
// renderer bug, not a caller error, so transition failures are returned as
// plain errors and treated as fatal.
type frameMachine struct {
	state frameState
}

func (m *frameMachine) current() frameState { return m.state }

// reset returns to Idle after a frame that failed before any GPU work was
// encoded, so the next Render starts clean.
func (m *frameMachine) reset() { m.state = frameIdle }

func (m *frameMachine) transition(to frameState) error {
	for _, allowed := range frameTransitions[m.state] {
		if to == allowed {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal frame transition %s -> %s", m.state, to)
}
