package pipeline

import "fmt"

// State is a stage of a single pipeline run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateGenerating
	StateFetching
	StateBundling
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateValidating: "validating",
	StateGenerating: "generating",
	StateFetching:   "fetching",
	StateBundling:   "bundling",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", text)
}
