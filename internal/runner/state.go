package runner

import "fmt"

// State is the controller's position in the turn loop.
type State int

const (
	StateAwaitingInput State = iota
	StateCallingRemote
	StateExecutingTools
	StatePresenting
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateCallingRemote:
		return "calling_remote"
	case StateExecutingTools:
		return "executing_tools"
	case StatePresenting:
		return "presenting"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
