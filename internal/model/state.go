package model

// State is the load state of a model. Transitions only move forward:
// NeedsLoad, Loading, Loaded. Failed is reachable from any of them and is final.
type State int

const (
	NeedsLoad State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case NeedsLoad:
		return "needs-load"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
