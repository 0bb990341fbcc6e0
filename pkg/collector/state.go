package collector

// State is the lifecycle position of a Collector
type State int

const (
	StateIdle State = iota
	StateResolving
	StatePaging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePaging:
		return "paging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions happen in this run
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stats is a point-in-time view of a run
type Stats struct {
	State     State
	Username  string
	UserID    string
	Cursor    string
	Pages     int
	Collected int
	Resumed   bool
}
