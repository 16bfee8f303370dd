package scan

// State is the lifecycle position of one scan run.
type State int

const (
	Idle State = iota
	Scanning
	Embedding
	Storing
	Done
	// Failed is reachable only from Embedding or Storing. File-level
	// failures during Scanning never fail the run.
	Failed
	// Canceled is reachable only from Scanning.
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Embedding:
		return "embedding"
	case Storing:
		return "storing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Canceled
}
