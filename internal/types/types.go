package types

// State is the lifecycle state of a fetch-transcode job.
type State string

// Job lifecycle states. A job moves forward only: Pending -> Downloading ->
// Converting -> Ready, or to Failed from any non-terminal state.
const (
	StatePending     State = "PENDING"
	StateDownloading State = "DOWNLOADING"
	StateConverting  State = "CONVERTING"
	StateReady       State = "READY"
	StateFailed      State = "FAILED"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// rank gives each state its position in the forward-only order. Failed ranks
// above everything so any non-terminal state may fail.
var rank = map[State]int{
	StatePending:     0,
	StateDownloading: 1,
	StateConverting:  2,
	StateReady:       3,
	StateFailed:      3,
}

// CanTransition reports whether a job may move from s to next.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return rank[next] == rank[s]+1
}

// Profile is the fixed conversion target for output artifacts.
type Profile struct {
	Format  string // container/codec name passed to the converter
	Bitrate string // audio bitrate, e.g. "128k"
}
