package progress

// State is the per-(user, problem) position in the time-lock state machine.
type State string

const (
	StateNotStarted State = "not_started"
	StateLocked     State = "locked"
	StateUnlocked   State = "unlocked"
	StateCompleted  State = "completed"
)

var transitions = map[State][]State{
	StateNotStarted: {StateLocked},
	StateLocked:     {StateLocked, StateUnlocked},
	StateUnlocked:   {StateCompleted},
	StateCompleted:  {StateNotStarted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
