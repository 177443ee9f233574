package progress

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateNotStarted, StateLocked, true},
		{StateNotStarted, StateCompleted, false},
		{StateLocked, StateLocked, true},
		{StateLocked, StateUnlocked, true},
		{StateLocked, StateCompleted, false},
		{StateUnlocked, StateCompleted, true},
		{StateUnlocked, StateLocked, false},
		{StateCompleted, StateNotStarted, true},
		{StateCompleted, StateCompleted, false},
		{State("bogus"), StateLocked, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want=%v got=%v", tc.from, tc.to, tc.want, got)
		}
	}
}
