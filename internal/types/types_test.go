package types

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StatePending, StateDownloading, true},
		{StateDownloading, StateConverting, true},
		{StateConverting, StateReady, true},
		{StatePending, StateFailed, true},
		{StateDownloading, StateFailed, true},
		{StateConverting, StateFailed, true},
		{StatePending, StateConverting, false},
		{StatePending, StateReady, false},
		{StateDownloading, StateReady, false},
		{StateConverting, StateDownloading, false},
		{StateReady, StateDownloading, false},
		{StateReady, StateFailed, false},
		{StateFailed, StatePending, false},
		{StateFailed, StateDownloading, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
