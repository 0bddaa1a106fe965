package course

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusNotStarted, StatusInProgress, true},
		{StatusNotStarted, StatusCompleted, true},
		{StatusNotStarted, StatusScormComplete, true},
		{StatusNotStarted, StatusFinalized, false},
		{StatusNotStarted, StatusSynced, false},
		{StatusInProgress, StatusScormComplete, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFinalized, true},
		{StatusInProgress, StatusSynced, false},
		{StatusScormComplete, StatusFinalized, true},
		{StatusScormComplete, StatusCompleted, false},
		{StatusScormComplete, StatusInProgress, false},
		{StatusCompleted, StatusSynced, true},
		{StatusCompleted, StatusFinalized, false},
		{StatusFinalized, StatusSynced, true},
		{StatusSynced, StatusInProgress, false},
		{StatusSynced, StatusFinalized, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionSelf(t *testing.T) {
	for _, status := range []string{
		StatusNotStarted, StatusInProgress, StatusScormComplete,
		StatusCompleted, StatusFinalized, StatusSynced,
	} {
		if !CanTransition(status, status) {
			t.Errorf("self transition rejected for %s", status)
		}
	}
}
