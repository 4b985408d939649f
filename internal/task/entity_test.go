package task

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:    false,
		StatusInProgress: false,
		StatusCompleted:  true,
		StatusCancelled:  true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("PENDING"); err != nil {
		t.Errorf("ParseStatus(PENDING) failed: %v", err)
	}
	if _, err := ParseStatus("pending"); err == nil {
		t.Error("expected error for lowercase status")
	}
	if _, err := ParseStatus("DONE"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParsePriority(t *testing.T) {
	if _, err := ParsePriority("HIGH"); err != nil {
		t.Errorf("ParsePriority(HIGH) failed: %v", err)
	}
	if _, err := ParsePriority("URGENT"); err == nil {
		t.Error("expected error for unknown priority")
	}
}
