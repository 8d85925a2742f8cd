package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestJobStatusTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobQueued, false},
		{JobProcessing, false},
		{JobError, true},
		{JobWarning, true},
		{JobWeakWarning, true},
		{JobSuccess, true},
		{JobDismissed, true},
		{JobStatus("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestJobStatusWireValues(t *testing.T) {
	statuses := []struct {
		constant JobStatus
		expected string
	}{
		{JobQueued, "queued"},
		{JobProcessing, "processing"},
		{JobError, "error"},
		{JobWarning, "warning"},
		{JobWeakWarning, "weak-warning"},
		{JobSuccess, "success"},
		{JobDismissed, "dismissed"},
	}
	for _, s := range statuses {
		if string(s.constant) != s.expected {
			t.Errorf("status constant = %q, want %q", s.constant, s.expected)
		}
	}
}

func TestValidSailTransition(t *testing.T) {
	tests := []struct {
		from, to SailStatus
		want     bool
	}{
		{SailCreated, SailProcessing, true},
		{SailProcessing, SailCompleted, true},
		{SailCreated, SailCompleted, false},
		{SailCompleted, SailProcessing, false},
		{SailCompleted, SailCreated, false},
		{SailProcessing, SailCreated, false},
		{SailProcessing, SailProcessing, false},
	}
	for _, tt := range tests {
		if got := ValidSailTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidSailTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
