package state

import "testing"

func TestManager_DefaultStateIsNone(t *testing.T) {
	m := NewManager()
	if got := m.GetUserState(42); got != None {
		t.Fatalf("expected %q, got %q", None, got)
	}
}

func TestManager_SetGetClear(t *testing.T) {
	m := NewManager()

	m.SetUserState(42, WaitingForGlucose)
	if got := m.GetUserState(42); got != WaitingForGlucose {
		t.Fatalf("expected %q, got %q", WaitingForGlucose, got)
	}
	if got := m.GetUserState(43); got != None {
		t.Fatalf("other users must be unaffected, got %q", got)
	}

	m.ClearUserState(42)
	if got := m.GetUserState(42); got != None {
		t.Fatalf("expected %q after clear, got %q", None, got)
	}
}
