package app

import (
	"context"
	"errors"
	"testing"

	"github.com/nubelab/kumo/internal/kumo/audit"
)

// fakeNotifier records events for assertion.
type fakeNotifier struct {
	events []audit.Event
}

func (f *fakeNotifier) Notify(_ context.Context, evt audit.Event) {
	f.events = append(f.events, evt)
}

func TestNotifyCommandError(t *testing.T) {
	n := &fakeNotifier{}

	notifyCommandError(context.Background(), n, "@amy:example.com", errors.New("inventory backend unavailable"))

	if len(n.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(n.events))
	}
	evt := n.events[0]
	if evt.Kind != audit.KindError {
		t.Errorf("kind = %q, want %q", evt.Kind, audit.KindError)
	}
	if evt.Actor != "@amy:example.com" {
		t.Errorf("actor = %q, want @amy:example.com", evt.Actor)
	}
	if evt.Message != "inventory backend unavailable" {
		t.Errorf("message = %q, want the command error text", evt.Message)
	}
}
