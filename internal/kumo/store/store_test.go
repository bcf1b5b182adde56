package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/nubelab/kumo/internal/kumo/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "kumo-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndReadAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WriteAudit(ctx, "t_abc", "@amy:example.com", "server.create", "web1", "success",
		store.AuditPayload{"id": "container-1"}, "")
	if err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	err = s.WriteAudit(ctx, "t_def", "@amy:example.com", "server.delete", "web2", "error",
		nil, "no servers found")
	if err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}

	entries, err := s.RecentAudit(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	for _, e := range entries {
		if e.ID == "" {
			t.Error("entry ID must be set")
		}
	}

	var deleteEntry *store.AuditEntry
	for _, e := range entries {
		if e.Action == "server.delete" {
			deleteEntry = e
		}
	}
	if deleteEntry == nil {
		t.Fatal("delete entry missing")
	}
	if deleteEntry.Result != "error" {
		t.Errorf("Result: got %q", deleteEntry.Result)
	}
	if !deleteEntry.ErrorMessage.Valid || deleteEntry.ErrorMessage.String != "no servers found" {
		t.Errorf("ErrorMessage: got %+v", deleteEntry.ErrorMessage)
	}
	if deleteEntry.PayloadJSON.Valid {
		t.Error("PayloadJSON should be NULL when no payload given")
	}
}

func TestRecentAudit_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.WriteAudit(ctx, "t_x", "@amy:example.com", "server.list", "", "success", nil, ""); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}

	entries, err := s.RecentAudit(ctx, 3)
	if err != nil {
		t.Fatalf("RecentAudit: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "kumo-test-*.db")
	if err != nil {
		t.Fatalf("temp db: %v", err)
	}
	f.Close()

	s1, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}
