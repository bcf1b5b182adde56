package commands_test

import (
	"strings"
	"testing"

	"github.com/nubelab/kumo/internal/kumo/inventory"
)

func TestCreate_NumericNameAborts(t *testing.T) {
	inv := &fakeInventory{}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create 12345")

	if len(inv.created) != 0 {
		t.Fatalf("expected no create call for numeric name, got %d", len(inv.created))
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "not a valid server name") {
		t.Fatalf("expected validation reply, got %v", r.replies)
	}
}

func TestCreate_DuplicateNameAborts(t *testing.T) {
	inv := &fakeInventory{refs: []*inventory.Reference{
		{ID: "srv-old", Name: "web-1"},
	}}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create web-1")

	if len(inv.created) != 0 {
		t.Fatalf("expected no create call for duplicate name, got %d", len(inv.created))
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "already exists") {
		t.Fatalf("expected already-exists reply, got %v", r.replies)
	}
}

func TestCreate_Success(t *testing.T) {
	inv := &fakeInventory{}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create web-1 on release:v2 metadata env=staging from debian-12")

	if len(inv.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(inv.created))
	}
	req := inv.created[0]
	if req.Name != "web-1" {
		t.Errorf("name = %q, want web-1", req.Name)
	}
	if req.Image != "debian-12" {
		t.Errorf("image = %q, want operator override debian-12", req.Image)
	}
	for key, want := range map[string]string{
		"env":      "staging",
		"owner":    "Amy",
		"owner_id": "@amy:example.com",
		"init":     "pending",
		"branch":   "release:v2",
	} {
		if got := req.Metadata[key]; got != want {
			t.Errorf("metadata[%q] = %q, want %q", key, got, want)
		}
	}
	if !strings.Contains(req.Userdata, "name: web-1") {
		t.Errorf("userdata missing rendered name: %q", req.Userdata)
	}
	if !strings.Contains(req.Userdata, "alt: main") {
		t.Errorf("userdata should fall back to configured default branch: %q", req.Userdata)
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "srv-web-1") {
		t.Fatalf("expected creation acknowledgement with id, got %v", r.replies)
	}
}

func TestCreate_DefaultImageWhenNoneGiven(t *testing.T) {
	inv := &fakeInventory{}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create web-1")

	if len(inv.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(inv.created))
	}
	if got := inv.created[0].Image; got != "ubuntu-24.04" {
		t.Errorf("image = %q, want configured default", got)
	}
}

func TestCreate_RecreateDeletesExisting(t *testing.T) {
	inv := &fakeInventory{refs: []*inventory.Reference{
		{ID: "srv-old", Name: "web-1"},
	}}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "recreate web-1")

	if len(inv.deleted) != 1 || inv.deleted[0] != "srv-old" {
		t.Fatalf("expected old instance deleted, got %v", inv.deleted)
	}
	if len(inv.created) != 1 {
		t.Fatalf("expected create after delete, got %d", len(inv.created))
	}
}

func TestCreate_RecreateAmbiguousNameAborts(t *testing.T) {
	inv := &fakeInventory{refs: []*inventory.Reference{
		{ID: "srv-1", Name: "web-1"},
		{ID: "srv-2", Name: "web-1"},
	}}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "recreate web-1")

	if len(inv.created) != 0 {
		t.Fatalf("refusal must abort the whole command, got %d create calls", len(inv.created))
	}
	if len(inv.deleted) != 0 {
		t.Fatalf("nothing may be deleted on an ambiguous name, got %v", inv.deleted)
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "refusing to recreate") {
		t.Fatalf("expected a single refusal reply, got %v", r.replies)
	}
}

func TestCreate_RecreateContinuesPastMissingInstance(t *testing.T) {
	inv := &fakeInventory{}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "recreate web-1")

	if len(inv.created) != 1 {
		t.Fatalf("expected create despite missing prior instance, got %d", len(inv.created))
	}
	if len(r.replies) != 2 {
		t.Fatalf("expected informational reply plus acknowledgement, got %v", r.replies)
	}
	if !strings.Contains(r.replies[0], "No existing server") {
		t.Errorf("first reply should be informational, got %q", r.replies[0])
	}
}

func TestCreate_QuotaErrorRepliesVerbatim(t *testing.T) {
	inv := &fakeInventory{createErr: &inventory.QuotaError{Message: "Quota exceeded for instances: 20 of 20 in use."}}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create web-1")

	if len(r.replies) != 1 || r.replies[0] != "Quota exceeded for instances: 20 of 20 in use." {
		t.Fatalf("expected verbatim quota message, got %v", r.replies)
	}
}

func TestCreate_MalformedMetadataRejected(t *testing.T) {
	inv := &fakeInventory{}
	h := newTestHandlers(t, inv)
	r := &fakeResponder{}

	dispatch(t, h, r, "create web-1 meta env=staging,env=prod")

	if len(inv.created) != 0 {
		t.Fatalf("expected no create call for repeated metadata key, got %d", len(inv.created))
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "metadata") {
		t.Fatalf("expected metadata error reply, got %v", r.replies)
	}
}
