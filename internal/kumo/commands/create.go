package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nubelab/kumo/common/redact"
	"github.com/nubelab/kumo/common/trace"
	"github.com/nubelab/kumo/internal/kumo/audit"
	"github.com/nubelab/kumo/internal/kumo/grammar"
	"github.com/nubelab/kumo/internal/kumo/inventory"
	"github.com/nubelab/kumo/internal/kumo/search"
	"github.com/nubelab/kumo/internal/kumo/store"
	"github.com/nubelab/kumo/internal/kumo/userdata"
)

// HandleCreate provisions a new server.
//
// The command walks a fixed sequence: validate the name, handle the recreate
// marker, check for a duplicate, build the metadata document, render the
// userdata payload, then call the remote create. Numeric-only names abort the
// whole command; the original tooling was ambiguous here and aborting is the
// safer of the two readings.
func (h *Handlers) HandleCreate(ctx context.Context, cmd *grammar.Command, msg Message, r Responder) error {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	name, _ := cmd.Get(grammar.SlotName)
	if grammar.IsNumericName(name) {
		h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "rejected", nil, "numeric name")
		return r.Reply(msg, fmt.Sprintf("%q is not a valid server name: names must not be purely numeric.", name))
	}

	recreate := cmd.Has(grammar.SlotRecreate)
	if recreate {
		proceed, err := h.deleteExisting(ctx, name, msg, r)
		if err != nil {
			return err
		}
		if !proceed {
			h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "rejected", nil, "ambiguous name")
			return nil
		}
	} else {
		existing, err := h.inv.FindAll(ctx, inventory.Query{Name: name})
		if err != nil {
			h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "error", nil, err.Error())
			return fmt.Errorf("failed to check for existing server %q: %w", name, err)
		}
		if len(existing) > 0 {
			h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "rejected", nil, "already exists")
			return r.Reply(msg, fmt.Sprintf("A server named %q already exists (id %s). Use recreate to replace it.", name, existing[0].ID))
		}
	}

	meta, err := h.buildMetadata(ctx, cmd, msg)
	if err != nil {
		h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "rejected", nil, err.Error())
		return r.Reply(msg, fmt.Sprintf("Could not read the metadata list: %v", err))
	}

	payload, err := h.renderUserdata(cmd, msg, name, meta)
	if err != nil {
		h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "error", nil, err.Error())
		return fmt.Errorf("failed to render userdata for %q: %w", name, err)
	}

	slog.Debug("provisioning server",
		"name", name,
		"trace", traceID,
		"userdata", redact.String(payload, h.sensitive...))

	req := inventory.CreateRequest{
		Name:     name,
		Image:    cmd.GetOr(grammar.SlotImage, h.cfg.CreateServerDefaults.ImageName),
		Userdata: payload,
		Metadata: meta,
	}

	ref, err := h.inv.Create(ctx, req)
	if err != nil {
		var quota *inventory.QuotaError
		if errors.As(err, &quota) {
			h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "rejected", nil, quota.Message)
			return r.Reply(msg, quota.Message)
		}
		h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "error", nil, err.Error())
		return fmt.Errorf("failed to create server %q: %w", name, err)
	}

	h.writeAudit(ctx, traceID, msg.Sender, "server.create", name, "success",
		store.AuditPayload{"id": ref.ID, "image": req.Image, "recreate": recreate}, "")

	kind := audit.KindServerCreated
	if recreate {
		kind = audit.KindServerRecreated
	}
	h.notifier.Notify(ctx, audit.Event{
		Kind:    kind,
		Actor:   msg.Sender,
		Target:  name,
		Message: fmt.Sprintf("provisioned as %s", ref.ID),
		TraceID: traceID,
	})

	return r.Reply(msg, fmt.Sprintf("Created server %q with id %s. (trace: %s)", name, ref.ID, traceID))
}

// deleteExisting resolves and removes the server being recreated. A missing
// prior instance is informational and the create continues; an ambiguous
// name aborts the whole command (proceed=false) so the recreate never adds
// yet another server with the duplicated name.
func (h *Handlers) deleteExisting(ctx context.Context, name string, msg Message, r Responder) (bool, error) {
	ref, err := h.inv.Find(ctx, inventory.Query{Name: name})
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return true, r.Reply(msg, fmt.Sprintf("No existing server named %q; creating a fresh one.", name))
	case errors.Is(err, inventory.ErrAmbiguous):
		return false, r.Reply(msg, fmt.Sprintf("More than one server is named %q; refusing to recreate. Delete the extras first.", name))
	case err != nil:
		return false, fmt.Errorf("failed to look up server %q for recreate: %w", name, err)
	}

	if err := h.inv.Delete(ctx, ref); err != nil {
		return false, fmt.Errorf("failed to delete server %q (id %s) for recreate: %w", name, ref.ID, err)
	}
	return true, nil
}

// buildMetadata merges operator-supplied metadata with the derived ownership
// and lifecycle fields. Derived fields win over operator-supplied ones.
func (h *Handlers) buildMetadata(ctx context.Context, cmd *grammar.Command, msg Message) (map[string]string, error) {
	meta := make(map[string]string)

	if raw, ok := cmd.Get(grammar.SlotMetadata); ok {
		parsed, err := search.Parse("", raw)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed.Metadata {
			meta[k] = v
		}
	}

	owner := "unknown"
	if h.resolver != nil && msg.Sender != "" {
		if display, err := h.resolver.GetDisplayName(ctx, msg.Sender); err == nil && display != "" {
			owner = display
		}
	}

	ownerID := msg.Sender
	if ownerID == "" {
		ownerID = h.botUserID
	}
	if ownerID == "" {
		ownerID = "unknown"
	}

	if flavor := h.cfg.CreateServerDefaults.FlavorName; flavor != "" {
		meta["flavor"] = flavor
	}

	meta["owner"] = owner
	meta["owner_id"] = ownerID
	meta["init"] = "pending"
	meta["branch"] = cmd.GetOr(grammar.SlotBranch, "")

	return meta, nil
}

// renderUserdata encodes the metadata document, validates it against the
// metadata schema, and renders the configured template.
func (h *Handlers) renderUserdata(cmd *grammar.Command, msg Message, name string, meta map[string]string) (string, error) {
	encoded, err := userdata.EncodeMetadata(meta)
	if err != nil {
		return "", err
	}
	if err := userdata.ValidateMetadata(encoded); err != nil {
		return "", err
	}

	return h.userdataTmpl.Render(userdata.Context{
		Name:           name,
		Branch:         cmd.GetOr(grammar.SlotBranch, ""),
		AltBranch:      cmd.GetOr(grammar.SlotAltBranch, h.cfg.CreateServerDefaults.DefaultBranch),
		Meta:           encoded,
		KeyName:        h.cfg.CreateServerDefaults.KeyName,
		SecurityGroups: h.cfg.CreateServerDefaults.SecurityGroups,
		Data:           msg.TemplateData(),
	})
}
