package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nubelab/kumo/common/trace"
	"github.com/nubelab/kumo/internal/kumo/audit"
	"github.com/nubelab/kumo/internal/kumo/grammar"
	"github.com/nubelab/kumo/internal/kumo/inventory"
	"github.com/nubelab/kumo/internal/kumo/search"
	"github.com/nubelab/kumo/internal/kumo/store"
)

const deleteUsage = "Usage: delete <name> [<name> ...] OR delete search_opts <k=v,...> meta <k=v,...> - give either a list of names or search predicates, never both."

// HandleDelete removes servers, either by an explicit name list or by search
// predicates. The two forms are mutually exclusive; mixing them is a usage
// error and nothing is deleted.
//
// The predicate path refuses to run unless the metadata filter pins an owner
// or owner_id, and refuses negated filters outright. Without those guards a
// typo like "delete meta init=done" could take out the whole fleet.
func (h *Handlers) HandleDelete(ctx context.Context, cmd *grammar.Command, msg Message, r Responder) error {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	rawNames, hasNames := cmd.Get(grammar.SlotNames)
	rawOpts, hasOpts := cmd.Get(grammar.SlotSearchOpts)
	rawMeta, hasMeta := cmd.Get(grammar.SlotMetadata)

	hasPredicates := hasOpts || hasMeta

	switch {
	case hasNames && hasPredicates:
		return r.Reply(msg, deleteUsage)
	case hasNames:
		// The names slot deliberately over-captures so that mixed input like
		// "delete web1 meta owner=amy" still reaches this handler. Any token
		// that looks like a predicate means the operator mixed the two forms.
		if strings.Contains(rawNames, "=") || containsKeyword(rawNames, "meta", "metadata", "search_opts") {
			return r.Reply(msg, deleteUsage)
		}
		return h.deleteByNames(ctx, traceID, grammar.SplitNames(rawNames), msg, r)
	case hasPredicates:
		return h.deleteByPredicates(ctx, traceID, rawOpts, rawMeta, msg, r)
	default:
		return r.Reply(msg, deleteUsage)
	}
}

// deleteByNames resolves and deletes each name independently. One name's
// failure never stops the rest; every outcome gets its own reply line.
func (h *Handlers) deleteByNames(ctx context.Context, traceID string, names []string, msg Message, r Responder) error {
	for _, name := range names {
		ref, err := h.inv.Find(ctx, inventory.Query{Name: name})
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", name, "rejected", nil, "not found")
			if err := r.Reply(msg, fmt.Sprintf("No server named %q found.", name)); err != nil {
				return err
			}
			continue
		case errors.Is(err, inventory.ErrAmbiguous):
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", name, "rejected", nil, "ambiguous")
			if err := r.Reply(msg, fmt.Sprintf("More than one server is named %q; refusing to guess.", name)); err != nil {
				return err
			}
			continue
		case err != nil:
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", name, "error", nil, err.Error())
			return fmt.Errorf("failed to look up server %q: %w", name, err)
		}

		if err := h.inv.Delete(ctx, ref); err != nil {
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", name, "error", nil, err.Error())
			if err := r.Reply(msg, fmt.Sprintf("Failed to delete %q (id %s): %v", name, ref.ID, err)); err != nil {
				return err
			}
			continue
		}

		h.writeAudit(ctx, traceID, msg.Sender, "server.delete", name, "success",
			store.AuditPayload{"id": ref.ID}, "")
		h.notifier.Notify(ctx, audit.Event{
			Kind:    audit.KindServerDeleted,
			Actor:   msg.Sender,
			Target:  name,
			Message: fmt.Sprintf("deleted (id %s)", ref.ID),
			TraceID: traceID,
		})
		if err := r.Reply(msg, fmt.Sprintf("Deleted server %q (id %s).", name, ref.ID)); err != nil {
			return err
		}
	}
	return nil
}

// deleteByPredicates bulk-deletes every server matching the predicates. The
// ownership guard runs before any remote call.
func (h *Handlers) deleteByPredicates(ctx context.Context, traceID string, rawOpts, rawMeta string, msg Message, r Responder) error {
	preds, err := search.Parse(rawOpts, rawMeta)
	if err != nil {
		return r.Reply(msg, fmt.Sprintf("Could not read the search predicates: %v\n%s", err, deleteUsage))
	}

	// A negated filter inverts the match, so "!owner=amy" would select every
	// server amy does NOT own. That is the opposite of pinning a blast radius.
	if preds.Negate {
		h.writeAudit(ctx, traceID, msg.Sender, "server.delete", preds.String(), "rejected", nil, "negated predicate")
		return r.Reply(msg, "Deleting by negated predicate is too dangerous; spell out what to delete instead.")
	}
	if _, ok := preds.Metadata["owner"]; !ok {
		if _, ok := preds.Metadata["owner_id"]; !ok {
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", preds.String(), "rejected", nil, "missing ownership filter")
			return r.Reply(msg, "Deleting by predicate without an owner or owner_id filter is too dangerous; add one and try again.")
		}
	}

	refs, err := h.inv.FindAll(ctx, inventory.Query{
		SearchOptions: preds.SearchOptions,
		Metadata:      preds.Metadata,
		Negate:        preds.Negate,
	})
	if err != nil {
		h.writeAudit(ctx, traceID, msg.Sender, "server.delete", preds.String(), "error", nil, err.Error())
		return fmt.Errorf("failed to search servers for deletion: %w", err)
	}
	if len(refs) == 0 {
		return r.Reply(msg, fmt.Sprintf("No servers found matching %s.", preds.String()))
	}

	for _, ref := range refs {
		if err := h.inv.Delete(ctx, ref); err != nil {
			h.writeAudit(ctx, traceID, msg.Sender, "server.delete", ref.Name, "error",
				store.AuditPayload{"id": ref.ID}, err.Error())
			if err := r.Reply(msg, fmt.Sprintf("Failed to delete %q (id %s): %v", ref.Name, ref.ID, err)); err != nil {
				return err
			}
			continue
		}

		h.writeAudit(ctx, traceID, msg.Sender, "server.delete", ref.Name, "success",
			store.AuditPayload{"id": ref.ID, "predicate": preds.String()}, "")
		h.notifier.Notify(ctx, audit.Event{
			Kind:    audit.KindServerDeleted,
			Actor:   msg.Sender,
			Target:  ref.Name,
			Message: fmt.Sprintf("deleted (id %s)", ref.ID),
			TraceID: traceID,
		})
		if err := r.Reply(msg, fmt.Sprintf("Deleted server %q (id %s).", ref.Name, ref.ID)); err != nil {
			return err
		}
	}
	return nil
}

// containsKeyword reports whether any whitespace or comma separated token of
// raw equals one of the keywords.
func containsKeyword(raw string, keywords ...string) bool {
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		for _, kw := range keywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}
