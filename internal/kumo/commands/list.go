package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nubelab/kumo/common/trace"
	"github.com/nubelab/kumo/internal/kumo/grammar"
	"github.com/nubelab/kumo/internal/kumo/inventory"
	"github.com/nubelab/kumo/internal/kumo/search"
	"github.com/nubelab/kumo/internal/kumo/store"
)

const listUsage = "Usage: list [search_opts <k=v,...>] [meta [!]<k=v,...>] - omit both to use the configured defaults."

// Status colors, keyed on the init and test metadata fields.
const (
	colorGreen  = "#7D7"
	colorBlue   = "#AEC6CF"
	colorYellow = "#FF3"
	colorRed    = "#C23B22"
	colorGray   = "#AAA"
)

// HandleList queries the inventory and replies with one summary attachment
// per server plus an aggregate count.
func (h *Handlers) HandleList(ctx context.Context, cmd *grammar.Command, msg Message, r Responder) error {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	preds, err := h.resolvePredicates(cmd, msg)
	if err != nil {
		var syntaxErr *search.SyntaxError
		if errors.As(err, &syntaxErr) {
			return r.Reply(msg, listUsage)
		}
		return fmt.Errorf("failed to resolve list predicates: %w", err)
	}

	refs, err := h.inv.FindAll(ctx, inventory.Query{
		SearchOptions: preds.SearchOptions,
		Metadata:      preds.Metadata,
		Negate:        preds.Negate,
	})
	if err != nil {
		h.writeAudit(ctx, traceID, msg.Sender, "server.list", preds.String(), "error", nil, err.Error())
		return fmt.Errorf("failed to list servers: %w", err)
	}

	h.writeAudit(ctx, traceID, msg.Sender, "server.list", preds.String(), "success",
		store.AuditPayload{"count": len(refs)}, "")

	attachments := make([]Attachment, 0, len(refs))
	for _, ref := range refs {
		attachments = append(attachments, h.renderAttachment(ref, preds))
	}

	summary := fmt.Sprintf("Found %d servers matching %s.", len(refs), preds.String())
	return r.ReplyList(msg, summary, attachments)
}

// resolvePredicates picks between operator-supplied predicates and the
// configured defaults. The defaults are templates rendered against the
// message context so they can reference the requesting operator.
func (h *Handlers) resolvePredicates(cmd *grammar.Command, msg Message) (*search.PredicateSet, error) {
	rawOpts, hasOpts := cmd.Get(grammar.SlotSearchOpts)
	rawMeta, hasMeta := cmd.Get(grammar.SlotMetadata)

	if hasOpts || hasMeta {
		return search.Parse(rawOpts, rawMeta)
	}

	data := msg.TemplateData()

	var opts bytes.Buffer
	if err := h.defaultOptsTmpl.Execute(&opts, data); err != nil {
		return nil, fmt.Errorf("default search options template: %w", err)
	}
	var meta bytes.Buffer
	if err := h.defaultMetaTmpl.Execute(&meta, data); err != nil {
		return nil, fmt.Errorf("default search metadata template: %w", err)
	}

	return search.Parse(opts.String(), meta.String())
}

// renderAttachment builds the per-server summary block. Metadata keys that
// were part of the predicate are suppressed from display; owner_id is never
// shown (it is a raw user ID, not listing material), and owner is
// additionally hidden when the match was pinned by owner_id.
func (h *Handlers) renderAttachment(ref *inventory.Reference, preds *search.PredicateSet) Attachment {
	suppress := make(map[string]bool, len(preds.Metadata)+1)
	for k := range preds.Metadata {
		suppress[k] = true
	}
	if suppress["owner_id"] {
		suppress["owner"] = true
	}
	suppress["owner_id"] = true

	keys := make([]string, 0, len(ref.Metadata))
	for k := range ref.Metadata {
		if !suppress[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys)+2)
	for _, k := range keys {
		fields = append(fields, Field{Title: k, Value: ref.Metadata[k], Short: true})
	}

	var addrs []string
	for _, netAddrs := range ref.Addresses {
		addrs = append(addrs, netAddrs...)
	}
	sort.Strings(addrs)
	if len(addrs) > 0 {
		// A single address fits a half-width column; multiple need the row.
		fields = append(fields, Field{Title: "addresses", Value: strings.Join(addrs, ", "), Short: len(addrs) == 1})
	}
	fields = append(fields, Field{Title: "id", Value: ref.ID, Short: false})

	title := ref.Name
	link := ""
	if h.cfg.Domain != "" {
		title = fmt.Sprintf("%s.%s", ref.Name, h.cfg.Domain)
		link = fmt.Sprintf("https://%s.%s", ref.Name, h.cfg.Domain)
	}

	return Attachment{
		Title:     title,
		TitleLink: link,
		Color:     statusColor(ref.Metadata),
		Fields:    fields,
	}
}

// statusColor maps the init and test metadata fields to an attachment color.
// init is evaluated first; test only refines the "done" state.
func statusColor(meta map[string]string) string {
	switch meta["init"] {
	case "done":
		switch meta["test"] {
		case "pass":
			return colorGreen
		case "full", "quick", "started":
			return colorBlue
		case "fail":
			return colorYellow
		default:
			return colorGray
		}
	case "started":
		return colorBlue
	case "fail":
		return colorRed
	default:
		return colorGray
	}
}
