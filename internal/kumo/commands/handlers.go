// Package commands implements the chat command engine: it matches operator
// messages against the provisioning grammars and executes the create, delete
// and list operations against the inventory backend.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/nubelab/kumo/internal/kumo/audit"
	"github.com/nubelab/kumo/internal/kumo/config"
	"github.com/nubelab/kumo/internal/kumo/grammar"
	"github.com/nubelab/kumo/internal/kumo/inventory"
	"github.com/nubelab/kumo/internal/kumo/store"
	"github.com/nubelab/kumo/internal/kumo/userdata"
)

// Message is the engine's view of one incoming chat message. The transport
// layer converts its own event type into this before dispatching, which keeps
// the command engine testable without a live homeserver.
type Message struct {
	// Text is the raw message body.
	Text string
	// Room identifies the channel the message arrived in.
	Room string
	// EventID identifies the message itself, for threaded replies.
	EventID string
	// Sender is the user ID of the operator who sent the message.
	Sender string
}

// TemplateData returns the message fields as a map for rendering the
// userdata and default-search templates.
func (m Message) TemplateData() map[string]string {
	return map[string]string{
		"user":    m.Sender,
		"channel": m.Room,
		"text":    m.Text,
	}
}

// Field is one title/value pair inside an attachment.
type Field struct {
	Title string
	Value string
	// Short requests side-by-side rendering where the transport supports it.
	Short bool
}

// Attachment is one structured summary block in a reply, typically one per
// server in a listing.
type Attachment struct {
	Title     string
	TitleLink string
	Color     string
	Fields    []Field
}

// Responder delivers handler output back to the operator. Handlers call it
// for every user-facing outcome, including per-item results of bulk
// operations; only fatal errors are returned to the dispatcher instead.
type Responder interface {
	Reply(msg Message, text string) error
	ReplyList(msg Message, text string, attachments []Attachment) error
}

// NameResolver resolves a user ID to a human display name. Satisfied by the
// Matrix client.
type NameResolver interface {
	GetDisplayName(ctx context.Context, userID string) (string, error)
}

// Handlers holds the command handlers and their dependencies.
type Handlers struct {
	inv      inventory.Client
	cfg      *config.Config
	store    *store.Store
	notifier audit.Notifier
	resolver NameResolver

	// botUserID is the fallback owner_id when a message carries no sender.
	botUserID string

	// sensitive values are stripped from debug log output, see RedactValues.
	sensitive []string

	userdataTmpl    *userdata.Template
	defaultOptsTmpl *template.Template
	defaultMetaTmpl *template.Template
}

// New creates a Handlers instance. It loads the userdata template and
// parses the default-search templates up front so configuration mistakes
// surface at startup rather than on the first command.
func New(inv inventory.Client, cfg *config.Config, st *store.Store, notifier audit.Notifier, resolver NameResolver, botUserID string) (*Handlers, error) {
	udTmpl, err := userdata.Load(cfg.CreateServerDefaults.Userdata)
	if err != nil {
		return nil, fmt.Errorf("failed to load userdata template: %w", err)
	}

	optsTmpl, err := template.New("default_search_options").Option("missingkey=error").Parse(cfg.DefaultSearchOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default_search_options template: %w", err)
	}

	metaTmpl, err := template.New("default_search_metadata").Option("missingkey=error").Parse(cfg.DefaultSearchMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default_search_metadata template: %w", err)
	}

	if notifier == nil {
		notifier = audit.Noop{}
	}

	return &Handlers{
		inv:             inv,
		cfg:             cfg,
		store:           st,
		notifier:        notifier,
		resolver:        resolver,
		botUserID:       botUserID,
		userdataTmpl:    udTmpl,
		defaultOptsTmpl: optsTmpl,
		defaultMetaTmpl: metaTmpl,
	}, nil
}

// RedactValues registers secrets (access tokens, deploy keys) that must be
// stripped from any debug logging of rendered userdata payloads.
func (h *Handlers) RedactValues(values ...string) {
	h.sensitive = append(h.sensitive, values...)
}

// Dispatch matches msg.Text against the command grammars and runs the
// matching handler. It returns (false, nil) when the text matches no grammar;
// the caller should stay silent in that case. A non-nil error is fatal and
// should be reported at the transport boundary.
func (h *Handlers) Dispatch(ctx context.Context, msg Message, r Responder) (bool, error) {
	cmd := grammar.Match(msg.Text)
	if cmd == nil {
		return false, nil
	}

	var err error
	switch cmd.Kind {
	case grammar.KindCreate:
		err = h.HandleCreate(ctx, cmd, msg, r)
	case grammar.KindDelete:
		err = h.HandleDelete(ctx, cmd, msg, r)
	case grammar.KindList:
		err = h.HandleList(ctx, cmd, msg, r)
	default:
		err = fmt.Errorf("no handler for command kind %q", cmd.Kind)
	}
	return true, err
}

// writeAudit records a command outcome. Audit failures must not break
// command handling, so they are logged and swallowed.
func (h *Handlers) writeAudit(ctx context.Context, traceID, actor, action, target, result string, payload store.AuditPayload, errMsg string) {
	if h.store == nil {
		return
	}
	if err := h.store.WriteAudit(ctx, traceID, actor, action, target, result, payload, errMsg); err != nil {
		slog.Warn("failed to write audit entry", "action", action, "trace", traceID, "err", err)
	}
}
