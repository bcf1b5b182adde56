// Package audit provides the ops room notification subsystem.
//
// When configured with a Matrix room ID (KUMO_OPS_ROOM), Kumo posts concise
// human-readable summaries of provisioning events to that room so operators
// can monitor fleet activity without tailing the SQLite audit log.
//
// All events include the originating trace ID so operators can correlate a
// notice with the full audit log entry.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nubelab/kumo/common/trace"
)

// Kind is a machine-readable event category.
type Kind string

const (
	KindServerCreated   Kind = "server.created"
	KindServerRecreated Kind = "server.recreated"
	KindServerDeleted   Kind = "server.deleted"
	KindError           Kind = "error"
)

// Event carries the data that the ops notifier formats and sends.
type Event struct {
	// Kind identifies the type of event.
	Kind Kind
	// Actor is the Matrix user ID that triggered the event.
	Actor string
	// Target is the server name affected.
	Target string
	// Message is a human-friendly description of what happened.
	Message string
	// TraceID ties the notification back to the SQLite audit record.
	// When empty the value is taken from the context.
	TraceID string
	// Timestamp defaults to time.Now() when zero.
	Timestamp time.Time
}

// Notifier sends ops room notifications for provisioning events.
type Notifier interface {
	// Notify posts an event. Implementations MUST NOT block the caller for
	// longer than a short timeout; send failures should be logged, not
	// propagated.
	Notify(ctx context.Context, evt Event)
}

// Sender is the subset of the Matrix client needed by MatrixNotifier.
// Defined as an interface so the notifier can be unit-tested independently.
type Sender interface {
	SendNotice(roomID, message string) error
}

// MatrixNotifier posts formatted notices to a Matrix ops room.
type MatrixNotifier struct {
	sender Sender
	roomID string
}

// NewMatrixNotifier creates a MatrixNotifier that posts to roomID via sender.
func NewMatrixNotifier(sender Sender, roomID string) *MatrixNotifier {
	return &MatrixNotifier{sender: sender, roomID: roomID}
}

// Notify formats evt as a human-readable notice and posts it to the ops room.
// Errors are logged at WARN level; the caller is never blocked.
func (n *MatrixNotifier) Notify(ctx context.Context, evt Event) {
	if n.roomID == "" {
		return
	}

	tid := evt.TraceID
	if tid == "" {
		tid = trace.FromContext(ctx)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	icon := kindIcon(evt.Kind)
	msg := fmt.Sprintf("%s [%s] %s", icon, evt.Kind, evt.Message)
	if evt.Target != "" {
		msg = fmt.Sprintf("%s %s: %s", icon, evt.Target, evt.Message)
	}
	if tid != "" {
		msg = fmt.Sprintf("%s\n  trace: %s", msg, tid)
	}
	if evt.Actor != "" {
		msg = fmt.Sprintf("%s\n  actor: %s", msg, evt.Actor)
	}

	if err := n.sender.SendNotice(n.roomID, msg); err != nil {
		slog.Warn("ops notifier: failed to send room notice",
			"room", n.roomID, "kind", evt.Kind, "err", err)
	} else {
		slog.Debug("ops notifier: sent notice", "room", n.roomID, "kind", evt.Kind)
	}
}

// Noop is a no-op Notifier used when ops room notifications are disabled.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(_ context.Context, _ Event) {}

func kindIcon(k Kind) string {
	switch k {
	case KindServerCreated:
		return "🟢"
	case KindServerRecreated:
		return "🔄"
	case KindServerDeleted:
		return "🗑️"
	case KindError:
		return "🚨"
	default:
		return "ℹ️"
	}
}
