// Package app wires the Kumo subsystems together: configuration, the SQLite
// store, the Matrix transport, the Docker-backed inventory, and the command
// handlers.
package app

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"maunium.net/go/mautrix/event"

	"github.com/nubelab/kumo/internal/kumo/audit"
	"github.com/nubelab/kumo/internal/kumo/commands"
	kumoconfig "github.com/nubelab/kumo/internal/kumo/config"
	"github.com/nubelab/kumo/internal/kumo/inventory/docker"
	"github.com/nubelab/kumo/internal/kumo/matrix"
	"github.com/nubelab/kumo/internal/kumo/store"
)

// Config holds application configuration
type Config struct {
	// ConfigPath is the YAML file with the provisioning defaults.
	ConfigPath string
	// DatabasePath is the SQLite database for the audit log and sync state.
	DatabasePath string
	Matrix       matrix.Config
	// DockerNetwork is the bridge network servers are attached to.
	DockerNetwork string
	// AdminSenders is an optional allowlist of Matrix user IDs permitted to
	// run commands. When empty, any member of an admin room can.
	AdminSenders []string
	// OpsRoomID is an optional Matrix room where Kumo posts summaries of
	// provisioning events. Empty disables the notifier.
	OpsRoomID string
}

// App is the main Kumo application
type App struct {
	config   *Config
	kumoCfg  *kumoconfig.Config
	store    *store.Store
	matrix   *matrix.Client
	handlers *commands.Handlers
	notifier audit.Notifier
}

// New creates a new Kumo application
func New(config *Config) (*App, error) {
	slog.Info("loading configuration", "path", config.ConfigPath)
	kumoCfg, err := kumoconfig.Load(config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Inject the DB so the client can persist the sync token across restarts.
	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
	}

	network := config.DockerNetwork
	if network == "" {
		network = kumoCfg.CreateServerDefaults.Network
	}
	adapter, err := docker.New(docker.Options{
		Network:    network,
		MaxServers: kumoCfg.MaxServers,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize inventory backend: %w", err)
	}
	if err := adapter.EnsureNetwork(context.Background()); err != nil {
		slog.Warn("could not ensure server network; provisioning may fail", "network", network, "err", err)
	}

	var notifier audit.Notifier = audit.Noop{}
	if config.OpsRoomID != "" {
		notifier = audit.NewMatrixNotifier(matrixClient, config.OpsRoomID)
		slog.Info("ops room notifier ready", "room", config.OpsRoomID)
	}

	handlers, err := commands.New(adapter, kumoCfg, st, notifier, matrixClient, config.Matrix.UserID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize command handlers: %w", err)
	}
	handlers.RedactValues(config.Matrix.AccessToken)

	return &App{
		config:   config,
		kumoCfg:  kumoCfg,
		store:    st,
		matrix:   matrixClient,
		handlers: handlers,
		notifier: notifier,
	}, nil
}

// Run starts the Kumo application
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	for _, roomID := range a.config.Matrix.AdminRooms {
		a.matrix.SendNotice(roomID, "✅ Kumo is up. Try: create <name>, delete <name>, list")
	}

	slog.Info("Kumo is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop stops the Kumo application
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	slog.Info("closing database")
	a.store.Close()
}

// handleMessage processes incoming Matrix messages
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msgContent := evt.Content.AsMessage()
	if msgContent == nil {
		return
	}

	// Enforce sender allowlist when configured
	if len(a.config.AdminSenders) > 0 {
		sender := evt.Sender.String()
		allowed := false
		for _, s := range a.config.AdminSenders {
			if s == sender {
				allowed = true
				break
			}
		}
		if !allowed {
			return
		}
	}

	msg := commands.Message{
		Text:    msgContent.Body,
		Room:    evt.RoomID.String(),
		EventID: evt.ID.String(),
		Sender:  evt.Sender.String(),
	}

	matched, err := a.handlers.Dispatch(ctx, msg, &matrixResponder{client: a.matrix})
	if !matched {
		// Ordinary chat message, not ours to answer.
		return
	}
	if err != nil {
		slog.Error("command failed", "room", msg.Room, "sender", msg.Sender, "err", err)
		notifyCommandError(ctx, a.notifier, msg.Sender, err)
		if rerr := a.matrix.ReplyToMessage(msg.Room, msg.EventID, fmt.Sprintf("❌ Error: %s", err)); rerr != nil {
			slog.Error("failed to send error reply", "room", msg.Room, "err", rerr)
		}
	}
}

// notifyCommandError posts a command failure to the ops room.
func notifyCommandError(ctx context.Context, n audit.Notifier, sender string, cmdErr error) {
	n.Notify(ctx, audit.Event{
		Kind:    audit.KindError,
		Actor:   sender,
		Message: cmdErr.Error(),
	})
}

// matrixResponder delivers handler output as Matrix messages. Attachment
// lists are rendered as an HTML body with a colored status dot per server,
// with a plain-text fallback for clients that ignore HTML.
type matrixResponder struct {
	client *matrix.Client
}

func (r *matrixResponder) Reply(msg commands.Message, text string) error {
	return r.client.ReplyToMessage(msg.Room, msg.EventID, text)
}

func (r *matrixResponder) ReplyList(msg commands.Message, text string, attachments []commands.Attachment) error {
	if len(attachments) == 0 {
		return r.client.ReplyToMessage(msg.Room, msg.EventID, text)
	}

	var htmlBody, plain strings.Builder
	htmlBody.WriteString(html.EscapeString(text))
	plain.WriteString(text)

	for _, att := range attachments {
		htmlBody.WriteString("<br/><br/>")
		plain.WriteString("\n\n")

		htmlBody.WriteString(fmt.Sprintf(`<font color=%q>●</font> `, att.Color))
		if att.TitleLink != "" {
			htmlBody.WriteString(fmt.Sprintf(`<a href=%q><strong>%s</strong></a>`,
				att.TitleLink, html.EscapeString(att.Title)))
		} else {
			htmlBody.WriteString(fmt.Sprintf("<strong>%s</strong>", html.EscapeString(att.Title)))
		}
		plain.WriteString(att.Title)

		for _, f := range att.Fields {
			htmlBody.WriteString(fmt.Sprintf("<br/>&nbsp;&nbsp;%s: %s",
				html.EscapeString(f.Title), html.EscapeString(f.Value)))
			plain.WriteString(fmt.Sprintf("\n  %s: %s", f.Title, f.Value))
		}
	}

	return r.client.SendFormattedMessage(msg.Room, htmlBody.String(), plain.String())
}
