package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nubelab/kumo/common/environment"
	"github.com/nubelab/kumo/common/version"
	"github.com/nubelab/kumo/internal/kumo/app"
	"github.com/nubelab/kumo/internal/kumo/matrix"
)

func main() {
	fmt.Printf("Kumo Provisioning Bot %s\n\n", version.Info())

	setupLogging()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kumo, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Kumo: %v\n", err)
		os.Exit(1)
	}
	defer kumo.Stop()

	if err := kumo.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Kumo: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from environment variables
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}
	adminRooms := environment.StringSliceOr("MATRIX_ADMIN_ROOMS", nil)
	if len(adminRooms) == 0 {
		return nil, fmt.Errorf("MATRIX_ADMIN_ROOMS is required")
	}

	return &app.Config{
		ConfigPath:   environment.StringOr("KUMO_CONFIG", "./kumo.yaml"),
		DatabasePath: environment.StringOr("DATABASE_PATH", "./kumo.db"),
		Matrix: matrix.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			AdminRooms:  adminRooms,
		},
		DockerNetwork: environment.StringOr("KUMO_DOCKER_NETWORK", ""),
		AdminSenders:  environment.StringSliceOr("KUMO_ADMIN_SENDERS", nil),
		OpsRoomID:     environment.StringOr("KUMO_OPS_ROOM", ""),
	}, nil
}

// setupLogging configures the process-wide slog default.
func setupLogging() {
	level := slog.LevelInfo
	switch environment.StringOr("KUMO_LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
