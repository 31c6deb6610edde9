package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xueke/download-client/internal/api"
	"github.com/xueke/download-client/internal/config"
	"github.com/xueke/download-client/internal/session"
	"github.com/xueke/download-client/internal/store"
	"github.com/xueke/download-client/internal/tui"
)

func main() {
	configFlag := flag.String("config", "client_config.json", "Path to config file")
	serverFlag := flag.String("server", "", "Server URL (overrides config)")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		settings.Server.URL = *serverFlag
	}

	configPath := *configFlag
	sess := session.New(session.Options{
		Gateway:      api.NewClient(settings.Server.URL, settings.Timeout()),
		Settings:     settings,
		SaveSettings: func(s *config.Settings) error { return s.Save(configPath) },
		Pending:      store.NewPendingStore("pending_tasks.json"),
		History:      store.NewHistoryStore("download_history.json"),
		DeviceID:     store.DeviceID("device_id.txt"),
		// The terminal belongs to the TUI.
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer sess.Disconnect()

	if err := tui.Run(sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
