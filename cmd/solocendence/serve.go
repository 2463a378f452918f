package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Raspberrynani/ft-solocendence/internal/api"
	"github.com/Raspberrynani/ft-solocendence/internal/config"
)

var (
	flagAddr   string
	flagConfig string
	flagDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pong server",
	Long: `Start the WebSocket game server and HTTP side channel.

TLS handling:
  - If SOLOCENDENCE_TLS_CERT and SOLOCENDENCE_TLS_KEY are set (or the
    config file names a certificate pair), the server terminates TLS
  - Otherwise it listens on plain TCP

Examples:
  solocendence serve                      # Listen on :8443
  solocendence serve --addr :9000         # Listen on port 9000
  solocendence serve --db ./players.db    # Use specific database`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagConfig, "config", "", "Path to server.yaml")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "", "Path to player stats database (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
