// solocendence is the realtime multiplayer Pong server: WebSocket lobby
// with matchmaking, authoritative per-match simulation, and 4/6/8 player
// single-elimination tournaments.
//
// Usage:
//
//	solocendence serve             - Start the server
//
// Flags:
//
//	--addr <host:port>   - Listen address (default: :8443)
//	--config <path>      - Path to server.yaml
//	--db <path>          - Path to the player stats database
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "solocendence",
	Short: "Solocendence - realtime multiplayer Pong server",
	Long: `Solocendence is an authoritative Pong game server.

Clients hold a persistent WebSocket with the server; the server simulates
every match, pairs players from a matchmaking queue, and runs
single-elimination tournaments of 4, 6 or 8 players.

Examples:
  solocendence serve
  solocendence serve --addr :9000
  solocendence serve --config ./configs/server.yaml`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
