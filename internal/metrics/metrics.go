// Package metrics exposes the server's Prometheus collectors. Purely
// observational; no component reads these back.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GameStarted counts matches started, labelled by mode
	// (classic or tournament).
	GameStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_game_started_total",
		Help: "Number of Pong games started",
	}, []string{"mode"})

	// GameCompleted counts matches that finished with a winner.
	GameCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_game_completed_total",
		Help: "Number of Pong games completed",
	}, []string{"mode"})

	// GameDuration observes match durations in seconds.
	GameDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pong_game_duration_seconds",
		Help:    "Duration of Pong games in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 1800},
	}, []string{"mode"})

	// TournamentCreated counts tournaments created.
	TournamentCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_tournament_created_total",
		Help: "Number of tournaments created",
	})

	// TournamentPlayers observes entrant counts per tournament.
	TournamentPlayers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pong_tournament_players",
		Help:    "Number of players per tournament",
		Buckets: []float64{2, 3, 4, 8, 16, 32},
	})

	// ActivePlayers gauges players currently in a match.
	ActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_active_players",
		Help: "Number of players currently active",
	})

	// WaitingPlayers gauges players in the matchmaking queue.
	WaitingPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_waiting_players",
		Help: "Number of players currently waiting for a game",
	})

	// Connections gauges open WebSocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// Messages counts inbound frames by type.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_websocket_messages_total",
		Help: "Number of WebSocket messages processed",
	}, []string{"message_type"})
)
