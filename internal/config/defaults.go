package config

import (
	_ "embed"
	"time"
)

//go:embed server.yaml
var defaultServerYAML []byte

// Default returns the hard-coded configuration used when no YAML can be
// loaded at all.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8443",
			WriteBuffer:  64,
			WriteTimeout: Duration(10 * time.Second),
		},
		Game: GameConfig{
			Arena: ArenaConfig{
				Width:        800,
				Height:       450,
				PaddleWidth:  15,
				PaddleHeight: 100,
				BallRadius:   10,
			},
			Physics: PhysicsConfig{
				BallSpeed:      5,
				SpeedIncrement: 0.2,
				PaddleSpeed:    7,
			},
			TickRate:      60,
			DefaultRounds: 3,
			DisposeGrace:  Duration(5 * time.Second),
		},
		Tournament: TournamentConfig{
			DefaultRounds: 3,
			AdvanceDelay:  Duration(500 * time.Millisecond),
		},
		Storage: StorageConfig{
			DBPath:          "~/.solocendence/players.db",
			LeaderboardSize: 20,
		},
	}
}
