// Package config provides YAML-based configuration loading for the
// Solocendence server with environment-variable overrides for deployment
// settings.
package config

// Config is the root configuration for the server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Game       GameConfig       `yaml:"game"`
	Tournament TournamentConfig `yaml:"tournament"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig holds network and TLS settings.
type ServerConfig struct {
	// Addr is the host:port to listen on (e.g., ":8443").
	Addr string `yaml:"addr"`

	// TLSCert and TLSKey are paths to the certificate and key files.
	// When both are set the server listens with TLS.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	// WriteBuffer is the per-connection outbound queue size in frames.
	WriteBuffer int `yaml:"write_buffer"`

	// WriteTimeout bounds a single frame write to a client.
	WriteTimeout Duration `yaml:"write_timeout"`
}

// GameConfig holds the Pong simulation parameters.
type GameConfig struct {
	Arena    ArenaConfig   `yaml:"arena"`
	Physics  PhysicsConfig `yaml:"physics"`
	TickRate int           `yaml:"tick_rate"`

	// DefaultRounds is used when a join request carries no round count.
	DefaultRounds int `yaml:"default_rounds"`

	// DisposeGrace is how long an ended match stays resolvable so a late
	// state request can still be served.
	DisposeGrace Duration `yaml:"dispose_grace"`
}

// ArenaConfig defines the play field geometry.
type ArenaConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleHeight float64 `yaml:"paddle_height"`
	BallRadius   float64 `yaml:"ball_radius"`
}

// PhysicsConfig defines ball and paddle movement parameters.
type PhysicsConfig struct {
	BallSpeed float64 `yaml:"ball_speed"`

	// SpeedIncrement is added to the ball speed on every paddle hit.
	SpeedIncrement float64 `yaml:"speed_increment"`

	// PaddleSpeed is advisory only; clients send absolute positions.
	PaddleSpeed float64 `yaml:"paddle_speed"`
}

// TournamentConfig holds tournament defaults.
type TournamentConfig struct {
	// DefaultRounds per constituent match when the creator sets none.
	DefaultRounds int `yaml:"default_rounds"`

	// AdvanceDelay is the pause between a recorded result and the next
	// match selection, so clients can consume the result first.
	AdvanceDelay Duration `yaml:"advance_delay"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database path for player statistics.
	DBPath string `yaml:"db_path"`

	// LeaderboardSize caps GET /entries results.
	LeaderboardSize int `yaml:"leaderboard_size"`
}
