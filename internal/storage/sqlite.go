// Package storage provides SQLite-based persistence for player statistics.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrNotFound is returned when a player does not exist.
var ErrNotFound = errors.New("storage: player not found")

// Store manages the SQLite database connection for player statistics.
type Store struct {
	db *sql.DB
}

// Player is one persisted player record.
type Player struct {
	Name        string
	Wins        int
	GamesPlayed int
	CreatedAt   time.Time
}

// WinRatio returns the player's win percentage.
func (p Player) WinRatio() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed) * 100
}

// RankClass buckets the player by win ratio. Players with fewer than five
// games are unranked.
func (p Player) RankClass() string {
	switch {
	case p.GamesPlayed < 5:
		return "unranked"
	case p.WinRatio() >= 70:
		return "gold"
	case p.WinRatio() >= 50:
		return "silver"
	default:
		return "bronze"
	}
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS players (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			wins INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_players_wins ON players(wins DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordResult upserts one player's match outcome: games_played always
// increments, wins only on a win. Implements the engine's stats sink.
func (s *Store) RecordResult(nickname string, won bool, totalRounds int) error {
	if nickname == "" {
		return fmt.Errorf("storage: empty nickname")
	}
	winInc := 0
	if won {
		winInc = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO players (name, wins, games_played) VALUES (?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			wins = wins + excluded.wins,
			games_played = games_played + 1
	`, nickname, winInc)
	if err != nil {
		return fmt.Errorf("storage: cannot record result for %s: %w", nickname, err)
	}
	return nil
}

// TopPlayers returns up to limit players ordered by wins descending.
func (s *Store) TopPlayers(limit int) ([]Player, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT name, wins, games_played, created_at
		FROM players ORDER BY wins DESC, name ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.Name, &p.Wins, &p.GamesPlayed, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// GetPlayer returns one player by name, or ErrNotFound.
func (s *Store) GetPlayer(name string) (Player, error) {
	var p Player
	err := s.db.QueryRow(`
		SELECT name, wins, games_played, created_at FROM players WHERE name = ?
	`, name).Scan(&p.Name, &p.Wins, &p.GamesPlayed, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("storage: cannot load player %s: %w", name, err)
	}
	return p, nil
}

// Exists reports whether a player record exists.
func (s *Store) Exists(name string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM players WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: cannot check player %s: %w", name, err)
	}
	return true, nil
}

// DeletePlayer removes a player record. Deleting a missing player returns
// ErrNotFound.
func (s *Store) DeletePlayer(name string) error {
	res, err := s.db.Exec(`DELETE FROM players WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("storage: cannot delete player %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot delete player %s: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
