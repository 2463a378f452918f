package game

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Raspberrynani/ft-solocendence/internal/config"
	"github.com/Raspberrynani/ft-solocendence/internal/metrics"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// StatsSink records one player's result when a match ends. Implementations
// must be safe for concurrent use; recording is best-effort and never blocks
// match teardown.
type StatsSink interface {
	RecordResult(nickname string, won bool, totalRounds int) error
}

// Manager owns the collection of matches keyed by room id and the reverse
// map connection -> room.
type Manager struct {
	cfg      config.GameConfig
	sessions *session.Registry
	sink     StatsSink
	logger   *log.Logger

	mu         sync.Mutex
	matches    map[string]*Match
	playerRoom map[session.ID]string

	// onTournamentOver is invoked with the winning connection when a
	// tournament match ends. Set once during wiring.
	onTournamentOver func(winner session.ID)
}

// NewManager creates an empty match manager.
func NewManager(cfg config.GameConfig, sessions *session.Registry, sink StatsSink, logger *log.Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		sessions:   sessions,
		sink:       sink,
		logger:     logger,
		matches:    make(map[string]*Match),
		playerRoom: make(map[session.ID]string),
	}
}

// SetTournamentNotifier registers the callback for tournament match results.
func (g *Manager) SetTournamentNotifier(fn func(winner session.ID)) {
	g.mu.Lock()
	g.onTournamentOver = fn
	g.mu.Unlock()
}

// Create returns the match for room, creating it if needed. Idempotent on
// room id.
func (g *Manager) Create(room string, rounds int) *Match {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.matches[room]; ok {
		return m
	}
	m := NewMatch(room, rounds, g.cfg, g.handleGameOver)
	g.matches[room] = m
	g.logger.Info("game created", "room", room, "rounds", m.Rounds())
	return m
}

// Attach places a connection on the requested side of a room, or the first
// free side. Returns the assigned side, or "" when the room is unknown or
// full.
func (g *Manager) Attach(room string, id session.ID, side protocol.Side) protocol.Side {
	g.mu.Lock()
	m, ok := g.matches[room]
	g.mu.Unlock()
	if !ok {
		return ""
	}
	assigned := m.AddPlayer(id, side)
	if assigned != "" {
		g.mu.Lock()
		g.playerRoom[id] = room
		g.mu.Unlock()
	}
	return assigned
}

// Detach removes a connection from its match slot. When both slots are then
// empty the match is stopped and disposed. Returns the room the connection
// occupied and whether a slot changed.
func (g *Manager) Detach(id session.ID) (string, bool) {
	g.mu.Lock()
	room, ok := g.playerRoom[id]
	if !ok {
		g.mu.Unlock()
		return "", false
	}
	delete(g.playerRoom, id)
	m := g.matches[room]
	g.mu.Unlock()
	if m == nil {
		return room, false
	}
	if !m.RemovePlayer(id) {
		return room, false
	}
	if m.Empty() {
		m.Stop()
		g.releasePlayers(m)
		g.mu.Lock()
		delete(g.matches, room)
		g.mu.Unlock()
		g.logger.Info("game disposed", "room", room)
	}
	return room, true
}

// releasePlayers returns a started match's two players to the active-player
// gauge. Runs at most once per match, whichever teardown path gets there
// first.
func (g *Manager) releasePlayers(m *Match) {
	if m.StartedAt().IsZero() {
		return
	}
	m.endOnce.Do(func() {
		metrics.ActivePlayers.Sub(2)
	})
}

// SetPaddle forwards a paddle target to the sender's match, if any.
func (g *Manager) SetPaddle(id session.ID, y float64) {
	g.mu.Lock()
	room, ok := g.playerRoom[id]
	m := g.matches[room]
	g.mu.Unlock()
	if !ok || m == nil {
		return
	}
	m.UpdatePaddle(id, y)
}

// Start launches the simulation worker for room. Requires both slots.
func (g *Manager) Start(room string) bool {
	g.mu.Lock()
	m, ok := g.matches[room]
	g.mu.Unlock()
	if !ok || !m.Start() {
		return false
	}
	mode := "classic"
	if m.IsTournament() {
		mode = "tournament"
	}
	metrics.GameStarted.WithLabelValues(mode).Inc()
	metrics.ActivePlayers.Add(2)
	go m.Run(g.sessions)
	g.logger.Info("game started", "room", room, "mode", mode)
	return true
}

// Get returns the match for a room.
func (g *Manager) Get(room string) (*Match, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.matches[room]
	return m, ok
}

// MatchFor returns the match a connection currently occupies.
func (g *Manager) MatchFor(id session.ID) (*Match, bool) {
	g.mu.Lock()
	room, ok := g.playerRoom[id]
	m := g.matches[room]
	g.mu.Unlock()
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}

// RoomFor returns the room id a connection occupies.
func (g *Manager) RoomFor(id session.ID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.playerRoom[id]
	return room, ok
}

// Opponent returns the other occupant of id's match.
func (g *Manager) Opponent(id session.ID) (session.ID, bool) {
	m, ok := g.MatchFor(id)
	if !ok {
		return "", false
	}
	left, right := m.Players()
	switch id {
	case left:
		if right != "" {
			return right, true
		}
	case right:
		if left != "" {
			return left, true
		}
	}
	return "", false
}

// handleGameOver is the engine callback: deliver game_over to both slot
// players, persist results, notify the tournament observer, and schedule
// disposal after the grace window.
func (g *Manager) handleGameOver(m *Match) {
	winner, ok := m.Winner()
	if !ok {
		return
	}
	leftScore, rightScore := m.Scores()
	winnerScore := leftScore
	if winner == protocol.SideRight {
		winnerScore = rightScore
	}
	left, right := m.Players()

	mode := "classic"
	if m.IsTournament() {
		mode = "tournament"
	}
	metrics.GameCompleted.WithLabelValues(mode).Inc()
	g.releasePlayers(m)
	if started := m.StartedAt(); !started.IsZero() {
		metrics.GameDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	}

	frame := protocol.GameOver{Type: protocol.TypeGameOver, Score: winnerScore, Winner: winner}
	for _, id := range []session.ID{left, right} {
		if s, ok := g.sessions.Get(id); ok {
			s.Send(frame)
		}
	}

	g.recordStats(m, winner, left, right)

	// Both players leave the in-match state; for tournament matches the
	// director immediately moves them on to their tournament states.
	g.sessions.SetState(left, session.StateIdle)
	g.sessions.SetState(right, session.StateIdle)

	var winnerID session.ID
	if winner == protocol.SideLeft {
		winnerID = left
	} else {
		winnerID = right
	}

	g.mu.Lock()
	notify := g.onTournamentOver
	g.mu.Unlock()
	if m.IsTournament() && notify != nil && winnerID != "" {
		notify(winnerID)
	}

	g.logger.Info("game over", "room", m.RoomID(), "winner", winner,
		"score_left", leftScore, "score_right", rightScore)

	g.scheduleDisposal(m.RoomID())
}

func (g *Manager) recordStats(m *Match, winner protocol.Side, left, right session.ID) {
	if g.sink == nil {
		return
	}
	results := []struct {
		id  session.ID
		won bool
	}{
		{left, winner == protocol.SideLeft},
		{right, winner == protocol.SideRight},
	}
	for _, r := range results {
		nickname := g.sessions.Nickname(r.id)
		if nickname == "" {
			continue
		}
		if err := g.sink.RecordResult(nickname, r.won, m.Rounds()); err != nil {
			g.logger.Warn("failed to record result", "nickname", nickname, "error", err)
		}
	}
}

// scheduleDisposal removes an ended match after the grace period so a late
// state request can still be served.
func (g *Manager) scheduleDisposal(room string) {
	grace := g.cfg.DisposeGrace.Std()
	if grace <= 0 {
		grace = 5 * time.Second
	}
	time.AfterFunc(grace, func() {
		g.mu.Lock()
		m, ok := g.matches[room]
		if ok {
			delete(g.matches, room)
			left, right := session.ID(""), session.ID("")
			if m != nil {
				left, right = m.Players()
			}
			// Only clear mappings that still point at this room: a
			// tournament winner may already occupy their next match.
			if r, mapped := g.playerRoom[left]; left != "" && mapped && r == room {
				delete(g.playerRoom, left)
			}
			if r, mapped := g.playerRoom[right]; right != "" && mapped && r == room {
				delete(g.playerRoom, right)
			}
		}
		g.mu.Unlock()
		if ok {
			m.Stop()
			g.releasePlayers(m)
			g.logger.Debug("game disposed after grace period", "room", room)
		}
	})
}
