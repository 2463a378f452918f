// Package game implements the authoritative Pong simulation and the
// lifecycle manager for match instances.
package game

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Raspberrynani/ft-solocendence/internal/config"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// clampF constrains a float to [min, max].
func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Match is one authoritative Pong simulation. All mutable physics state is
// guarded by mu; the simulation goroutine and snapshot readers share it.
type Match struct {
	roomID       string
	targetRounds int
	isTournament bool
	cfg          config.GameConfig

	mu sync.Mutex

	// Ball
	ballX, ballY   float64
	ballVX, ballVY float64
	ballSpeed      float64

	// Paddles
	leftPaddleY  float64
	rightPaddleY float64

	// Players
	leftPlayer  session.ID
	rightPlayer session.ID

	// Scores and termination
	leftScore  int
	rightScore int
	running    bool
	winner     protocol.Side
	hasWinner  bool
	startedAt  time.Time

	rng  *rand.Rand
	done chan struct{}
	once sync.Once

	// endOnce guards per-match teardown accounting across the natural
	// game-over, abandonment and disposal paths.
	endOnce sync.Once

	// onGameOver fires once when a side reaches the winning score.
	onGameOver func(*Match)
}

// NewMatch creates a match for the given room. The ball starts at center
// with a random horizontal direction and a mild vertical component, as the
// clients expect for the pre-start render.
func NewMatch(roomID string, targetRounds int, cfg config.GameConfig, onGameOver func(*Match)) *Match {
	if targetRounds < 1 {
		targetRounds = cfg.DefaultRounds
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	m := &Match{
		roomID:       roomID,
		targetRounds: targetRounds,
		cfg:          cfg,
		rng:          rng,
		done:         make(chan struct{}),
		onGameOver:   onGameOver,
	}
	m.ballX = cfg.Arena.Width / 2
	m.ballY = cfg.Arena.Height / 2
	m.ballSpeed = cfg.Physics.BallSpeed
	dir := 1.0
	if rng.Float64() > 0.5 {
		dir = -1.0
	}
	m.ballVX = m.ballSpeed * dir
	m.ballVY = m.ballSpeed * (rng.Float64() - 0.5)
	m.leftPaddleY = (cfg.Arena.Height - cfg.Arena.PaddleHeight) / 2
	m.rightPaddleY = m.leftPaddleY
	return m
}

// RoomID returns the match's room identifier.
func (m *Match) RoomID() string { return m.roomID }

// Rounds returns the configured target rounds.
func (m *Match) Rounds() int { return m.targetRounds }

// SetTournament marks the match as part of a tournament.
func (m *Match) SetTournament(t bool) {
	m.mu.Lock()
	m.isTournament = t
	m.mu.Unlock()
}

// IsTournament reports whether the match belongs to a tournament.
func (m *Match) IsTournament() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isTournament
}

// winThreshold is the score that ends the game: ceil(targetRounds / 2).
func (m *Match) winThreshold() int {
	return (m.targetRounds + 1) / 2
}

// AddPlayer places a connection on the requested side, or the first free
// side when none is requested. Returns the assigned side, or "" if full.
func (m *Match) AddPlayer(id session.ID, side protocol.Side) protocol.Side {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case side == protocol.SideLeft && m.leftPlayer == "":
		m.leftPlayer = id
		return protocol.SideLeft
	case side == protocol.SideRight && m.rightPlayer == "":
		m.rightPlayer = id
		return protocol.SideRight
	case side == "" && m.leftPlayer == "":
		m.leftPlayer = id
		return protocol.SideLeft
	case side == "" && m.rightPlayer == "":
		m.rightPlayer = id
		return protocol.SideRight
	}
	return ""
}

// RemovePlayer clears the slot held by id. Returns true if a slot changed.
func (m *Match) RemovePlayer(id session.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch id {
	case m.leftPlayer:
		m.leftPlayer = ""
	case m.rightPlayer:
		m.rightPlayer = ""
	default:
		return false
	}
	return true
}

// Players returns the current slot holders.
func (m *Match) Players() (left, right session.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leftPlayer, m.rightPlayer
}

// SideOf returns the side a connection occupies, or "".
func (m *Match) SideOf(id session.ID) protocol.Side {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch id {
	case m.leftPlayer:
		return protocol.SideLeft
	case m.rightPlayer:
		return protocol.SideRight
	}
	return ""
}

// Empty reports whether both slots are vacant.
func (m *Match) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leftPlayer == "" && m.rightPlayer == ""
}

// UpdatePaddle sets the sender's paddle target. Positions are clamped to
// the arena; input from a connection that owns no slot is ignored.
func (m *Match) UpdatePaddle(id session.ID, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	y = clampF(y, 0, m.cfg.Arena.Height-m.cfg.Arena.PaddleHeight)
	switch id {
	case m.leftPlayer:
		m.leftPaddleY = y
	case m.rightPlayer:
		m.rightPaddleY = y
	}
}

// Running reports whether the simulation loop is live.
func (m *Match) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Winner returns the winning side once the match has ended.
func (m *Match) Winner() (protocol.Side, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner, m.hasWinner
}

// Scores returns the current score pair.
func (m *Match) Scores() (left, right int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leftScore, m.rightScore
}

// StartedAt returns the start timestamp, zero before Start.
func (m *Match) StartedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// Start begins the simulation. It requires both slots occupied and is a
// no-op on a running or ended match. The caller delivers snapshots by
// letting Run address the two slot sessions through the registry.
func (m *Match) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.hasWinner {
		return false
	}
	if m.leftPlayer == "" || m.rightPlayer == "" {
		return false
	}
	m.running = true
	m.startedAt = time.Now()
	return true
}

// Stop halts the loop without declaring a winner. Safe to call repeatedly.
func (m *Match) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.once.Do(func() { close(m.done) })
}

// Done closes when the simulation loop has fully exited.
func (m *Match) Done() <-chan struct{} { return m.done }

// Run drives the fixed-step loop at the configured tick rate, emitting one
// snapshot per tick to both players. It returns when the match ends, a slot
// empties, or Stop is called. Run must be invoked on its own goroutine.
func (m *Match) Run(sessions *session.Registry) {
	tickRate := m.cfg.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	frame := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	defer m.once.Do(func() { close(m.done) })

	last := time.Now()
	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now

			over, abandoned := m.step(delta, frame)
			if abandoned {
				return
			}

			snap := m.Snapshot()
			left, right := m.Players()
			if s, ok := sessions.Get(left); ok {
				s.SendSnapshot(protocol.GameStateUpdate{Type: protocol.TypeGameStateUpdate, State: snap})
			}
			if s, ok := sessions.Get(right); ok {
				s.SendSnapshot(protocol.GameStateUpdate{Type: protocol.TypeGameStateUpdate, State: snap})
			}

			if over {
				if m.onGameOver != nil {
					m.onGameOver(m)
				}
				return
			}
		}
	}
}

// step advances the simulation by delta. Returns over=true when a side just
// reached the winning score, abandoned=true when the loop should exit
// without a result.
func (m *Match) step(delta, frame time.Duration) (over, abandoned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return m.hasWinner, !m.hasWinner
	}
	if m.leftPlayer == "" || m.rightPlayer == "" {
		m.running = false
		return false, true
	}

	// Scale by the nominal frame duration so simulation speed is
	// frame-rate-robust.
	f := delta.Seconds() / frame.Seconds()

	m.ballX += m.ballVX * f
	m.ballY += m.ballVY * f

	// Top/bottom walls.
	r := m.cfg.Arena.BallRadius
	if m.ballY-r < 0 || m.ballY+r > m.cfg.Arena.Height {
		m.ballVY = -m.ballVY
		if m.ballY-r < 0 {
			m.ballY = r
		} else {
			m.ballY = m.cfg.Arena.Height - r
		}
	}

	// Scoring edges.
	if m.ballX-r < 0 {
		m.rightScore++
		m.checkGameOver()
		m.resetBall()
	} else if m.ballX+r > m.cfg.Arena.Width {
		m.leftScore++
		m.checkGameOver()
		m.resetBall()
	}

	m.checkPaddleCollisions()

	return m.hasWinner, false
}

// resetBall recenters the ball with a random angle in [-π/4, π/4], headed
// toward the player who just conceded.
func (m *Match) resetBall() {
	m.ballX = m.cfg.Arena.Width / 2
	m.ballY = m.cfg.Arena.Height / 2
	angle := (m.rng.Float64()*2 - 1) * math.Pi / 4
	dir := 1.0
	if m.ballVX < 0 {
		dir = -1.0
	}
	m.ballVX = m.ballSpeed * math.Cos(angle) * dir
	m.ballVY = m.ballSpeed * math.Sin(angle)
}

func (m *Match) checkPaddleCollisions() {
	a := m.cfg.Arena
	r := a.BallRadius

	if m.ballX-r < a.PaddleWidth &&
		m.ballY > m.leftPaddleY && m.ballY < m.leftPaddleY+a.PaddleHeight {
		hit := (m.ballY - (m.leftPaddleY + a.PaddleHeight/2)) / (a.PaddleHeight / 2)
		angle := hit * math.Pi / 4
		m.ballSpeed += m.cfg.Physics.SpeedIncrement
		m.ballVX = math.Abs(m.ballSpeed * math.Cos(angle))
		m.ballVY = m.ballSpeed * math.Sin(angle)
		// One radius past the paddle face so the next tick cannot
		// re-collide.
		m.ballX = a.PaddleWidth + r
	} else if m.ballX+r > a.Width-a.PaddleWidth &&
		m.ballY > m.rightPaddleY && m.ballY < m.rightPaddleY+a.PaddleHeight {
		hit := (m.ballY - (m.rightPaddleY + a.PaddleHeight/2)) / (a.PaddleHeight / 2)
		angle := hit * math.Pi / 4
		m.ballSpeed += m.cfg.Physics.SpeedIncrement
		m.ballVX = -math.Abs(m.ballSpeed * math.Cos(angle))
		m.ballVY = m.ballSpeed * math.Sin(angle)
		m.ballX = a.Width - a.PaddleWidth - r
	}
}

func (m *Match) checkGameOver() {
	switch {
	case m.leftScore >= m.winThreshold():
		m.winner = protocol.SideLeft
	case m.rightScore >= m.winThreshold():
		m.winner = protocol.SideRight
	default:
		return
	}
	m.hasWinner = true
	m.running = false
}

// Snapshot returns the current state in the wire shape.
func (m *Match) Snapshot() protocol.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.cfg.Arena
	return protocol.Snapshot{
		Ball: protocol.Ball{X: m.ballX, Y: m.ballY, Radius: a.BallRadius},
		Paddles: protocol.Paddles{
			Left:  protocol.Paddle{Y: m.leftPaddleY, Width: a.PaddleWidth, Height: a.PaddleHeight},
			Right: protocol.Paddle{Y: m.rightPaddleY, Width: a.PaddleWidth, Height: a.PaddleHeight},
		},
		Score:      protocol.Score{Left: m.leftScore, Right: m.rightScore},
		Dimensions: protocol.Dimensions{Width: a.Width, Height: a.Height},
	}
}
