package game

import (
	"math"
	"testing"
	"time"

	"github.com/Raspberrynani/ft-solocendence/internal/config"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
)

func testGameConfig() config.GameConfig {
	return config.Default().Game
}

func newTestMatch(t *testing.T, rounds int) *Match {
	t.Helper()
	m := NewMatch("room-test", rounds, testGameConfig(), nil)
	if side := m.AddPlayer("conn-left", protocol.SideLeft); side != protocol.SideLeft {
		t.Fatalf("AddPlayer(left) = %q, expected left", side)
	}
	if side := m.AddPlayer("conn-right", protocol.SideRight); side != protocol.SideRight {
		t.Fatalf("AddPlayer(right) = %q, expected right", side)
	}
	return m
}

const testFrame = time.Second / 60

func TestAddPlayerAssignsFirstFreeSide(t *testing.T) {
	m := NewMatch("room", 3, testGameConfig(), nil)

	if side := m.AddPlayer("a", ""); side != protocol.SideLeft {
		t.Errorf("first unspecified player got %q, expected left", side)
	}
	if side := m.AddPlayer("b", ""); side != protocol.SideRight {
		t.Errorf("second unspecified player got %q, expected right", side)
	}
	if side := m.AddPlayer("c", ""); side != "" {
		t.Errorf("third player got %q, expected no slot", side)
	}
}

func TestStartRequiresBothSlots(t *testing.T) {
	m := NewMatch("room", 3, testGameConfig(), nil)
	if m.Start() {
		t.Error("Start() succeeded with no players")
	}
	m.AddPlayer("a", protocol.SideLeft)
	if m.Start() {
		t.Error("Start() succeeded with one player")
	}
	m.AddPlayer("b", protocol.SideRight)
	if !m.Start() {
		t.Error("Start() failed with both slots occupied")
	}
	if m.Start() {
		t.Error("Start() succeeded twice")
	}
}

func TestPaddleInputClamped(t *testing.T) {
	cfg := testGameConfig()
	maxY := cfg.Arena.Height - cfg.Arena.PaddleHeight

	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"negative clamps to zero", -50, 0},
		{"zero is reachable", 0, 0},
		{"in range passes through", 120, 120},
		{"bottom edge is reachable", maxY, maxY},
		{"past bottom clamps", cfg.Arena.Height + 100, maxY},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMatch(t, 3)
			m.UpdatePaddle("conn-left", tc.input)
			snap := m.Snapshot()
			if snap.Paddles.Left.Y != tc.expected {
				t.Errorf("paddle y = %v, expected %v", snap.Paddles.Left.Y, tc.expected)
			}
		})
	}
}

func TestPaddleInputIgnoredForNonSlotOwner(t *testing.T) {
	m := newTestMatch(t, 3)
	before := m.Snapshot()
	m.UpdatePaddle("stranger", 42)
	after := m.Snapshot()
	if before.Paddles != after.Paddles {
		t.Error("paddle input from a non-slot connection changed state")
	}
}

func TestWallBounceFlipsVerticalVelocity(t *testing.T) {
	m := newTestMatch(t, 3)
	m.running = true
	m.ballX = 400
	m.ballY = 5 // inside the top wall given radius 10
	m.ballVX = 0
	m.ballVY = -3

	m.step(testFrame, testFrame)

	if m.ballVY <= 0 {
		t.Errorf("ballVY = %v after top wall, expected positive", m.ballVY)
	}
	if m.ballY < m.cfg.Arena.BallRadius {
		t.Errorf("ballY = %v, expected clamped to radius %v", m.ballY, m.cfg.Arena.BallRadius)
	}
}

func TestScoringResetsBallToCenter(t *testing.T) {
	m := newTestMatch(t, 99) // high target so the game keeps running
	m.running = true
	m.ballX = 3
	m.ballY = 200
	m.ballVX = -6
	m.ballVY = 0

	m.step(testFrame, testFrame)

	left, right := m.Scores()
	if right != 1 || left != 0 {
		t.Fatalf("scores = (%d,%d), expected right to score", left, right)
	}
	if m.ballX != m.cfg.Arena.Width/2 || m.ballY != m.cfg.Arena.Height/2 {
		t.Errorf("ball at (%v,%v) after score, expected center", m.ballX, m.ballY)
	}
	// The ball was travelling left, so the left player conceded and the
	// reset must head toward them.
	if m.ballVX >= 0 {
		t.Errorf("ballVX = %v after reset, expected toward conceding side (negative)", m.ballVX)
	}
	angle := math.Abs(math.Atan2(m.ballVY, math.Abs(m.ballVX)))
	if angle > math.Pi/4+1e-9 {
		t.Errorf("reset angle %v exceeds pi/4", angle)
	}
}

func TestPaddleCollisionSpeedsUpAndBouncesAway(t *testing.T) {
	m := newTestMatch(t, 3)
	m.running = true
	m.UpdatePaddle("conn-left", 150)
	m.ballX = m.cfg.Arena.PaddleWidth + m.cfg.Arena.BallRadius - 1
	m.ballY = 200 // paddle spans 150..250, center 200
	m.ballVX = -5
	m.ballVY = 0
	speedBefore := m.ballSpeed

	m.step(testFrame, testFrame)

	if m.ballVX <= 0 {
		t.Errorf("ballVX = %v after left paddle hit, expected positive", m.ballVX)
	}
	if m.ballSpeed != speedBefore+m.cfg.Physics.SpeedIncrement {
		t.Errorf("ballSpeed = %v, expected %v", m.ballSpeed, speedBefore+m.cfg.Physics.SpeedIncrement)
	}
	// Teleported one radius past the paddle face.
	if m.ballX != m.cfg.Arena.PaddleWidth+m.cfg.Arena.BallRadius {
		t.Errorf("ballX = %v, expected %v", m.ballX, m.cfg.Arena.PaddleWidth+m.cfg.Arena.BallRadius)
	}
	// Center hit: bounce angle ~0, so vy stays near zero.
	if math.Abs(m.ballVY) > 0.5 {
		t.Errorf("ballVY = %v after center hit, expected near zero", m.ballVY)
	}
}

func TestPaddleCollisionEdgeHitMaximizesAngle(t *testing.T) {
	m := newTestMatch(t, 3)
	m.running = true
	m.UpdatePaddle("conn-right", 150)
	m.ballX = m.cfg.Arena.Width - m.cfg.Arena.PaddleWidth - m.cfg.Arena.BallRadius + 1
	m.ballY = 249 // near the bottom edge of the 150..250 paddle
	m.ballVX = 5
	m.ballVY = 0

	m.step(testFrame, testFrame)

	if m.ballVX >= 0 {
		t.Errorf("ballVX = %v after right paddle hit, expected negative", m.ballVX)
	}
	if m.ballVY <= 0 {
		t.Errorf("ballVY = %v after low edge hit, expected positive (downward)", m.ballVY)
	}
}

func TestWinThreshold(t *testing.T) {
	tests := []struct {
		name         string
		targetRounds int
		expected     int
	}{
		{"target 1 first point wins", 1, 1},
		{"target 2 even", 2, 1},
		{"target 3", 3, 2},
		{"target 4 even", 4, 2},
		{"target 5", 5, 3},
		{"target 6 even", 6, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMatch("room", tc.targetRounds, testGameConfig(), nil)
			if got := m.winThreshold(); got != tc.expected {
				t.Errorf("winThreshold() = %d, expected %d", got, tc.expected)
			}
		})
	}
}

func TestWinEndsGameAndReportsWinner(t *testing.T) {
	var overCalls int
	m := NewMatch("room", 3, testGameConfig(), func(*Match) { overCalls++ })
	m.AddPlayer("a", protocol.SideLeft)
	m.AddPlayer("b", protocol.SideRight)
	m.running = true

	// Left needs 2 points with target 3.
	for i := 0; i < 2; i++ {
		m.ballX = m.cfg.Arena.Width - 3
		m.ballY = 10 // away from the right paddle (centered at start)
		m.ballVX = 6
		m.ballVY = 0
		m.step(testFrame, testFrame)
	}

	winner, ok := m.Winner()
	if !ok || winner != protocol.SideLeft {
		t.Fatalf("winner = (%q,%v), expected left", winner, ok)
	}
	if m.Running() {
		t.Error("match still running after win")
	}
	left, _ := m.Scores()
	if left != 2 {
		t.Errorf("left score = %d, expected 2", left)
	}
	if overCalls != 0 {
		// The callback fires from Run, not from step.
		t.Errorf("onGameOver called %d times by step", overCalls)
	}
}

func TestScoreMonotonicAndBallBounded(t *testing.T) {
	m := newTestMatch(t, 99)
	m.running = true

	prevLeft, prevRight := 0, 0
	r := m.cfg.Arena.BallRadius
	for i := 0; i < 2000; i++ {
		m.step(testFrame, testFrame)
		snap := m.Snapshot()
		if snap.Score.Left < prevLeft || snap.Score.Right < prevRight {
			t.Fatalf("score decreased at tick %d", i)
		}
		prevLeft, prevRight = snap.Score.Left, snap.Score.Right
		if snap.Ball.Y < r-1e-9 || snap.Ball.Y > m.cfg.Arena.Height-r+1e-9 {
			t.Fatalf("ball y = %v out of bounds at tick %d", snap.Ball.Y, i)
		}
	}
}

func TestStepScalesWithDelta(t *testing.T) {
	a := newTestMatch(t, 99)
	b := newTestMatch(t, 99)
	for _, m := range []*Match{a, b} {
		m.running = true
		m.ballX, m.ballY = 400, 225
		m.ballVX, m.ballVY = 3, 0
	}

	// One double-length frame must advance the same distance as two
	// nominal frames.
	a.step(2*testFrame, testFrame)
	b.step(testFrame, testFrame)
	b.step(testFrame, testFrame)

	if math.Abs(a.ballX-b.ballX) > 1e-6 {
		t.Errorf("delta scaling mismatch: %v vs %v", a.ballX, b.ballX)
	}
}

func TestRemovePlayerAbandonsSimulation(t *testing.T) {
	m := newTestMatch(t, 3)
	m.running = true
	m.RemovePlayer("conn-right")

	_, abandoned := m.step(testFrame, testFrame)
	if !abandoned {
		t.Error("step did not abandon after a slot emptied")
	}
	if m.Running() {
		t.Error("match still running after abandonment")
	}
	if _, ok := m.Winner(); ok {
		t.Error("abandoned match has a winner")
	}
}

func TestSnapshotShape(t *testing.T) {
	m := newTestMatch(t, 3)
	snap := m.Snapshot()

	if snap.Dimensions.Width != 800 || snap.Dimensions.Height != 450 {
		t.Errorf("dimensions = %+v, expected 800x450", snap.Dimensions)
	}
	if snap.Ball.Radius != 10 {
		t.Errorf("ball radius = %v, expected 10", snap.Ball.Radius)
	}
	if snap.Paddles.Left.Width != 15 || snap.Paddles.Left.Height != 100 {
		t.Errorf("paddle = %+v, expected 15x100", snap.Paddles.Left)
	}
	expectedY := (450.0 - 100.0) / 2
	if snap.Paddles.Left.Y != expectedY || snap.Paddles.Right.Y != expectedY {
		t.Errorf("initial paddles not centered: %+v", snap.Paddles)
	}
}
