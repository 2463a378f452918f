// Package tournament implements single-elimination brackets of 4, 6 or 8
// players and the director that sequences their matches.
package tournament

import (
	"math"
	"math/rand"

	"github.com/samber/lo"

	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// NodeStatus is a bracket node's position in its lifecycle.
type NodeStatus int

const (
	NodePending NodeStatus = iota
	NodeActive
	NodeCompleted
)

// NextRef points at the bracket node a winner advances into.
type NextRef struct {
	Round    int
	Position int
}

// Node is one element of the elimination tree. Slots hold nicknames plus
// the owning connections; empty slots are "".
type Node struct {
	Round    int
	Position int

	Player1 string
	Player2 string
	Conn1   session.ID
	Conn2   session.ID

	Winner string
	Next   *NextRef
	Status NodeStatus
}

// ready reports whether both slots are occupied and no winner is recorded.
func (n *Node) ready() bool {
	return n.Player1 != "" && n.Player2 != "" &&
		n.Conn1 != "" && n.Conn2 != "" && n.Winner == ""
}

// contains reports whether the connection holds a slot of this node.
func (n *Node) contains(id session.ID) bool {
	return n.Conn1 == id || n.Conn2 == id
}

// Entrant is one registered player.
type Entrant struct {
	Conn     session.ID
	Nickname string
}

// Tournament is a single-elimination bracket. It is a plain state machine;
// the Director serializes all access.
type Tournament struct {
	ID      string
	Name    string
	Creator session.ID
	Size    int
	Rounds  int

	Players []Entrant
	Started bool
	Winner  string

	Matches []*Node
	Current *Node

	rng *rand.Rand
}

// New creates an empty tournament. Size must already be validated to be one
// of 4, 6, 8.
func New(id string, creator session.ID, name string, size, rounds int, rng *rand.Rand) *Tournament {
	return &Tournament{
		ID:      id,
		Name:    name,
		Creator: creator,
		Size:    size,
		Rounds:  rounds,
		rng:     rng,
	}
}

// AddPlayer registers an entrant. Rejected once started, on duplicate
// nickname or connection, and when full.
func (t *Tournament) AddPlayer(id session.ID, nickname string) bool {
	if t.Started {
		return false
	}
	for _, p := range t.Players {
		if p.Nickname == nickname || p.Conn == id {
			return false
		}
	}
	if len(t.Players) >= t.Size {
		return false
	}
	t.Players = append(t.Players, Entrant{Conn: id, Nickname: nickname})
	return true
}

// HasPlayer reports whether the connection is registered.
func (t *Tournament) HasPlayer(id session.ID) bool {
	for _, p := range t.Players {
		if p.Conn == id {
			return true
		}
	}
	return false
}

// RemovePlayer withdraws an entrant. Returns false when the connection is
// not registered. The caller handles forfeits for the active match.
func (t *Tournament) RemovePlayer(id session.ID) bool {
	idx := -1
	for i, p := range t.Players {
		if p.Conn == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	t.Players = append(t.Players[:idx], t.Players[idx+1:]...)
	return true
}

// Start shuffles the entrants, builds the bracket and selects the first
// match. Rejected once started or when the player count does not equal the
// declared size.
func (t *Tournament) Start() bool {
	if t.Started {
		return false
	}
	n := len(t.Players)
	if n != t.Size {
		return false
	}
	switch n {
	case 4, 6, 8:
	default:
		return false
	}

	t.Matches = nil
	t.Current = nil
	t.Winner = ""

	shuffled := make([]Entrant, n)
	copy(shuffled, t.Players)
	t.rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	t.buildBracket(shuffled)
	t.Started = true
	return t.Advance()
}

// buildBracket constructs the elimination tree. Depth is ceil(log2(n)).
// For n=6, two first-round byes are seeded straight into the first slots
// of the round-1 nodes; every first-round winner then fills the second
// slot and meets a bye.
func (t *Tournament) buildBracket(players []Entrant) {
	n := len(players)
	rounds := int(math.Ceil(math.Log2(float64(n))))
	finalRound := rounds - 1

	hasByes := n&(n-1) != 0
	firstRoundMatches := n / 2
	if hasByes {
		byes := (1 << rounds) - n
		firstRoundMatches = (n - byes) / 2
	}

	// Round 0: matches with assigned players.
	for pos := 0; pos < firstRoundMatches; pos++ {
		p1 := players[pos*2]
		p2 := players[pos*2+1]
		next := &NextRef{Round: 1, Position: pos / 2}
		if hasByes {
			// Each first-round winner advances to its own round-1
			// node, whose other slot is a bye.
			next = &NextRef{Round: 1, Position: pos}
		}
		t.Matches = append(t.Matches, &Node{
			Round: 0, Position: pos,
			Player1: p1.Nickname, Conn1: p1.Conn,
			Player2: p2.Nickname, Conn2: p2.Conn,
			Next: next,
		})
	}

	// Later rounds: empty nodes filled as winners propagate.
	for round := 1; round < rounds; round++ {
		matchesInRound := 1 << (rounds - round - 1)
		for pos := 0; pos < matchesInRound; pos++ {
			var next *NextRef
			if round < finalRound {
				next = &NextRef{Round: round + 1, Position: pos / 2}
			}
			t.Matches = append(t.Matches, &Node{
				Round: round, Position: pos,
				Next: next,
			})
		}
	}

	// Seed byes directly into round-1 slots.
	if hasByes {
		byePlayers := players[firstRoundMatches*2:]
		for i, p := range byePlayers {
			node := t.node(1, i)
			if node == nil {
				continue
			}
			if node.Player1 == "" {
				node.Player1 = p.Nickname
				node.Conn1 = p.Conn
			} else {
				node.Player2 = p.Nickname
				node.Conn2 = p.Conn
			}
		}
	}
}

// node finds a bracket node by coordinates.
func (t *Tournament) node(round, position int) *Node {
	for _, m := range t.Matches {
		if m.Round == round && m.Position == position {
			return m
		}
	}
	return nil
}

// findNext returns the earliest-round node with both slots filled and no
// winner, or nil.
func (t *Tournament) findNext() *Node {
	var best *Node
	for _, m := range t.Matches {
		if !m.ready() {
			continue
		}
		if best == nil || m.Round < best.Round {
			best = m
		}
	}
	return best
}

// Advance selects the next playable match. Returns true when a match became
// current. When nothing is selectable and the root has a winner the
// tournament winner is recorded.
func (t *Tournament) Advance() bool {
	if t.Current != nil {
		return false
	}
	next := t.findNext()
	if next == nil {
		if t.Winner == "" {
			for _, m := range t.Matches {
				if m.Next == nil && m.Winner != "" {
					t.Winner = m.Winner
					break
				}
			}
		}
		return false
	}
	t.Current = next
	next.Status = NodeActive
	return true
}

// Result reports a recorded match outcome.
type Result struct {
	Node       *Node
	Winner     string
	WinnerConn session.ID
	Loser      string
	LoserConn  session.ID
	Complete   bool
}

// RecordResult records the current match's winner by connection, propagates
// the winner into the next node's first empty slot, and clears the current
// match. Returns nil when there is no current match or the connection is
// not in it.
func (t *Tournament) RecordResult(winnerConn session.ID) *Result {
	cur := t.Current
	if cur == nil || !cur.contains(winnerConn) {
		return nil
	}

	res := &Result{Node: cur, WinnerConn: winnerConn}
	if winnerConn == cur.Conn1 {
		res.Winner, res.Loser, res.LoserConn = cur.Player1, cur.Player2, cur.Conn2
	} else {
		res.Winner, res.Loser, res.LoserConn = cur.Player2, cur.Player1, cur.Conn1
	}

	cur.Winner = res.Winner
	cur.Status = NodeCompleted

	if cur.Next != nil {
		next := t.node(cur.Next.Round, cur.Next.Position)
		if next != nil {
			if next.Player1 == "" {
				next.Player1 = res.Winner
				next.Conn1 = winnerConn
			} else {
				next.Player2 = res.Winner
				next.Conn2 = winnerConn
			}
		}
	} else {
		t.Winner = res.Winner
	}

	t.Current = nil
	res.Complete = t.Winner != ""
	return res
}

// State returns the client-facing tournament state.
func (t *Tournament) State() protocol.TournamentState {
	var current *protocol.CurrentMatch
	if t.Current != nil {
		current = &protocol.CurrentMatch{
			Player1: t.Current.Player1,
			Player2: t.Current.Player2,
		}
	}
	return protocol.TournamentState{
		ID:           t.ID,
		Name:         t.Name,
		Size:         t.Size,
		Players:      lo.Map(t.Players, func(p Entrant, _ int) string { return p.Nickname }),
		Started:      t.Started,
		CurrentMatch: current,
		Matches: lo.Map(t.Matches, func(m *Node, _ int) protocol.TournamentMatch {
			return protocol.TournamentMatch{
				Round:    m.Round,
				Position: m.Position,
				Player1:  m.Player1,
				Player2:  m.Player2,
				Winner:   m.Winner,
			}
		}),
		Winner: t.Winner,
	}
}

// Summary returns the lobby-list view of the tournament.
func (t *Tournament) Summary() protocol.TournamentItem {
	return protocol.TournamentItem{
		ID:      t.ID,
		Name:    t.Name,
		Players: len(t.Players),
		Size:    t.Size,
		Started: t.Started,
	}
}

// Listable reports whether the tournament still belongs in the lobby list:
// joinable, or started with an active match.
func (t *Tournament) Listable() bool {
	return !t.Started || t.Current != nil
}
