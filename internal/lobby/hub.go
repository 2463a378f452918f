package lobby

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Raspberrynani/ft-solocendence/internal/game"
	"github.com/Raspberrynani/ft-solocendence/internal/metrics"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
	"github.com/Raspberrynani/ft-solocendence/internal/tournament"
)

// Hub ties the connected-client set to the matchmaking queue, the game
// manager and the tournament director, and fans lobby views out to every
// subscriber.
type Hub struct {
	sessions *session.Registry
	queue    *Queue
	games    *game.Manager
	director *tournament.Director
	logger   *log.Logger
}

// NewHub wires the hub and registers it as the director's lobby notifier.
func NewHub(sessions *session.Registry, queue *Queue, games *game.Manager, director *tournament.Director, logger *log.Logger) *Hub {
	h := &Hub{
		sessions: sessions,
		queue:    queue,
		games:    games,
		director: director,
		logger:   logger,
	}
	director.SetLobbyNotifier(h.BroadcastTournamentList)
	return h
}

// HandleConnect registers a new connection and sends it the initial lobby
// snapshot: current waiting list and tournament list.
func (h *Hub) HandleConnect(s session.Session) {
	h.sessions.Register(s)
	metrics.Connections.Inc()
	h.logger.Info("client connected", "conn", s.ID())

	s.Send(protocol.WaitingList{Type: protocol.TypeWaitingList, WaitingList: h.queue.WaitingList()})
	s.Send(protocol.TournamentList{Type: protocol.TypeTournamentList, Tournaments: h.director.List()})
}

// HandleDisconnect cascades cleanup of a closed connection: queue entry,
// match slot (notifying the opponent), tournament membership.
func (h *Hub) HandleDisconnect(s session.Session) {
	id := s.ID()
	metrics.Connections.Dec()
	h.logger.Info("client disconnected", "conn", id)

	if h.queue.Leave(id) {
		h.BroadcastWaitingList()
	}

	// Leave the match before the director advances the bracket: a forfeit
	// can start the opponent's next match, and their old slot must be
	// vacated first.
	opponent, hadMatch := h.games.Opponent(id)
	h.games.Detach(id)
	if hadMatch {
		if os, found := h.sessions.Get(opponent); found {
			os.Send(protocol.NewNotice(protocol.TypeOpponentLeft, "Your opponent has disconnected."))
		}
		h.games.Detach(opponent)
	}

	h.director.Disconnect(id)

	if hadMatch && !h.director.InTournament(opponent) {
		h.sessions.SetState(opponent, session.StateIdle)
	}

	h.sessions.Unregister(id)
}

// JoinQueue enters the caller into matchmaking, pairing immediately when a
// waiter with the same round count exists. The caller always takes the
// RIGHT side; the prior waiter takes LEFT.
func (h *Hub) JoinQueue(s session.Session, nickname, token string, rounds int) {
	id := s.ID()
	h.sessions.SetNickname(id, nickname)

	waiter, paired := h.queue.Join(QueueEntry{Conn: id, Nickname: nickname, Token: token, Rounds: rounds})
	if !paired {
		h.sessions.SetState(id, session.StateQueued)
		s.Send(protocol.NewNotice(protocol.TypeQueueUpdate,
			fmt.Sprintf("Waiting for a player... (Round amount: %d)", rounds)))
		h.BroadcastWaitingList()
		h.logger.Info("queued", "conn", id, "nickname", nickname, "rounds", rounds)
		return
	}

	room := "game_" + uuid.NewString()
	h.games.Create(room, rounds)
	h.games.Attach(room, waiter.Conn, protocol.SideLeft)
	h.games.Attach(room, id, protocol.SideRight)
	h.sessions.SetState(waiter.Conn, session.StateInMatch)
	h.sessions.SetState(id, session.StateInMatch)

	h.games.Start(room)

	message := fmt.Sprintf("Game starting between %s and %s", waiter.Nickname, nickname)
	if ws, ok := h.sessions.Get(waiter.Conn); ok {
		ws.Send(protocol.StartGame{
			Type:       protocol.TypeStartGame,
			Message:    message,
			Room:       room,
			Rounds:     rounds,
			PlayerSide: protocol.SideLeft,
		})
	}
	s.Send(protocol.StartGame{
		Type:       protocol.TypeStartGame,
		Message:    message,
		Room:       room,
		Rounds:     rounds,
		PlayerSide: protocol.SideRight,
	})

	h.logger.Info("paired", "room", room, "left", waiter.Nickname, "right", nickname, "rounds", rounds)
	h.BroadcastWaitingList()
}

// LeaveQueue cancels the caller's queue entry.
func (h *Hub) LeaveQueue(s session.Session) {
	if h.queue.Leave(s.ID()) {
		h.sessions.SetState(s.ID(), session.StateIdle)
	}
	s.Send(protocol.NewNotice(protocol.TypeQueueUpdate, "You have left the queue"))
	h.BroadcastWaitingList()
}

// SendState replies with the full lobby snapshot and, when the caller is in
// a tournament or a match, that state as well. Side-effect-free.
func (h *Hub) SendState(s session.Session) {
	s.Send(protocol.WaitingList{Type: protocol.TypeWaitingList, WaitingList: h.queue.WaitingList()})
	s.Send(protocol.TournamentList{Type: protocol.TypeTournamentList, Tournaments: h.director.List()})

	if state, ok := h.director.StateFor(s.ID()); ok {
		s.Send(protocol.TournamentEnvelope{Type: protocol.TypeTournamentUpdate, Tournament: state})
	}

	if m, ok := h.games.MatchFor(s.ID()); ok {
		s.Send(protocol.GameStateUpdate{Type: protocol.TypeGameStateUpdate, State: m.Snapshot()})
	}
}

// BroadcastWaitingList fans the waiting list out to every connected client.
// Best-effort: a failing subscriber is closed by its own write pump.
func (h *Hub) BroadcastWaitingList() {
	frame := protocol.WaitingList{Type: protocol.TypeWaitingList, WaitingList: h.queue.WaitingList()}
	for _, s := range h.sessions.All() {
		s.Send(frame)
	}
}

// BroadcastTournamentList fans the tournament list out to every connected
// client.
func (h *Hub) BroadcastTournamentList() {
	frame := protocol.TournamentList{Type: protocol.TypeTournamentList, Tournaments: h.director.List()}
	for _, s := range h.sessions.All() {
		s.Send(frame)
	}
}
