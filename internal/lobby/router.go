package lobby

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/Raspberrynani/ft-solocendence/internal/game"
	"github.com/Raspberrynani/ft-solocendence/internal/metrics"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
	"github.com/Raspberrynani/ft-solocendence/internal/tournament"
)

// Router demultiplexes inbound frames to the lobby, game and tournament
// subsystems. Malformed JSON is logged and dropped; unknown types are
// dropped silently.
type Router struct {
	hub      *Hub
	games    *game.Manager
	director *tournament.Director
	logger   *log.Logger
}

// NewRouter creates a router over the wired subsystems.
func NewRouter(hub *Hub, games *game.Manager, director *tournament.Director, logger *log.Logger) *Router {
	return &Router{hub: hub, games: games, director: director, logger: logger}
}

// HandleConnect registers a freshly accepted connection.
func (r *Router) HandleConnect(s session.Session) {
	r.hub.HandleConnect(s)
}

// HandleDisconnect cascades cleanup for a closed connection.
func (r *Router) HandleDisconnect(s session.Session) {
	r.hub.HandleDisconnect(s)
}

// HandleFrame parses one inbound text frame and dispatches it by type.
func (r *Router) HandleFrame(s session.Session, data []byte) {
	var msg protocol.Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Error("invalid JSON received", "conn", s.ID(), "error", err)
		return
	}
	metrics.Messages.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case protocol.TypeJoin:
		r.hub.JoinQueue(s, msg.Nickname, msg.Token, msg.Rounds)

	case protocol.TypeLeaveQueue:
		r.hub.LeaveQueue(s)

	case protocol.TypeGameUpdate:
		if msg.Data != nil {
			r.games.SetPaddle(s.ID(), msg.Data.PaddleY)
		}

	case protocol.TypeGameOver:
		// Tournament signal only. The client's claim is not trusted:
		// the recorded winner comes from the engine's own result.
		r.handleClientGameOver(s)

	case protocol.TypeCreateTournament:
		r.director.Create(s.ID(), msg.Nickname, msg.Name, msg.Rounds, msg.Size)

	case protocol.TypeJoinTournament:
		r.director.Join(s.ID(), msg.TournamentID, msg.Nickname)

	case protocol.TypeStartTournament:
		r.director.StartTournament(s.ID(), msg.TournamentID)

	case protocol.TypeLeaveTournament:
		r.director.Leave(s.ID())

	case protocol.TypeGetTournaments:
		s.Send(protocol.TournamentList{Type: protocol.TypeTournamentList, Tournaments: r.director.List()})

	case protocol.TypeGetTournamentState:
		r.director.RequestState(s.ID(), msg.TournamentID)

	case protocol.TypeGetState:
		r.hub.SendState(s)

	default:
		// Unknown type: ignore.
	}
}

// handleClientGameOver nudges the director with the authoritative winner of
// the sender's match, if that match has actually ended. A duplicate of the
// engine's own notification is a no-op in the director.
func (r *Router) handleClientGameOver(s session.Session) {
	if !r.director.InTournament(s.ID()) {
		return
	}
	m, ok := r.games.MatchFor(s.ID())
	if !ok {
		return
	}
	winner, ended := m.Winner()
	if !ended {
		return
	}
	left, right := m.Players()
	winnerID := left
	if winner == protocol.SideRight {
		winnerID = right
	}
	if winnerID != "" {
		r.director.HandleGameOver(winnerID)
	}
}
