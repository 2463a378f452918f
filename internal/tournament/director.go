package tournament

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Raspberrynani/ft-solocendence/internal/config"
	"github.com/Raspberrynani/ft-solocendence/internal/game"
	"github.com/Raspberrynani/ft-solocendence/internal/metrics"
	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
	"github.com/Raspberrynani/ft-solocendence/internal/session"
)

// Director owns all tournaments and sequences their matches. One match per
// tournament is active at a time; winners advance through the bracket until
// the root node resolves.
type Director struct {
	cfg      config.TournamentConfig
	sessions *session.Registry
	games    *game.Manager
	logger   *log.Logger

	mu               sync.Mutex
	tournaments      map[string]*Tournament
	playerTournament map[session.ID]string
	rng              *rand.Rand

	// onLobbyChange re-broadcasts the lobby tournament list.
	onLobbyChange func()
}

// NewDirector creates an empty director and registers itself as the game
// manager's tournament observer.
func NewDirector(cfg config.TournamentConfig, sessions *session.Registry, games *game.Manager, logger *log.Logger) *Director {
	d := &Director{
		cfg:              cfg,
		sessions:         sessions,
		games:            games,
		logger:           logger,
		tournaments:      make(map[string]*Tournament),
		playerTournament: make(map[session.ID]string),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	games.SetTournamentNotifier(d.HandleGameOver)
	return d
}

// SetLobbyNotifier registers the hub's tournament-list rebroadcast hook.
func (d *Director) SetLobbyNotifier(fn func()) {
	d.mu.Lock()
	d.onLobbyChange = fn
	d.mu.Unlock()
}

func (d *Director) notifyLobby() {
	d.mu.Lock()
	fn := d.onLobbyChange
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (d *Director) sendError(id session.ID, message string) {
	if s, ok := d.sessions.Get(id); ok {
		s.Send(protocol.NewNotice(protocol.TypeTournamentError, message))
	}
}

// Create builds a new tournament with the caller as first entrant and
// replies with tournament_created.
func (d *Director) Create(id session.ID, nickname, name string, rounds, size int) {
	if size == 0 {
		size = 8
	}
	if size != 4 && size != 6 && size != 8 {
		d.sendError(id, "Tournament size must be 4, 6, or 8 players")
		return
	}
	if name == "" {
		name = fmt.Sprintf("%s's Tournament", nickname)
	}
	if rounds <= 0 {
		rounds = d.cfg.DefaultRounds
	}

	d.mu.Lock()
	if _, in := d.playerTournament[id]; in {
		d.mu.Unlock()
		d.sendError(id, "You are already in a tournament")
		return
	}
	t := New(uuid.NewString(), id, name, size, rounds, d.rng)
	t.AddPlayer(id, nickname)
	d.tournaments[t.ID] = t
	d.playerTournament[id] = t.ID
	state := t.State()
	d.mu.Unlock()

	d.sessions.SetNickname(id, nickname)
	d.sessions.SetState(id, session.StateInTournamentLobby)
	metrics.TournamentCreated.Inc()

	if s, ok := d.sessions.Get(id); ok {
		s.Send(protocol.TournamentEnvelope{Type: protocol.TypeTournamentCreated, Tournament: state})
	}
	d.logger.Info("tournament created", "id", t.ID, "name", name, "size", size, "creator", nickname)
	d.notifyLobby()
}

// Join adds the caller to a pending tournament.
func (d *Director) Join(id session.ID, tournamentID, nickname string) {
	d.mu.Lock()
	t, ok := d.tournaments[tournamentID]
	if !ok {
		d.mu.Unlock()
		d.sendError(id, "Tournament not found")
		return
	}
	if t.Started {
		d.mu.Unlock()
		d.sendError(id, "Cannot join: Tournament has already started")
		return
	}
	if !t.AddPlayer(id, nickname) {
		d.mu.Unlock()
		d.sendError(id, "Cannot join tournament. It might be full or nickname is already taken.")
		return
	}
	d.playerTournament[id] = tournamentID
	state := t.State()
	entrants := entrantConns(t)
	playerCount := len(t.Players)
	d.mu.Unlock()

	d.sessions.SetNickname(id, nickname)
	d.sessions.SetState(id, session.StateInTournamentLobby)
	metrics.TournamentPlayers.Observe(float64(playerCount))

	if s, ok := d.sessions.Get(id); ok {
		s.Send(protocol.TournamentEnvelope{Type: protocol.TypeTournamentJoined, Tournament: state})
	}
	d.broadcastState(entrants, state)
	d.logger.Info("tournament joined", "id", tournamentID, "nickname", nickname, "players", playerCount)
	d.notifyLobby()
}

// StartTournament seeds the bracket. Creator only.
func (d *Director) StartTournament(id session.ID, tournamentID string) {
	d.mu.Lock()
	t, ok := d.tournaments[tournamentID]
	if !ok {
		d.mu.Unlock()
		d.sendError(id, "Tournament not found")
		return
	}
	if t.Creator != id {
		d.mu.Unlock()
		d.sendError(id, "Only the tournament creator can start the tournament")
		return
	}
	if !t.Start() {
		count := len(t.Players)
		alreadyStarted := t.Started
		size := t.Size
		d.mu.Unlock()
		var message string
		switch {
		case alreadyStarted:
			message = "Cannot start tournament"
		case count < 4:
			message = "Cannot start: Need at least 4 players"
		case count != 4 && count != 6 && count != 8:
			message = "Cannot start: Tournament requires 4, 6, or 8 players"
		case count != size:
			message = fmt.Sprintf("Cannot start: Tournament requires %d players", size)
		default:
			message = "Cannot start tournament"
		}
		d.sendError(id, message)
		return
	}

	state := t.State()
	entrants := entrantConns(t)
	current := t.Current
	d.mu.Unlock()

	d.logger.Info("tournament started", "id", tournamentID, "players", len(entrants))
	d.broadcastState(entrants, state)
	if current != nil {
		d.startMatch(t, current)
	}
	d.notifyLobby()
}

// Leave withdraws the caller, forfeiting their active match if necessary.
func (d *Director) Leave(id session.ID) {
	d.mu.Lock()
	tournamentID, in := d.playerTournament[id]
	d.mu.Unlock()
	if !in {
		d.sendError(id, "You are not in a tournament")
		return
	}
	d.remove(id, tournamentID)
	if s, ok := d.sessions.Get(id); ok {
		s.Send(protocol.NewNotice(protocol.TypeTournamentLeft, "You have left the tournament"))
	}
	d.sessions.SetState(id, session.StateIdle)
	d.notifyLobby()
}

// Disconnect handles a vanished connection: same as Leave, without frames
// to the leaver.
func (d *Director) Disconnect(id session.ID) {
	d.mu.Lock()
	tournamentID, in := d.playerTournament[id]
	d.mu.Unlock()
	if !in {
		return
	}
	d.remove(id, tournamentID)
	d.notifyLobby()
}

// remove implements withdrawal: creator-before-start cancels the whole
// tournament; otherwise the player is removed and, when they held a slot of
// the active match, the opposite slot is recorded as winner.
func (d *Director) remove(id session.ID, tournamentID string) {
	d.mu.Lock()
	t, ok := d.tournaments[tournamentID]
	if !ok {
		delete(d.playerTournament, id)
		d.mu.Unlock()
		return
	}

	if t.Creator == id && !t.Started {
		// Cancel: notify everyone else, drop all tracking.
		others := lo.Filter(entrantConns(t), func(c session.ID, _ int) bool { return c != id })
		for _, c := range others {
			delete(d.playerTournament, c)
		}
		delete(d.playerTournament, id)
		delete(d.tournaments, tournamentID)
		d.mu.Unlock()

		for _, c := range others {
			if s, ok := d.sessions.Get(c); ok {
				s.Send(protocol.NewNotice(protocol.TypeTournamentLeft, "Tournament has been canceled by the creator."))
			}
			d.sessions.SetState(c, session.StateIdle)
		}
		d.logger.Info("tournament canceled by creator", "id", tournamentID)
		return
	}

	var forfeitWinner session.ID
	if t.Started && t.Current != nil && t.Current.contains(id) {
		if t.Current.Conn1 == id {
			forfeitWinner = t.Current.Conn2
		} else {
			forfeitWinner = t.Current.Conn1
		}
	}

	t.RemovePlayer(id)
	delete(d.playerTournament, id)
	empty := len(t.Players) == 0
	if empty {
		delete(d.tournaments, tournamentID)
	}
	d.mu.Unlock()

	if forfeitWinner != "" {
		d.logger.Info("tournament forfeit", "id", tournamentID, "winner_conn", forfeitWinner)
		// Vacate the abandoned match before the result advances the
		// winner into a fresh room.
		d.games.Detach(id)
		d.games.Detach(forfeitWinner)
		d.HandleGameOver(forfeitWinner)
		return
	}
	if empty {
		d.logger.Info("tournament disposed (empty)", "id", tournamentID)
		return
	}

	d.mu.Lock()
	state := t.State()
	entrants := entrantConns(t)
	d.mu.Unlock()
	d.broadcastState(entrants, state)
}

// HandleGameOver records a tournament match result. The winner is
// identified by connection, as reported by the engine; client declarations
// are never trusted. Invoking it twice for the same match is a no-op.
func (d *Director) HandleGameOver(winnerID session.ID) {
	d.mu.Lock()
	tournamentID, in := d.playerTournament[winnerID]
	if !in {
		d.mu.Unlock()
		return
	}
	t, ok := d.tournaments[tournamentID]
	if !ok || t.Current == nil {
		d.mu.Unlock()
		return
	}
	res := t.RecordResult(winnerID)
	if res == nil {
		d.mu.Unlock()
		return
	}
	state := t.State()
	entrants := entrantConns(t)
	d.mu.Unlock()

	d.logger.Info("tournament match result", "id", tournamentID,
		"winner", res.Winner, "loser", res.Loser, "complete", res.Complete)

	if s, ok := d.sessions.Get(res.WinnerConn); ok {
		s.Send(protocol.TournamentMatchResult{
			Type:               protocol.TypeTournamentMatchResult,
			Won:                true,
			Opponent:           res.Loser,
			TournamentComplete: res.Complete,
		})
	}
	if s, ok := d.sessions.Get(res.LoserConn); ok {
		s.Send(protocol.TournamentEliminated{Type: protocol.TypeTournamentEliminated, Winner: res.Winner})
	}
	d.sessions.SetState(res.WinnerConn, session.StateInTournamentLobby)
	d.sessions.SetState(res.LoserConn, session.StateInTournamentLobby)

	if res.Complete {
		for _, c := range entrants {
			s, ok := d.sessions.Get(c)
			if !ok {
				continue
			}
			if c == res.WinnerConn {
				s.Send(protocol.TournamentVictory{Type: protocol.TypeTournamentVictory})
			} else {
				s.Send(protocol.TournamentComplete{Type: protocol.TypeTournamentComplete, Winner: res.Winner})
			}
		}
		d.broadcastState(entrants, state)
		d.dispose(tournamentID, entrants)
		d.notifyLobby()
		return
	}

	d.broadcastState(entrants, state)
	d.scheduleAdvance(tournamentID)
	d.notifyLobby()
}

// scheduleAdvance selects and launches the next match after the advance
// delay, letting clients consume the result first.
func (d *Director) scheduleAdvance(tournamentID string) {
	delay := d.cfg.AdvanceDelay.Std()
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() { d.advance(tournamentID) })
}

func (d *Director) advance(tournamentID string) {
	d.mu.Lock()
	t, ok := d.tournaments[tournamentID]
	if !ok {
		d.mu.Unlock()
		return
	}
	if !t.Advance() {
		// Defensive completion: nothing selectable but a root winner
		// exists means the bracket resolved without a normal record.
		if t.Winner != "" && t.Current == nil {
			winner := t.Winner
			players := make([]Entrant, len(t.Players))
			copy(players, t.Players)
			state := t.State()
			entrants := entrantConns(t)
			d.mu.Unlock()
			d.logger.Warn("tournament completed defensively", "id", tournamentID, "winner", winner)
			for _, p := range players {
				s, ok := d.sessions.Get(p.Conn)
				if !ok {
					continue
				}
				if p.Nickname == winner {
					s.Send(protocol.TournamentVictory{Type: protocol.TypeTournamentVictory})
				} else {
					s.Send(protocol.TournamentComplete{Type: protocol.TypeTournamentComplete, Winner: winner})
				}
			}
			d.broadcastState(entrants, state)
			d.dispose(tournamentID, entrants)
			return
		}
		d.mu.Unlock()
		return
	}
	state := t.State()
	entrants := entrantConns(t)
	current := t.Current
	d.mu.Unlock()

	d.broadcastState(entrants, state)
	d.startMatch(t, current)
	d.notifyLobby()
}

// startMatch allocates a game for the node and notifies both players, LEFT
// first.
func (d *Director) startMatch(t *Tournament, node *Node) {
	room := "tourney_game_" + uuid.NewString()
	d.games.Create(room, t.Rounds).SetTournament(true)
	d.games.Attach(room, node.Conn1, protocol.SideLeft)
	d.games.Attach(room, node.Conn2, protocol.SideRight)
	d.sessions.SetState(node.Conn1, session.StateInTournamentMatch)
	d.sessions.SetState(node.Conn2, session.StateInTournamentMatch)

	if !d.games.Start(room) {
		d.logger.Error("failed to start tournament game", "room", room,
			"player1", node.Player1, "player2", node.Player2)
		return
	}

	message := fmt.Sprintf("Tournament match: %s vs %s", node.Player1, node.Player2)
	for _, conn := range []session.ID{node.Conn1, node.Conn2} {
		if s, ok := d.sessions.Get(conn); ok {
			s.Send(protocol.NewNotice(protocol.TypeTournamentMatchReady, message))
		}
	}
	frames := []struct {
		conn session.ID
		side protocol.Side
	}{
		{node.Conn1, protocol.SideLeft},
		{node.Conn2, protocol.SideRight},
	}
	for _, f := range frames {
		if s, ok := d.sessions.Get(f.conn); ok {
			s.Send(protocol.StartGame{
				Type:         protocol.TypeStartGame,
				Message:      message,
				Room:         room,
				Rounds:       t.Rounds,
				IsTournament: true,
				PlayerSide:   f.side,
			})
		}
	}
	d.logger.Info("tournament match started", "room", room,
		"player1", node.Player1, "player2", node.Player2)
}

// dispose removes a completed tournament and resets entrant states.
func (d *Director) dispose(tournamentID string, entrants []session.ID) {
	d.mu.Lock()
	delete(d.tournaments, tournamentID)
	for _, c := range entrants {
		delete(d.playerTournament, c)
	}
	d.mu.Unlock()
	for _, c := range entrants {
		d.sessions.SetState(c, session.StateIdle)
	}
	d.logger.Info("tournament disposed", "id", tournamentID)
}

// RequestState replies with a single tournament_update for the named
// tournament. Unknown ids are ignored.
func (d *Director) RequestState(id session.ID, tournamentID string) {
	d.mu.Lock()
	t, ok := d.tournaments[tournamentID]
	var state protocol.TournamentState
	if ok {
		state = t.State()
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	if s, sok := d.sessions.Get(id); sok {
		s.Send(protocol.TournamentEnvelope{Type: protocol.TypeTournamentUpdate, Tournament: state})
	}
}

// StateFor returns the state of the tournament the connection belongs to.
func (d *Director) StateFor(id session.ID) (protocol.TournamentState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tournamentID, in := d.playerTournament[id]
	if !in {
		return protocol.TournamentState{}, false
	}
	t, ok := d.tournaments[tournamentID]
	if !ok {
		return protocol.TournamentState{}, false
	}
	return t.State(), true
}

// InTournament reports whether the connection belongs to a tournament.
func (d *Director) InTournament(id session.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, in := d.playerTournament[id]
	return in
}

// List returns the lobby view: tournaments still joinable or mid-match.
func (d *Director) List() []protocol.TournamentItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	items := make([]protocol.TournamentItem, 0, len(d.tournaments))
	for _, t := range d.tournaments {
		if t.Listable() {
			items = append(items, t.Summary())
		}
	}
	return items
}

func (d *Director) broadcastState(entrants []session.ID, state protocol.TournamentState) {
	frame := protocol.TournamentEnvelope{Type: protocol.TypeTournamentUpdate, Tournament: state}
	for _, c := range entrants {
		if s, ok := d.sessions.Get(c); ok {
			s.Send(frame)
		}
	}
}

func entrantConns(t *Tournament) []session.ID {
	return lo.Map(t.Players, func(p Entrant, _ int) session.ID { return p.Conn })
}
