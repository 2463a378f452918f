package lobby

import (
	"encoding/json"
	"testing"

	"github.com/Raspberrynani/ft-solocendence/internal/protocol"
)

func TestRouterDropsMalformedJSON(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	a.reset()

	fx.router.HandleFrame(a, []byte("{not json"))

	if frames := a.sent(); len(frames) != 0 {
		t.Errorf("malformed frame produced %d responses, expected none", len(frames))
	}
}

func TestRouterDropsUnknownType(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	a.reset()

	fx.router.HandleFrame(a, []byte(`{"type":"warp_drive"}`))

	if frames := a.sent(); len(frames) != 0 {
		t.Errorf("unknown type produced %d responses, expected none", len(frames))
	}
}

func TestRouterJoinDispatch(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	b := fx.connect("b")

	joinA, _ := json.Marshal(map[string]any{"type": "join", "nickname": "alice", "token": "t", "rounds": 3})
	joinB, _ := json.Marshal(map[string]any{"type": "join", "nickname": "bob", "token": "t", "rounds": 3})
	fx.router.HandleFrame(a, joinA)
	fx.router.HandleFrame(b, joinB)

	if _, ok := a.startGame(); !ok {
		t.Error("join dispatch did not pair")
	}
	if fx.sessions.Nickname("a") != "alice" {
		t.Errorf("nickname = %q, expected alice", fx.sessions.Nickname("a"))
	}
}

func TestRouterGameUpdateSetsPaddle(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	b := fx.connect("b")
	fx.hub.JoinQueue(a, "alice", "t", 3)
	fx.hub.JoinQueue(b, "bob", "t", 3)

	sg, _ := a.startGame()
	fx.router.HandleFrame(a, []byte(`{"type":"game_update","data":{"paddleY":123}}`))

	m, _ := fx.games.Get(sg.Room)
	if got := m.Snapshot().Paddles.Left.Y; got != 123 {
		t.Errorf("left paddle y = %v, expected 123", got)
	}
}

func TestRouterGameUpdateWithoutDataIgnored(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	a.reset()

	fx.router.HandleFrame(a, []byte(`{"type":"game_update"}`))

	if frames := a.sent(); len(frames) != 0 {
		t.Errorf("payload-less game_update produced %d responses", len(frames))
	}
}

func TestRouterGetTournamentsRepliesDirectly(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")
	a.reset()

	fx.router.HandleFrame(a, []byte(`{"type":"get_tournaments"}`))

	frames := a.sent()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, expected 1", len(frames))
	}
	if _, ok := frames[0].(protocol.TournamentList); !ok {
		t.Errorf("frame = %T, expected TournamentList", frames[0])
	}
}

func TestRouterTournamentFlow(t *testing.T) {
	fx := newHubFixture(t)
	a := fx.connect("a")

	create, _ := json.Marshal(map[string]any{
		"type": "create_tournament", "nickname": "alice", "name": "Cup", "rounds": 3, "size": 4,
	})
	fx.router.HandleFrame(a, create)

	created := false
	for _, v := range a.sent() {
		if env, ok := v.(protocol.TournamentEnvelope); ok && env.Type == protocol.TypeTournamentCreated {
			created = true
			if env.Tournament.Name != "Cup" {
				t.Errorf("tournament name = %q", env.Tournament.Name)
			}
		}
	}
	if !created {
		t.Fatal("create_tournament produced no tournament_created")
	}

	// get_state for a tournament member includes the tournament state.
	a.reset()
	fx.router.HandleFrame(a, []byte(`{"type":"get_state"}`))
	sawTournament := false
	for _, v := range a.sent() {
		if env, ok := v.(protocol.TournamentEnvelope); ok && env.Type == protocol.TypeTournamentUpdate {
			sawTournament = true
		}
	}
	if !sawTournament {
		t.Error("get_state for a tournament member lacked tournament_update")
	}
}
