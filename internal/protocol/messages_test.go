package protocol

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"
)

// keysOf unmarshals v's JSON encoding into a map and returns its sorted keys.
func keysOf(t *testing.T, v any) []string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clients parse these frames by exact field name, so the wire keys are part
// of the contract.
func TestFrameFieldNames(t *testing.T) {
	tests := []struct {
		name string
		v    any
		keys []string
	}{
		{
			"start_game",
			StartGame{Type: TypeStartGame, PlayerSide: SideLeft},
			[]string{"is_tournament", "message", "player_side", "room", "rounds", "type"},
		},
		{
			"game_over",
			GameOver{Type: TypeGameOver, Winner: SideLeft},
			[]string{"score", "type", "winner"},
		},
		{
			"waiting_list",
			WaitingList{Type: TypeWaitingList, WaitingList: []WaitingEntry{}},
			[]string{"type", "waiting_list"},
		},
		{
			"tournament_match_result",
			TournamentMatchResult{Type: TypeTournamentMatchResult},
			[]string{"opponent", "tournament_complete", "type", "won"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := keysOf(t, tc.v); !reflect.DeepEqual(got, tc.keys) {
				t.Errorf("keys = %v, expected %v", got, tc.keys)
			}
		})
	}
}

func TestSnapshotWireShape(t *testing.T) {
	snap := Snapshot{
		Ball:       Ball{X: 400, Y: 225, Radius: 10},
		Paddles:    Paddles{Left: Paddle{Y: 175, Width: 15, Height: 100}, Right: Paddle{Y: 175, Width: 15, Height: 100}},
		Score:      Score{Left: 1, Right: 2},
		Dimensions: Dimensions{Width: 800, Height: 450},
	}
	data, err := json.Marshal(GameStateUpdate{Type: TypeGameStateUpdate, State: snap})
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Type  string `json:"type"`
		State struct {
			Ball struct {
				X, Y, Radius float64
			} `json:"ball"`
			Paddles struct {
				Left struct {
					Y, Width, Height float64
				} `json:"left"`
				Right struct {
					Y, Width, Height float64
				} `json:"right"`
			} `json:"paddles"`
			Score struct {
				Left, Right int
			} `json:"score"`
			Dimensions struct {
				Width, Height float64
			} `json:"dimensions"`
		} `json:"state"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "game_state_update" {
		t.Errorf("type = %q", decoded.Type)
	}
	if decoded.State.Ball.X != 400 || decoded.State.Ball.Radius != 10 {
		t.Errorf("ball = %+v", decoded.State.Ball)
	}
	if decoded.State.Score.Left != 1 || decoded.State.Score.Right != 2 {
		t.Errorf("score = %+v", decoded.State.Score)
	}
	if decoded.State.Dimensions.Width != 800 || decoded.State.Dimensions.Height != 450 {
		t.Errorf("dimensions = %+v", decoded.State.Dimensions)
	}
}

func TestInboundDecodesNestedGameUpdate(t *testing.T) {
	var msg Inbound
	if err := json.Unmarshal([]byte(`{"type":"game_update","data":{"paddleY":123.5}}`), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeGameUpdate || msg.Data == nil || msg.Data.PaddleY != 123.5 {
		t.Errorf("decoded = %+v", msg)
	}
}

func TestSideOpposite(t *testing.T) {
	if SideLeft.Opposite() != SideRight || SideRight.Opposite() != SideLeft {
		t.Error("Opposite() broken")
	}
}
