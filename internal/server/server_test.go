package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resource-island/internal/auth"
	"github.com/example/resource-island/internal/game"
	"github.com/example/resource-island/internal/server"
)

type testEnv struct {
	ts     *httptest.Server
	state  *game.State
	events chan game.Event
}

func newTestEnv(t *testing.T, socketGate, queryGate *auth.Gate) *testEnv {
	t.Helper()
	if socketGate == nil {
		socketGate = &auth.Gate{}
	}
	if queryGate == nil {
		queryGate = &auth.Gate{}
	}

	state := game.NewState()
	require.NoError(t, state.Initialize(game.Rules{
		ResourceValues: map[game.Item]int{
			game.Diamond: 8, game.Gold: 6, game.Wood: 2,
			game.Ore: 3, game.Food: 1, game.Iron: 2,
		},
		DeckCounts: map[game.Item]int{game.Gold: 2, game.Wood: 2, game.Ore: 2},
		DrawCards:  3,
	}))

	events := make(chan game.Event, game.EventChannelCapacity)
	go game.NewRouter(state, events, nil).Run()

	gs := server.New(state, socketGate, queryGate, 5, &server.LogHandler{}, nil)
	r := mux.NewRouter()
	gs.Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		close(events)
	})
	return &testEnv{ts: ts, state: state, events: events}
}

func (e *testEnv) wsURL(player, query string) string {
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/" + player
	if query != "" {
		url += "?" + query
	}
	return url
}

func (e *testEnv) dial(t *testing.T, player, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(player, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestGameStateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var got server.GameStateResponse
	status := getJSON(t, env.ts.URL+"/gamestate", &got)

	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, got.Players)
	assert.Len(t, got.Market, 3)
	assert.Equal(t, 1, got.Epoch)
	assert.Equal(t, 0, got.Phase)
	assert.Equal(t, 6, got.Values["gold"])
	assert.False(t, got.Started)
}

func TestPlayerInfoEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var missing server.PlayerInfoResponse
	status := getJSON(t, env.ts.URL+"/playerinfo/nobody", &missing)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Zero(t, missing.ActionPoints)

	var noName server.PlayerInfoResponse
	status = getJSON(t, env.ts.URL+"/playerinfo", &noName)
	assert.Equal(t, http.StatusBadRequest, status)

	env.dial(t, "alice", "")

	var got server.PlayerInfoResponse
	status = getJSON(t, env.ts.URL+"/playerinfo/alice", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, got.ActionPoints)
	assert.Len(t, got.Resources, 6)
	assert.Zero(t, got.Resources["iron"])
	assert.Empty(t, got.Buildings)
	assert.Zero(t, got.BankMoney)

	var byQuery server.PlayerInfoResponse
	status = getJSON(t, env.ts.URL+"/playerinfo?player=alice", &byQuery)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, got, byQuery)
}

func TestQueryGate(t *testing.T) {
	gate := &auth.Gate{Enabled: true, Mode: auth.ModeStatic, Token: "secret"}
	env := newTestEnv(t, nil, gate)

	resp, err := http.Get(env.ts.URL + "/gamestate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/gamestate?token=wrong")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var got server.GameStateResponse
	status := getJSON(t, env.ts.URL+"/gamestate?token=secret", &got)
	assert.Equal(t, http.StatusOK, status)

	// Health stays open regardless of the gate.
	resp, err = http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWS_RegistersAndRefusesDuplicates(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	env.dial(t, "alice", "")
	assert.Equal(t, 1, env.state.PlayerCount())

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("alice", ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, env.state.PlayerCount())
}

func TestWS_SocketGate(t *testing.T) {
	gate := &auth.Gate{Enabled: true, Mode: auth.ModeStatic, Token: "secret"}
	env := newTestEnv(t, gate, nil)

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("alice", ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(env.wsURL("alice", "token=wrong"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, env.state.PlayerCount())

	env.dial(t, "alice", "token=secret")
	assert.Equal(t, 1, env.state.PlayerCount())
}

func TestWS_BroadcastReachesClient(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	conn := env.dial(t, "alice", "")

	env.events <- game.GameStartEvent()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type   string     `json:"type"`
		Target game.Event `json:"target"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "broadcast", frame.Type)
	assert.Equal(t, game.EventGameStart, frame.Target.Kind)
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	conn := env.dial(t, "alice", "")

	conn.Close()

	require.Eventually(t, func() bool {
		return env.state.PlayerCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWS_MalformedFrameClosesConnection(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	conn := env.dial(t, "alice", "")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "teleport"}))

	require.Eventually(t, func() bool {
		return env.state.PlayerCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
