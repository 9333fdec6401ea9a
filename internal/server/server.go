package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/example/resource-island/internal/auth"
	"github.com/example/resource-island/internal/game"
)

// GameServer exposes the read endpoints and the persistent-connection
// endpoint over the shared game state.
type GameServer struct {
	state      *game.State
	socketGate *auth.Gate
	queryGate  *auth.Gate
	defaultAP  int
	handler    ActionHandler
	upgrader   websocket.Upgrader
	log        *slog.Logger
}

// New wires a GameServer over the state. The socket gate guards websocket
// upgrades, the query gate guards the read endpoints; either may be
// disabled.
func New(state *game.State, socketGate, queryGate *auth.Gate, defaultAP int, handler ActionHandler, log *slog.Logger) *GameServer {
	if log == nil {
		log = slog.Default()
	}
	return &GameServer{
		state:      state,
		socketGate: socketGate,
		queryGate:  queryGate,
		defaultAP:  defaultAP,
		handler:    handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With("component", "server"),
	}
}

// Routes registers all endpoints on the router. Health and root stay open;
// the query endpoints share the query gate.
func (gs *GameServer) Routes(r *mux.Router) {
	r.HandleFunc("/", gs.HandleRoot).Methods("GET")
	r.HandleFunc("/health", gs.HandleHealth).Methods("GET")
	r.HandleFunc("/ws/{player}", gs.HandleWS).Methods("GET")

	queries := r.NewRoute().Subrouter()
	queries.Use(mux.MiddlewareFunc(gs.queryGate.Middleware))
	queries.HandleFunc("/gamestate", gs.HandleGameState).Methods("GET")
	queries.HandleFunc("/playerinfo/{player}", gs.HandlePlayerInfoPath).Methods("GET")
	queries.HandleFunc("/playerinfo", gs.HandlePlayerInfoQuery).Methods("GET")
}

func (gs *GameServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("You are all set!"))
}

func (gs *GameServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}

// GameStateResponse is the wire shape of a state snapshot.
type GameStateResponse struct {
	Players []string       `json:"players"`
	Market  []string       `json:"market"`
	Epoch   int            `json:"epoch"`
	Phase   int            `json:"phase"`
	Values  map[string]int `json:"values"`
	Started bool           `json:"started"`
}

func gameStateResponse(snap game.Snapshot) GameStateResponse {
	market := make([]string, len(snap.Market))
	for i, item := range snap.Market {
		market[i] = item.Label()
	}
	values := make(map[string]int, len(snap.ResourceValues))
	for item, v := range snap.ResourceValues {
		values[item.Label()] = v
	}
	return GameStateResponse{
		Players: snap.Players,
		Market:  market,
		Epoch:   snap.Epoch,
		Phase:   snap.Phase,
		Values:  values,
		Started: snap.Started,
	}
}

// PlayerInfoResponse is the wire shape of a player projection.
type PlayerInfoResponse struct {
	ActionPoints int            `json:"action_points"`
	Resources    map[string]int `json:"resources"`
	Buildings    []string       `json:"buildings"`
	BankMoney    int            `json:"bank_money"`
}

func playerInfoResponse(info game.PlayerInfo) PlayerInfoResponse {
	resources := make(map[string]int, len(info.Resources))
	for item, n := range info.Resources {
		resources[item.Label()] = n
	}
	buildings := make([]string, len(info.Buildings))
	for i, b := range info.Buildings {
		buildings[i] = b.Label()
	}
	return PlayerInfoResponse{
		ActionPoints: info.ActionPoints,
		Resources:    resources,
		Buildings:    buildings,
		BankMoney:    info.BankMoney,
	}
}

func (gs *GameServer) HandleGameState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gameStateResponse(gs.state.Snapshot()))
}

func (gs *GameServer) HandlePlayerInfoPath(w http.ResponseWriter, r *http.Request) {
	gs.writePlayerInfo(w, mux.Vars(r)["player"])
}

func (gs *GameServer) HandlePlayerInfoQuery(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("player")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, PlayerInfoResponse{})
		return
	}
	gs.writePlayerInfo(w, name)
}

func (gs *GameServer) writePlayerInfo(w http.ResponseWriter, name string) {
	info, err := gs.state.PlayerInfo(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, PlayerInfoResponse{})
		return
	}
	writeJSON(w, http.StatusOK, playerInfoResponse(info))
}

// HandleWS gates, registers, then upgrades. Auth failure and duplicate names
// refuse the upgrade without registering anything.
func (gs *GameServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["player"]

	switch err := gs.socketGate.Check(r); {
	case errors.Is(err, auth.ErrUnauthenticated):
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	case err != nil:
		http.Error(w, "auth check failed", http.StatusInternalServerError)
		return
	}

	player := game.NewPlayer(gs.defaultAP)
	mailbox, err := gs.state.RegisterPlayer(name, player)
	if err != nil {
		if errors.Is(err, game.ErrAlreadyExists) {
			http.Error(w, "player name already connected", http.StatusConflict)
			return
		}
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	ws, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gs.log.Warn("upgrade failed", "player", name, "err", err)
		gs.state.UnregisterPlayer(name)
		return
	}

	c := &conn{
		id:      uuid.NewString(),
		player:  name,
		ws:      ws,
		state:   gs.state,
		mailbox: mailbox,
		handler: gs.handler,
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
	c.log = gs.log.With("conn", c.id, "player", name)
	gs.log.Info("player connected", "player", name, "conn", c.id)
	go c.writeLoop()
	go c.readLoop()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
