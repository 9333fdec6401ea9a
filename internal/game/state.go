package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var (
	// ErrAlreadyExists is returned when a player name is already registered.
	ErrAlreadyExists = errors.New("player already exists")
	// ErrNotFound is returned for lookups of unregistered player names.
	ErrNotFound = errors.New("player not found")
)

// Rules is the typed subset of configuration the state machine consumes.
type Rules struct {
	ResourceValues      map[Item]int
	DeckCounts          map[Item]int
	DrawCards           int
	DefaultActionPoints int
	TotalEpochs         int
}

// State is the authoritative game aggregate. The whole aggregate sits behind
// one reader/writer guard; cross-field invariants (phase/epoch, market/deck)
// are only touched inside exclusive-write methods.
type State struct {
	mu             sync.RWMutex
	players        map[string]*Player
	market         []Item
	deck           []Item
	epoch          int
	phase          int
	resourceValues map[Item]int
	started        bool
	initialized    bool
}

// NewState returns an empty, uninitialized state with the counters at their
// starting positions (epoch 1, phase 0).
func NewState() *State {
	return &State{
		players:        make(map[string]*Player),
		epoch:          1,
		resourceValues: make(map[Item]int),
	}
}

// Initialize seeds resource values, builds and shuffles the deck from the
// per-item counts, and deals the first DrawCards cards into the market. It
// must run exactly once, before the loop and any market/deck reads.
func (s *State) Initialize(rules Rules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errors.New("state already initialized")
	}
	for _, item := range Items() {
		s.resourceValues[item] = rules.ResourceValues[item]
	}
	for _, item := range Items() {
		for n := 0; n < rules.DeckCounts[item]; n++ {
			s.deck = append(s.deck, item)
		}
	}
	if rules.DrawCards > len(s.deck) {
		return fmt.Errorf("draw count %d exceeds deck size %d", rules.DrawCards, len(s.deck))
	}
	rand.Shuffle(len(s.deck), func(i, j int) {
		s.deck[i], s.deck[j] = s.deck[j], s.deck[i]
	})
	s.market = append(s.market, s.deck[:rules.DrawCards]...)
	s.deck = s.deck[rules.DrawCards:]
	s.initialized = true
	return nil
}

// RegisterPlayer inserts the player under its unique name and hands back the
// mailbox the connection's writer will drain.
func (s *State) RegisterPlayer(name string, p *Player) (*Mailbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	s.players[name] = p
	return p.mailbox, nil
}

// UnregisterPlayer removes the entry and closes its mailbox so the owning
// writer goroutine terminates.
func (s *State) UnregisterPlayer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.players, name)
	p.mailbox.Close()
	return nil
}

// PlayerCount reports the number of registered players.
func (s *State) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Epoch reports the current epoch counter.
func (s *State) Epoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// MarkStarted flips the started flag. It never unflips.
func (s *State) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

// AdvancePhase moves the progression counter forward one phase. Crossing
// phase 5 resets to 0 and bumps the epoch in the same exclusive section, so
// no reader ever observes phase 5. Returns the updated pair.
func (s *State) AdvancePhase() (epoch, phase int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase++
	if s.phase == 5 {
		s.phase = 0
		s.epoch++
	}
	return s.epoch, s.phase
}

// Snapshot is an immutable read-only projection of the aggregate for
// external consumption.
type Snapshot struct {
	Players        []string
	Market         []Item
	Epoch          int
	Phase          int
	ResourceValues map[Item]int
	Started        bool
}

// Snapshot copies the externally visible fields under the read guard.
// Repeated calls without intervening writes return identical results.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]string, 0, len(s.players))
	for name := range s.players {
		players = append(players, name)
	}
	sort.Strings(players)
	market := make([]Item, len(s.market))
	copy(market, s.market)
	values := make(map[Item]int, len(s.resourceValues))
	for item, v := range s.resourceValues {
		values[item] = v
	}
	return Snapshot{
		Players:        players,
		Market:         market,
		Epoch:          s.epoch,
		Phase:          s.phase,
		ResourceValues: values,
		Started:        s.started,
	}
}

// PlayerInfo is the read-only projection of one player.
type PlayerInfo struct {
	ActionPoints int
	Resources    map[Item]int
	Buildings    []Building
	BankMoney    int
}

// PlayerInfo projects the named player, or ErrNotFound.
func (s *State) PlayerInfo(name string) (PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[name]
	if !ok {
		return PlayerInfo{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	resources := make(map[Item]int, len(p.resources))
	for item, n := range p.resources {
		resources[item] = n
	}
	buildings := make([]Building, 0, len(p.buildings))
	for _, b := range Buildings() {
		if _, ok := p.buildings[b]; ok {
			buildings = append(buildings, b)
		}
	}
	return PlayerInfo{
		ActionPoints: p.actionPoints,
		Resources:    resources,
		Buildings:    buildings,
		BankMoney:    p.bankMoney,
	}, nil
}

type subscriber struct {
	name    string
	mailbox *Mailbox
}

// subscribers snapshots the (name, mailbox) pairs registered right now so
// the router can deliver outside the guard.
func (s *State) subscribers() []subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]subscriber, 0, len(s.players))
	for name, p := range s.players {
		subs = append(subs, subscriber{name: name, mailbox: p.mailbox})
	}
	return subs
}
