package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() Rules {
	return Rules{
		ResourceValues: map[Item]int{
			Diamond: 8, Gold: 6, Wood: 2, Ore: 3, Food: 1, Iron: 2,
		},
		DeckCounts: map[Item]int{
			Diamond: 5, Gold: 8, Wood: 10, Ore: 10, Food: 10, Iron: 10,
		},
		DrawCards:           10,
		DefaultActionPoints: 5,
		TotalEpochs:         10,
	}
}

func multiset(items []Item) map[Item]int {
	m := make(map[Item]int)
	for _, item := range items {
		m[item]++
	}
	return m
}

func TestInitialize_DealsWholeDeckToMarket(t *testing.T) {
	s := NewState()
	rules := testRules()
	rules.DeckCounts = map[Item]int{Gold: 1, Wood: 1, Ore: 1}
	rules.DrawCards = 3

	require.NoError(t, s.Initialize(rules))

	assert.Empty(t, s.deck)
	assert.ElementsMatch(t, []Item{Gold, Wood, Ore}, s.market)
}

func TestInitialize_MarketAndDeckPreserveTheDealtDeck(t *testing.T) {
	s := NewState()
	rules := testRules()
	require.NoError(t, s.Initialize(rules))

	assert.Len(t, s.market, rules.DrawCards)

	combined := multiset(append(append([]Item{}, s.market...), s.deck...))
	want := make(map[Item]int)
	for item, n := range rules.DeckCounts {
		if n > 0 {
			want[item] = n
		}
	}
	assert.Equal(t, want, combined)
}

func TestInitialize_RunsExactlyOnce(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Initialize(testRules()))
	assert.Error(t, s.Initialize(testRules()))
}

func TestInitialize_DrawLargerThanDeck(t *testing.T) {
	s := NewState()
	rules := testRules()
	rules.DeckCounts = map[Item]int{Gold: 1}
	rules.DrawCards = 2
	assert.Error(t, s.Initialize(rules))
}

func TestRegisterPlayer_DuplicateName(t *testing.T) {
	s := NewState()

	mb, err := s.RegisterPlayer("A", NewPlayer(5))
	require.NoError(t, err)
	require.NotNil(t, mb)

	_, err = s.RegisterPlayer("A", NewPlayer(5))
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, s.PlayerCount())
}

func TestUnregisterPlayer_Unknown(t *testing.T) {
	s := NewState()
	assert.ErrorIs(t, s.UnregisterPlayer("B"), ErrNotFound)
}

func TestUnregisterPlayer_ClosesMailbox(t *testing.T) {
	s := NewState()
	mb, err := s.RegisterPlayer("A", NewPlayer(5))
	require.NoError(t, err)

	require.NoError(t, s.UnregisterPlayer("A"))

	assert.True(t, mb.Closed())
	assert.Equal(t, 0, s.PlayerCount())
}

func TestAdvancePhase_FiveAdvancesPerEpoch(t *testing.T) {
	s := NewState()
	for n := 1; n <= 3; n++ {
		for i := 0; i < 4; i++ {
			_, phase := s.AdvancePhase()
			assert.Equal(t, i+1, phase)
		}
		epoch, phase := s.AdvancePhase()
		assert.Equal(t, 0, phase)
		assert.Equal(t, 1+n, epoch)
	}
}

func TestAdvancePhase_NeverObservesPhaseFive(t *testing.T) {
	s := NewState()
	for i := 0; i < 25; i++ {
		_, phase := s.AdvancePhase()
		assert.GreaterOrEqual(t, phase, 0)
		assert.Less(t, phase, 5)
	}
}

func TestSnapshot_Idempotent(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Initialize(testRules()))
	_, err := s.RegisterPlayer("A", NewPlayer(5))
	require.NoError(t, err)

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first, second)
}

func TestSnapshot_CopiesAreIndependent(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Initialize(testRules()))

	snap := s.Snapshot()
	snap.ResourceValues[Gold] = 999
	if len(snap.Market) > 0 {
		snap.Market[0] = Diamond
	}

	assert.NotEqual(t, 999, s.Snapshot().ResourceValues[Gold])
}

func TestSnapshot_PlayersSorted(t *testing.T) {
	s := NewState()
	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := s.RegisterPlayer(name, NewPlayer(5))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, s.Snapshot().Players)
}

func TestPlayerInfo(t *testing.T) {
	s := NewState()
	_, err := s.RegisterPlayer("A", NewPlayer(5))
	require.NoError(t, err)

	info, err := s.PlayerInfo("A")
	require.NoError(t, err)
	assert.Equal(t, 5, info.ActionPoints)
	assert.Equal(t, 0, info.BankMoney)
	assert.Empty(t, info.Buildings)
	assert.Len(t, info.Resources, 6)
	for _, item := range Items() {
		n, ok := info.Resources[item]
		assert.True(t, ok, "resource %s missing", item)
		assert.Zero(t, n)
	}

	_, err = s.PlayerInfo("B")
	assert.ErrorIs(t, err, ErrNotFound)
}
