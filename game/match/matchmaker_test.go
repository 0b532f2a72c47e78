package match

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/game/session"
	"github.com/lolney/codesiege/store/memory"
)

func newTestMatchMaker(t *testing.T) (*MatchMaker, *session.Manager) {
	t.Helper()
	manager := session.NewManager(memory.New(), catalog.Default(), zerolog.Nop())
	return New(manager, zerolog.Nop()), manager
}

func TestQueue_PairsTwoPlayers(t *testing.T) {
	m, manager := newTestMatchMaker(t)

	first := m.Queue()
	assert.Equal(t, 1, m.QueueLen())
	select {
	case <-first.Done():
		t.Fatal("first ticket resolved with no opponent")
	default:
	}

	second := m.Queue()
	assert.Equal(t, 0, m.QueueLen())

	matchA := <-first.Done()
	matchB := <-second.Done()
	assert.Equal(t, matchA.GameID, matchB.GameID)
	assert.True(t, manager.GameExists(matchA.GameID))

	inst, ok := manager.Instance(matchA.GameID)
	require.True(t, ok)
	assert.Equal(t, session.ModeVersus, inst.Mode)
}

func TestQueue_PairsInOrder(t *testing.T) {
	m, _ := newTestMatchMaker(t)

	first := m.Queue()
	second := m.Queue()
	third := m.Queue()
	fourth := m.Queue()

	matchA := <-first.Done()
	matchB := <-second.Done()
	matchC := <-third.Done()
	matchD := <-fourth.Done()

	assert.Equal(t, matchA.GameID, matchB.GameID)
	assert.Equal(t, matchC.GameID, matchD.GameID)
	assert.NotEqual(t, matchA.GameID, matchC.GameID)
}

func TestCancel(t *testing.T) {
	m, _ := newTestMatchMaker(t)

	ticket := m.Queue()
	require.Equal(t, 1, m.QueueLen())

	m.Cancel(ticket)
	assert.Equal(t, 0, m.QueueLen())

	// A cancelled ticket is skipped, so the next two players pair with
	// each other.
	first := m.Queue()
	second := m.Queue()
	matchA := <-first.Done()
	matchB := <-second.Done()
	assert.Equal(t, matchA.GameID, matchB.GameID)

	select {
	case <-ticket.Done():
		t.Fatal("cancelled ticket received a match")
	default:
	}

	// Cancelling again, or cancelling a matched ticket, is harmless.
	m.Cancel(ticket)
	m.Cancel(first)
}

func TestCreatePractice(t *testing.T) {
	m, manager := newTestMatchMaker(t)

	id := m.CreatePractice()
	require.True(t, manager.GameExists(id))

	inst, ok := manager.Instance(id)
	require.True(t, ok)
	assert.Equal(t, session.ModePractice, inst.Mode)
	assert.Equal(t, 1, inst.Mode.MaxPlayers())
}
