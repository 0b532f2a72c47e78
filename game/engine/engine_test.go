package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Seats(t *testing.T) {
	e := New()
	e.RegisterSeat(1, "alice")
	e.RegisterSeat(2, "bob")

	playerID, ok := e.PlayerBySeat(1)
	require.True(t, ok)
	assert.Equal(t, "alice", playerID)

	_, ok = e.PlayerBySeat(3)
	assert.False(t, ok)
}

func TestEngine_Finish_IsIdempotent(t *testing.T) {
	e := New()
	assert.Equal(t, StatusActive, e.Status())

	assert.True(t, e.Finish())
	assert.False(t, e.Finish())
	assert.Equal(t, StatusDone, e.Status())
}

func TestEngine_DefenseLifecycle(t *testing.T) {
	e := New()

	obj := e.MakeDefense("3", Position{X: 500, Y: 300}, 1)
	require.NotNil(t, obj)
	assert.Equal(t, KindDefense, obj.Kind)
	assert.Equal(t, 1, obj.OwnerSeat)

	got, ok := e.QueryObject(obj.ID)
	require.True(t, ok)
	assert.Same(t, obj, got)

	require.NoError(t, e.AttachCounter(obj.ID, "1"))
	got, _ = e.QueryObject(obj.ID)
	assert.Equal(t, "1", got.CounterItemID)

	assert.ErrorIs(t, e.AttachCounter("nope", "1"), ErrObjectNotFound)

	gen := e.PathGeneration()
	assert.True(t, e.RemoveObject(obj.ID))
	assert.False(t, e.RemoveObject(obj.ID))
	assert.Greater(t, e.PathGeneration(), gen)

	_, ok = e.QueryObject(obj.ID)
	assert.False(t, ok)
}

func TestEngine_Bots(t *testing.T) {
	e := New()

	bot, n := e.AddBot(BotConfig{
		Kind:           BotAssault,
		OwnerSeat:      1,
		Position:       e.StartingPosition(1),
		TargetPlayerID: "bob",
	})
	assert.Equal(t, KindBot, bot.Kind)
	assert.Equal(t, BotAssault, bot.BotKind)
	assert.Equal(t, 1, n)

	_, n = e.AddBot(BotConfig{Kind: BotAssault, OwnerSeat: 1})
	assert.Equal(t, 2, n)

	// A collector for the same seat does not count toward assault bots.
	_, n = e.AddBot(BotConfig{Kind: BotCollector, OwnerSeat: 1, ProblemID: "p1"})
	assert.Equal(t, 1, n)

	assert.Equal(t, 2, e.NBots(1, BotAssault))
	assert.Equal(t, 0, e.NBots(2, BotAssault))

	require.True(t, e.RemoveObject(bot.ID))
	assert.Equal(t, 1, e.NBots(1, BotAssault))
}

func TestEngine_ObjectsByProblem(t *testing.T) {
	e := New()
	_, _ = e.AddBot(BotConfig{Kind: BotCollector, OwnerSeat: 1, ProblemID: "p1"})
	_, _ = e.AddBot(BotConfig{Kind: BotCollector, OwnerSeat: 2, ProblemID: "p2"})

	objs := e.ObjectsByProblem("p1")
	require.Len(t, objs, 1)
	assert.Equal(t, 1, objs[0].OwnerSeat)

	assert.Empty(t, e.ObjectsByProblem("p3"))
}

func TestEngine_SolvedAndHP(t *testing.T) {
	e := New()

	_, ok := e.SolvedBy("p1")
	assert.False(t, ok)

	e.MarkSolved("p1", 2)
	seat, ok := e.SolvedBy("p1")
	require.True(t, ok)
	assert.Equal(t, 2, seat)

	e.SetBaseHP("alice", 10)
	assert.Equal(t, int64(10), e.BaseHP("alice"))
	e.SetBaseHP("alice", 9)
	assert.Equal(t, int64(9), e.BaseHP("alice"))
}

func TestEngine_StartingPosition(t *testing.T) {
	e := New()
	left := e.StartingPosition(1)
	right := e.StartingPosition(2)
	assert.Less(t, left.X, right.X)
	assert.Equal(t, left.Y, right.Y)
}
