package controller

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/game/engine"
	"github.com/lolney/codesiege/store"
	"github.com/lolney/codesiege/store/memory"
	"github.com/lolney/codesiege/transport/socket"
)

type fakeConn struct {
	mu   sync.Mutex
	envs []socket.Envelope
}

func (f *fakeConn) WriteEnvelope(env socket.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) byEvent(event string) []socket.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []socket.Envelope
	for _, env := range f.envs {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeConn) reply(ack int64) (socket.Envelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, env := range f.envs {
		if env.ReplyTo == ack {
			return env, true
		}
	}
	return socket.Envelope{}, false
}

func newTestController(t *testing.T, cat *catalog.Config) (*Controller, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(zerolog.Nop(), engine.New(), cat, st), st
}

func addTestPlayer(t *testing.T, c *Controller, playerID string, seat int) (*socket.Socket, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sock, err := socket.New(conn, socket.Handshake{UserID: playerID, GameID: "g1", Authenticated: true}, zerolog.Nop())
	require.NoError(t, err)
	sock.SetSeat(seat)
	require.NoError(t, c.store.CreatePlayer(context.Background(), playerID, c.catalog.InitialResources, c.catalog.InitialHP))
	c.engine.SetBaseHP(playerID, c.catalog.InitialHP)
	c.AddPlayer(playerID, sock)
	return sock, conn
}

func balance(t *testing.T, st store.Store, playerID, name string) int64 {
	t.Helper()
	balances, err := st.PlayerResources(context.Background(), playerID)
	require.NoError(t, err)
	return balances[name]
}

func TestMakeDefense_DeductsAndBroadcasts(t *testing.T) {
	cat := catalog.Default()
	cat.InitialResources = map[string]int64{"wood": 10, "stone": 10}
	cat.Items[3].Cost = map[string]int64{"wood": 4}

	c, st := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)
	_, connB := addTestPlayer(t, c, "bob", 2)
	_ = sockA

	sockA.Dispatch(socket.Envelope{Event: "makeDefense", Data: map[string]any{
		"defenseId": "3",
		"position":  map[string]any{"x": 500.0, "y": 300.0},
	}})

	assert.Equal(t, int64(6), balance(t, st, "alice", "wood"))
	assert.Equal(t, int64(10), balance(t, st, "alice", "stone"))

	// Both players see the placed object.
	require.Len(t, connA.byEvent("makeDefense"), 1)
	require.Len(t, connB.byEvent("makeDefense"), 1)
	resp := connA.byEvent("makeDefense")[0].Data.(socket.Response)
	assert.False(t, resp.IsError())

	// The builder was told what the placement cost them.
	updates := connA.byEvent("resourceUpdate")
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1].Data.(resourceUpdate)
	assert.Equal(t, "wood", last.Name)
	assert.Equal(t, int64(-4), last.Count)
	assert.False(t, last.ShouldReset)
}

func TestMakeDefense_RejectsOffensiveItem(t *testing.T) {
	cat := catalog.Default()
	cat.InitialResources = map[string]int64{"wood": 10, "stone": 10}
	cat.Items[3].Cost = map[string]int64{"wood": 4}

	c, st := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "makeDefense", Data: map[string]any{
		"defenseId": "3",
		"position":  map[string]any{"x": 500.0, "y": 300.0},
	}})
	require.Equal(t, int64(6), balance(t, st, "alice", "wood"))

	// Item "0" is offensive and cannot be placed directly.
	sockA.Dispatch(socket.Envelope{Event: "makeDefense", Data: map[string]any{
		"defenseId": "0",
		"position":  map[string]any{"x": 100.0, "y": 100.0},
	}})

	replies := connA.byEvent("makeDefense")
	require.Len(t, replies, 2)
	resp := replies[1].Data.(socket.Response)
	assert.True(t, resp.IsError())
	assert.Equal(t, int64(6), balance(t, st, "alice", "wood"))
}

func TestMakeDefense_InsufficientResources(t *testing.T) {
	cat := catalog.Default()
	cat.InitialResources = map[string]int64{"wood": 1, "stone": 1}

	c, st := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "makeDefense", Data: map[string]any{
		"defenseId": "3",
		"position":  map[string]any{"x": 500.0, "y": 300.0},
	}})

	replies := connA.byEvent("makeDefense")
	require.Len(t, replies, 1)
	resp := replies[0].Data.(socket.Response)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Msg, "insufficient")
	assert.Equal(t, int64(1), balance(t, st, "alice", "wood"))
	assert.Equal(t, int64(1), balance(t, st, "alice", "stone"))
}

func TestMergeDefenses_CountersExistingDefense(t *testing.T) {
	cat := catalog.Default()
	c, st := newTestController(t, cat)
	sockA, _ := addTestPlayer(t, c, "alice", 1)
	sockB, connB := addTestPlayer(t, c, "bob", 2)

	sockA.Dispatch(socket.Envelope{Event: "makeDefense", Data: map[string]any{
		"defenseId": "4",
		"position":  map[string]any{"x": 500.0, "y": 300.0},
	}})
	placed := connB.byEvent("makeDefense")
	require.Len(t, placed, 1)
	obj := placed[0].Data.(socket.Response).Data.(*engine.GameObject)

	sockB.Dispatch(socket.Envelope{Event: "mergeDefenses", Data: map[string]any{
		"gameObjectId": obj.ID,
		"defenseId":    "1",
	}})

	merged := connB.byEvent("mergeDefenses")
	require.Len(t, merged, 1)
	counted := merged[0].Data.(socket.Response).Data.(*engine.GameObject)
	assert.False(t, merged[0].Data.(socket.Response).IsError())
	assert.Equal(t, "1", counted.CounterItemID)

	// The countered defense is gone from the world.
	_, ok := c.engine.QueryObject(obj.ID)
	assert.False(t, ok)

	// Bridge costs wood 4.
	assert.Equal(t, int64(16), balance(t, st, "bob", "wood"))

	// Merging the same object again fails before any deduction.
	sockB.Dispatch(socket.Envelope{Event: "mergeDefenses", Data: map[string]any{
		"gameObjectId": obj.ID,
		"defenseId":    "1",
	}})
	repeats := connB.byEvent("mergeDefenses")
	require.Len(t, repeats, 2)
	assert.True(t, repeats[1].Data.(socket.Response).IsError())
	assert.Equal(t, int64(16), balance(t, st, "bob", "wood"))
}

func TestMakeAssaultBot_Transaction(t *testing.T) {
	cat := catalog.Default()
	c, st := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)
	addTestPlayer(t, c, "bob", 2)

	sockA.Dispatch(socket.Envelope{Event: "makeAssaultBot", Ack: 1})

	reply, ok := connA.reply(1)
	require.True(t, ok)
	resp := reply.Data.(socket.Response)
	require.False(t, resp.IsError())
	assert.Equal(t, map[string]any{"botCount": 1}, resp.Data)

	assert.Equal(t, int64(10), balance(t, st, "alice", "wood"))
	assert.Equal(t, int64(10), balance(t, st, "alice", "stone"))

	// A second purchase drains the balance, the third is refused.
	sockA.Dispatch(socket.Envelope{Event: "makeAssaultBot", Ack: 2})
	reply, ok = connA.reply(2)
	require.True(t, ok)
	require.False(t, reply.Data.(socket.Response).IsError())
	assert.Equal(t, int64(0), balance(t, st, "alice", "wood"))

	sockA.Dispatch(socket.Envelope{Event: "makeAssaultBot", Ack: 3})
	reply, ok = connA.reply(3)
	require.True(t, ok)
	resp = reply.Data.(socket.Response)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Msg, "insufficient")
	assert.Equal(t, 2, c.engine.NBots(1, engine.BotAssault))
}

func TestMakeAssaultBot_RequiresOpponent(t *testing.T) {
	cat := catalog.Default()
	c, st := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "makeAssaultBot", Ack: 1})

	reply, ok := connA.reply(1)
	require.True(t, ok)
	resp := reply.Data.(socket.Response)
	assert.True(t, resp.IsError())
	assert.Equal(t, int64(20), balance(t, st, "alice", "wood"))
	assert.Equal(t, 0, c.engine.NBots(1, engine.BotAssault))
}

func TestAssault_ConsumesBotAndHitsTarget(t *testing.T) {
	cat := catalog.Default()
	c, _ := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)
	_, connB := addTestPlayer(t, c, "bob", 2)

	sockA.Dispatch(socket.Envelope{Event: "makeAssaultBot", Ack: 1})
	spawned := connA.byEvent("addBot")
	require.Len(t, spawned, 1)
	bot := spawned[0].Data.(socket.Response).Data.(*engine.GameObject)
	assert.Equal(t, engine.BotAssault, bot.BotKind)
	assert.Equal(t, "bob", bot.TargetPlayerID)

	sockA.Dispatch(socket.Envelope{Event: "assault", Data: map[string]any{"gameObjectId": bot.ID}})

	assert.Equal(t, cat.InitialHP-1, c.engine.BaseHP("bob"))
	assert.Equal(t, 0, c.engine.NBots(1, engine.BotAssault))

	// The owner learns the bot was consumed, both sides see the hit.
	counts := connA.byEvent("assaultBotCount")
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]any{"botCount": 0}, counts[0].Data)
	require.Len(t, connA.byEvent("hp"), 1)
	require.Len(t, connB.byEvent("hp"), 1)

	// A second assault with the same, now consumed bot is refused.
	sockA.Dispatch(socket.Envelope{Event: "assault", Data: map[string]any{"gameObjectId": bot.ID}})
	replies := connA.byEvent("assault")
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Data.(socket.Response).IsError())
	assert.Equal(t, cat.InitialHP-1, c.engine.BaseHP("bob"))
}

func TestAssault_DrivesGameToWinOnce(t *testing.T) {
	cat := catalog.Default()
	cat.InitialHP = 2

	c, st := newTestController(t, cat)
	_, connA := addTestPlayer(t, c, "alice", 1)
	_, connB := addTestPlayer(t, c, "bob", 2)
	ctx := context.Background()

	require.NoError(t, c.DoAssault(ctx, "bob"))
	assert.Equal(t, engine.StatusActive, c.engine.Status())
	require.Len(t, connA.byEvent("hp"), 1)
	require.Len(t, connB.byEvent("hp"), 1)

	require.NoError(t, c.DoAssault(ctx, "bob"))
	assert.Equal(t, engine.StatusDone, c.engine.Status())
	assert.Len(t, connA.byEvent("gameWin"), 1)
	assert.Len(t, connB.byEvent("gameLose"), 1)

	// Further assaults after the game ended change nothing.
	require.NoError(t, c.DoAssault(ctx, "bob"))
	c.DoWinGame("alice")
	assert.Len(t, connA.byEvent("gameWin"), 1)
	assert.Len(t, connB.byEvent("hp"), 2)

	hp, err := st.DecrementHP(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), hp)
}

func TestProblemAndSolutionFlow(t *testing.T) {
	cat := catalog.Default()
	c, st := newTestController(t, cat)
	st.SeedProblem(store.Problem{ID: "p1", Type: "btree", Title: "Invert a tree", Original: `{"value":1}`})

	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "problem", Ack: 1, Data: map[string]any{"problemId": "p1"}})

	reply, ok := connA.reply(1)
	require.True(t, ok)
	resp := reply.Data.(socket.Response)
	require.False(t, resp.IsError())
	serialized := resp.Data.(map[string]any)
	assert.Equal(t, "p1", serialized["id"])
	assert.NotNil(t, serialized["tree"])

	// The first problem spawns the collector bot, exactly once.
	assert.Equal(t, 1, c.engine.NBots(1, engine.BotCollector))
	sockA.Dispatch(socket.Envelope{Event: "problem", Ack: 2, Data: map[string]any{"problemId": "p1"}})
	assert.Equal(t, 1, c.engine.NBots(1, engine.BotCollector))

	sockA.Dispatch(socket.Envelope{Event: "solution", Data: map[string]any{
		"problemId": "p1",
		"code":      "return invert(root)",
	}})

	solutions, err := st.Solutions(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, solutions, 1)
	assert.Equal(t, "p1", solutions[0].ProblemID)

	// The solve spawns a second collector bot that harvests the
	// problem's yield.
	assert.Equal(t, 2, c.engine.NBots(1, engine.BotCollector))
	assert.Equal(t, int64(25), balance(t, st, "alice", "wood"))
	assert.Equal(t, int64(25), balance(t, st, "alice", "stone"))

	// The solve is broadcast with the solver's seat, and the updated
	// solution list is pushed back to the solver.
	broadcasts := connA.byEvent("solution")
	require.Len(t, broadcasts, 1)
	payload := broadcasts[0].Data.(map[string]any)
	assert.Equal(t, "p1", payload["problemId"])
	assert.Equal(t, 1, payload["playerId"])

	lists := connA.byEvent("solvedProblems")
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].Data.(socket.Response).Data.([]store.Solution), 1)
}

func TestSolvedProblemQueries(t *testing.T) {
	cat := catalog.Default()
	c, st := newTestController(t, cat)
	st.SeedProblem(store.Problem{ID: "p1", Type: "image", Title: "Trace the bug", Original: "https://example.com/p1.png"})

	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "solution", Data: map[string]any{"problemId": "p1", "code": "x"}})
	sockA.Dispatch(socket.Envelope{Event: "solvedProblems"})
	sockA.Dispatch(socket.Envelope{Event: "solvedProblem", Data: map[string]any{"id": "p1"}})

	// One list pushed by the solve itself, one from the explicit query.
	lists := connA.byEvent("solvedProblems")
	require.Len(t, lists, 2)
	resp := lists[1].Data.(socket.Response)
	require.False(t, resp.IsError())
	assert.Len(t, resp.Data.([]store.Solution), 1)

	singles := connA.byEvent("solvedProblem")
	require.Len(t, singles, 1)
	resp = singles[0].Data.(socket.Response)
	require.False(t, resp.IsError())
	record := resp.Data.(map[string]any)
	assert.Equal(t, "p1", record["problemId"])
	assert.Equal(t, "https://example.com/p1.png", record["problem"].(map[string]any)["url"])
}

func TestResourceInitial_ReturnsBalances(t *testing.T) {
	cat := catalog.Default()
	c, _ := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "resourceInitial"})

	replies := connA.byEvent("resourceInitial")
	require.Len(t, replies, 1)
	resp := replies[0].Data.(socket.Response)
	require.False(t, resp.IsError())
	assert.Equal(t, map[string]int64{"wood": 20, "stone": 20}, resp.Data.(map[string]int64))
}

func TestSiegeItems_ReturnsCatalog(t *testing.T) {
	cat := catalog.Default()
	c, _ := newTestController(t, cat)
	sockA, connA := addTestPlayer(t, c, "alice", 1)

	sockA.Dispatch(socket.Envelope{Event: "siegeItems"})

	replies := connA.byEvent("siegeItems")
	require.Len(t, replies, 1)
	resp := replies[0].Data.(socket.Response)
	require.False(t, resp.IsError())
	assert.Len(t, resp.Data.([]catalog.SiegeItem), len(cat.Items))
}

func TestSerializeProblem(t *testing.T) {
	got, err := serializeProblem(&store.Problem{ID: "p1", Type: "btree", Title: "t", Original: `{"value":3}`})
	require.NoError(t, err)
	assert.Contains(t, got, "tree")

	got, err = serializeProblem(&store.Problem{ID: "p2", Type: "image", Title: "t", Original: "https://example.com/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x.png", got["url"])

	_, err = serializeProblem(&store.Problem{ID: "p3", Type: "audio"})
	assert.Error(t, err)
}
