package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/lolney/codesiege/game/catalog"
	"github.com/lolney/codesiege/game/engine"
	"github.com/lolney/codesiege/store"
	"github.com/lolney/codesiege/transport/socket"
)

// problemReward is what a collector bot harvests per solved problem.
var problemReward = []store.Resource{
	{Name: "wood", Count: 5},
	{Name: "stone", Count: 5},
}

// Controller binds the event surface of one instance: it registers the
// per-player handlers and mediates between sockets, the simulation and
// the store.
type Controller struct {
	log     zerolog.Logger
	engine  *engine.Engine
	catalog *catalog.Config
	store   store.Store
	players *PlayerMap
}

// New creates a controller over one engine, catalog and store.
func New(log zerolog.Logger, eng *engine.Engine, cat *catalog.Config, st store.Store) *Controller {
	return &Controller{
		log:     log,
		engine:  eng,
		catalog: cat,
		store:   st,
		players: NewPlayerMap(log),
	}
}

// Players exposes the connected-player map.
func (c *Controller) Players() *PlayerMap {
	return c.players
}

// AddPlayer admits a player's socket and registers its event handlers.
func (c *Controller) AddPlayer(playerID string, sock *socket.Socket) {
	c.players.AddPlayer(playerID, sock)
	c.engine.RegisterSeat(sock.Seat(), playerID)

	sock.On("solution", func(data any) { c.onSolution(playerID, sock, data) })
	sock.On("solvedProblems", func(data any) { c.onSolvedProblems(playerID, sock) })
	sock.On("solvedProblem", func(data any) { c.onSolvedProblem(sock, data) })
	sock.On("resourceInitial", func(data any) { c.onResourceInitial(playerID, sock) })
	sock.On("makeDefense", func(data any) { c.onMakeDefense(playerID, sock, data) })
	sock.On("mergeDefenses", func(data any) { c.onMergeDefenses(playerID, sock, data) })
	sock.On("siegeItems", func(data any) { c.onSiegeItems(sock) })
	sock.On("assault", func(data any) { c.onAssault(playerID, sock, data) })

	sock.Transaction("makeAssaultBot", func(data any) socket.Response {
		return c.onMakeAssaultBot(playerID, sock)
	})
	sock.Transaction("problem", func(data any) socket.Response {
		return c.onProblem(playerID, sock, data)
	})
}

// RemovePlayer drops a player's live socket. Their seat and ledger
// survive for a reconnect.
func (c *Controller) RemovePlayer(playerID string) {
	c.players.RemovePlayer(playerID)
}

// fail reports a handler error back on the event's own channel.
func (c *Controller) fail(sock *socket.Socket, event, msg string) {
	c.log.Warn().Str("event", event).Msg(msg)
	if _, err := sock.Emit(event, socket.Err(msg)); err != nil {
		c.log.Warn().Err(err).Str("event", event).Msg("error reply failed")
	}
}

type solutionPayload struct {
	ProblemID string `mapstructure:"problemId"`
	Code      string `mapstructure:"code"`
}

func (c *Controller) onSolution(playerID string, sock *socket.Socket, data any) {
	ctx := context.Background()

	var payload solutionPayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.ProblemID == "" {
		c.fail(sock, "solution", "malformed solution payload")
		return
	}

	if err := c.store.AddSolution(ctx, playerID, payload.ProblemID, payload.Code); err != nil {
		c.fail(sock, "solution", fmt.Sprintf("save solution: %v", err))
		return
	}

	solutions, err := c.store.Solutions(ctx, playerID)
	if err != nil {
		c.fail(sock, "solution", fmt.Sprintf("list solutions: %v", err))
		return
	}
	if _, err := sock.Emit("solvedProblems", socket.OK(solutions)); err != nil {
		c.log.Warn().Err(err).Msg("solvedProblems push failed")
	}

	// Let every player know this problem has been solved.
	seat := sock.Seat()
	c.engine.MarkSolved(payload.ProblemID, seat)
	c.players.PublishAll("solution", map[string]any{
		"problemId": payload.ProblemID,
		"playerId":  seat,
	})

	if err := c.addCollectorBot(ctx, playerID, seat, payload.ProblemID); err != nil {
		c.fail(sock, "solution", err.Error())
	}
}

func (c *Controller) onSolvedProblems(playerID string, sock *socket.Socket) {
	solutions, err := c.store.Solutions(context.Background(), playerID)
	if err != nil {
		c.fail(sock, "solvedProblems", fmt.Sprintf("list solutions: %v", err))
		return
	}
	if _, err := sock.Emit("solvedProblems", socket.OK(solutions)); err != nil {
		c.log.Warn().Err(err).Msg("solvedProblems reply failed")
	}
}

type problemIDPayload struct {
	ProblemID string `mapstructure:"problemId"`
}

type solvedProblemPayload struct {
	ID string `mapstructure:"id"`
}

func (c *Controller) onSolvedProblem(sock *socket.Socket, data any) {
	var payload solvedProblemPayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.ID == "" {
		c.fail(sock, "solvedProblem", "malformed payload")
		return
	}

	solved, err := c.store.SolvedProblem(context.Background(), payload.ID)
	if err != nil {
		c.fail(sock, "solvedProblem", fmt.Sprintf("fetch solved problem: %v", err))
		return
	}
	serialized, err := serializeProblem(&solved.Problem)
	if err != nil {
		c.fail(sock, "solvedProblem", err.Error())
		return
	}
	if _, err := sock.Emit("solvedProblem", socket.OK(map[string]any{
		"problemId": solved.ProblemID,
		"playerId":  solved.PlayerID,
		"code":      solved.Code,
		"createdAt": solved.CreatedAt,
		"problem":   serialized,
	})); err != nil {
		c.log.Warn().Err(err).Msg("solvedProblem reply failed")
	}
}

func (c *Controller) onResourceInitial(playerID string, sock *socket.Socket) {
	balances, err := c.store.PlayerResources(context.Background(), playerID)
	if err != nil {
		c.fail(sock, "resourceInitial", fmt.Sprintf("fetch balances: %v", err))
		return
	}
	if _, err := sock.Emit("resourceInitial", socket.OK(balances)); err != nil {
		c.log.Warn().Err(err).Msg("resourceInitial reply failed")
	}
}

type makeDefensePayload struct {
	ItemID   string          `mapstructure:"defenseId"`
	Position engine.Position `mapstructure:"position"`
}

func (c *Controller) onMakeDefense(playerID string, sock *socket.Socket, data any) {
	ctx := context.Background()

	var payload makeDefensePayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.ItemID == "" {
		c.fail(sock, "makeDefense", "malformed payload")
		return
	}

	item, ok := c.catalog.Item(payload.ItemID)
	if !ok {
		c.fail(sock, "makeDefense", fmt.Sprintf("unknown siege item %q", payload.ItemID))
		return
	}
	if item.Kind != catalog.KindDefensive {
		c.fail(sock, "makeDefense", fmt.Sprintf("siege item %q is not defensive", payload.ItemID))
		return
	}

	if err := c.deductResourceCosts(ctx, playerID, item.Cost); err != nil {
		c.fail(sock, "makeDefense", err.Error())
		return
	}

	obj := c.engine.MakeDefense(item.ID, payload.Position, sock.Seat())
	c.engine.ResetBots()
	c.players.PublishAll("makeDefense", socket.OK(obj))
}

type mergeDefensesPayload struct {
	GameObjectID string `mapstructure:"gameObjectId"`
	ItemID       string `mapstructure:"defenseId"`
}

func (c *Controller) onMergeDefenses(playerID string, sock *socket.Socket, data any) {
	ctx := context.Background()

	var payload mergeDefensesPayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.GameObjectID == "" {
		c.fail(sock, "mergeDefenses", "malformed payload")
		return
	}

	item, ok := c.catalog.Item(payload.ItemID)
	if !ok {
		c.fail(sock, "mergeDefenses", fmt.Sprintf("unknown siege item %q", payload.ItemID))
		return
	}
	if item.Kind != catalog.KindOffensive {
		c.fail(sock, "mergeDefenses", fmt.Sprintf("siege item %q is not offensive", payload.ItemID))
		return
	}

	obj, ok := c.engine.QueryObject(payload.GameObjectID)
	if !ok || obj.Kind != engine.KindDefense {
		c.fail(sock, "mergeDefenses", fmt.Sprintf("no defense %q", payload.GameObjectID))
		return
	}

	if err := c.deductResourceCosts(ctx, playerID, item.Cost); err != nil {
		c.fail(sock, "mergeDefenses", err.Error())
		return
	}

	if err := c.engine.AttachCounter(obj.ID, item.ID); err != nil {
		c.fail(sock, "mergeDefenses", err.Error())
		return
	}
	// The countered defense leaves the world, so it cannot be merged
	// against twice.
	c.engine.RemoveObject(obj.ID)
	c.engine.ResetBots()
	c.players.PublishAll("mergeDefenses", socket.OK(obj))
}

func (c *Controller) onSiegeItems(sock *socket.Socket) {
	if _, err := sock.Emit("siegeItems", socket.OK(c.catalog.Items)); err != nil {
		c.log.Warn().Err(err).Msg("siegeItems reply failed")
	}
}

type assaultPayload struct {
	GameObjectID string `mapstructure:"gameObjectId"`
}

func (c *Controller) onAssault(playerID string, sock *socket.Socket, data any) {
	ctx := context.Background()

	var payload assaultPayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.GameObjectID == "" {
		c.fail(sock, "assault", "malformed payload")
		return
	}

	bot, ok := c.engine.QueryObject(payload.GameObjectID)
	if !ok || bot.Kind != engine.KindBot || bot.BotKind != engine.BotAssault {
		c.fail(sock, "assault", fmt.Sprintf("no assault bot %q", payload.GameObjectID))
		return
	}
	if bot.OwnerSeat != sock.Seat() {
		c.fail(sock, "assault", "assault bot belongs to another player")
		return
	}
	if bot.TargetPlayerID == "" {
		c.fail(sock, "assault", "assault bot has no target")
		return
	}

	c.removeBot(bot)
	if err := c.DoAssault(ctx, bot.TargetPlayerID); err != nil {
		c.fail(sock, "assault", err.Error())
	}
}

func (c *Controller) onMakeAssaultBot(playerID string, sock *socket.Socket) socket.Response {
	ctx := context.Background()

	if c.engine.Status() == engine.StatusDone {
		return socket.Err("game is over")
	}

	targetID, err := c.players.OtherPlayerID(playerID)
	if err != nil {
		return socket.Err(fmt.Sprintf("could not create assault bot: %v", err))
	}

	if err := c.deductResourceCosts(ctx, playerID, c.catalog.AssaultBotCost); err != nil {
		return socket.Err(err.Error())
	}

	seat := sock.Seat()
	bot, n := c.engine.AddBot(engine.BotConfig{
		Kind:           engine.BotAssault,
		OwnerSeat:      seat,
		Position:       c.engine.StartingPosition(seat),
		TargetPlayerID: targetID,
	})
	c.players.PublishAll("addBot", socket.OK(bot))
	return socket.OK(map[string]any{"botCount": n})
}

func (c *Controller) onProblem(playerID string, sock *socket.Socket, data any) socket.Response {
	ctx := context.Background()

	var payload problemIDPayload
	if err := mapstructure.Decode(data, &payload); err != nil || payload.ProblemID == "" {
		return socket.Err("malformed payload")
	}

	problem, err := c.store.Problem(ctx, payload.ProblemID, playerID)
	if err != nil {
		return socket.Err(fmt.Sprintf("fetch problem: %v", err))
	}

	serialized, err := serializeProblem(problem)
	if err != nil {
		return socket.Err(err.Error())
	}

	c.ensureCollectorBot(sock, problem.ID)
	return socket.OK(serialized)
}

// ensureCollectorBot spawns the player's collector bot on their first
// problem. Solved problems add their own bots, with yields attached.
func (c *Controller) ensureCollectorBot(sock *socket.Socket, problemID string) {
	if sock.BotExists() {
		return
	}

	seat := sock.Seat()
	c.engine.AddBot(engine.BotConfig{
		Kind:      engine.BotCollector,
		OwnerSeat: seat,
		Position:  c.engine.StartingPosition(seat),
		ProblemID: problemID,
	})
	sock.SetBotExists(true)
}

// addCollectorBot spawns a collector bot for a freshly solved problem,
// attaches the problem's yield, and harvests it for the player.
func (c *Controller) addCollectorBot(ctx context.Context, playerID string, seat int, problemID string) error {
	bot, _ := c.engine.AddBot(engine.BotConfig{
		Kind:      engine.BotCollector,
		OwnerSeat: seat,
		Position:  c.engine.StartingPosition(seat),
		ProblemID: problemID,
	})
	if err := c.store.PutObjectResources(ctx, bot.ID, problemReward); err != nil {
		c.engine.RemoveObject(bot.ID)
		return fmt.Errorf("attach bot resources: %w", err)
	}

	for _, obj := range c.engine.ObjectsByProblem(problemID) {
		if obj.Kind != engine.KindBot || obj.OwnerSeat != seat {
			continue
		}
		err := c.CollectResources(ctx, playerID, obj.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Nothing to harvest on this bot.
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CollectResources credits a game object's yield to the player and
// marks the object harvested.
func (c *Controller) CollectResources(ctx context.Context, playerID, gameObjectID string) error {
	resources, err := c.store.ObjectResources(ctx, gameObjectID)
	if err != nil {
		return fmt.Errorf("object resources: %w", err)
	}

	for _, res := range resources {
		if err := c.store.AddToResourceCount(ctx, playerID, res.Name, res.Count); err != nil {
			return fmt.Errorf("credit %s: %w", res.Name, err)
		}
	}
	if err := c.store.MarkCollected(ctx, gameObjectID); err != nil {
		return fmt.Errorf("mark collected: %w", err)
	}

	for _, res := range resources {
		c.pushCount(playerID, res.Name, res.Count, false)
	}
	return nil
}

// DoAssault applies one assault against enemyID's base and broadcasts
// the hit-point update. Driving the base to zero ends the game.
func (c *Controller) DoAssault(ctx context.Context, enemyID string) error {
	if c.engine.Status() == engine.StatusDone {
		return nil
	}

	hp, err := c.store.DecrementHP(ctx, enemyID)
	if err != nil {
		return fmt.Errorf("decrement hp: %w", err)
	}
	c.engine.SetBaseHP(enemyID, hp)

	c.players.PublishAllFunc("hp", func(playerID string) any {
		if playerID == enemyID {
			return map[string]any{"myHp": hp}
		}
		return map[string]any{"enemyHp": hp}
	})

	if hp <= 0 {
		winnerID, err := c.players.OtherPlayerID(enemyID)
		if err != nil {
			return fmt.Errorf("resolve winner: %w", err)
		}
		c.DoWinGame(winnerID)
	}
	return nil
}

// DoWinGame ends the game in winnerID's favor. Repeated calls after the
// first are no-ops.
func (c *Controller) DoWinGame(winnerID string) {
	if !c.engine.Finish() {
		return
	}

	c.log.Info().Str("player", winnerID).Msg("player has won the game")
	if err := c.players.Publish(winnerID, "gameWin", map[string]any{}); err != nil {
		c.log.Warn().Err(err).Str("player", winnerID).Msg("gameWin publish failed")
	}
	loserID, err := c.players.OtherPlayerID(winnerID)
	if err != nil {
		return
	}
	if err := c.players.Publish(loserID, "gameLose", map[string]any{}); err != nil {
		c.log.Warn().Err(err).Str("player", loserID).Msg("gameLose publish failed")
	}
}

// deductResourceCosts validates the player can afford every line of
// cost, then applies the decrements. A failure mid-sequence restores
// the balances already taken.
func (c *Controller) deductResourceCosts(ctx context.Context, playerID string, cost map[string]int64) error {
	balances, err := c.store.PlayerResources(ctx, playerID)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}
	for name, count := range cost {
		if balances[name] < count {
			return fmt.Errorf("%w: need %d %s, have %d", store.ErrInsufficientResources, count, name, balances[name])
		}
	}

	applied := make(map[string]int64, len(cost))
	for name, count := range cost {
		if count == 0 {
			continue
		}
		if err := c.store.AddToResourceCount(ctx, playerID, name, -count); err != nil {
			for rolledName, rolledCount := range applied {
				if rbErr := c.store.AddToResourceCount(ctx, playerID, rolledName, rolledCount); rbErr != nil {
					c.log.Error().Err(rbErr).Str("player", playerID).Str("resource", rolledName).Msg("rollback failed")
				}
			}
			return fmt.Errorf("deduct %s: %w", name, err)
		}
		applied[name] = count
	}

	for name, count := range applied {
		c.pushCount(playerID, name, -count, false)
	}
	return nil
}

// resourceUpdate carries a balance delta, or an absolute count when
// ShouldReset is set.
type resourceUpdate struct {
	Name        string `json:"name"`
	Count       int64  `json:"count"`
	ShouldReset bool   `json:"shouldReset"`
}

func (c *Controller) pushCount(playerID, name string, count int64, shouldReset bool) {
	update := resourceUpdate{Name: name, Count: count, ShouldReset: shouldReset}
	if err := c.players.Publish(playerID, "resourceUpdate", update); err != nil {
		c.log.Warn().Err(err).Str("player", playerID).Msg("resourceUpdate publish failed")
	}
}

// removeBot deletes a bot from the world and tells the owner their new
// count of that bot kind.
func (c *Controller) removeBot(bot *engine.GameObject) {
	if !c.engine.RemoveObject(bot.ID) {
		return
	}
	ownerID, ok := c.engine.PlayerBySeat(bot.OwnerSeat)
	if !ok {
		return
	}
	n := c.engine.NBots(bot.OwnerSeat, bot.BotKind)
	event := string(bot.BotKind) + "Count"
	if err := c.players.Publish(ownerID, event, map[string]any{"botCount": n}); err != nil {
		c.log.Warn().Err(err).Str("player", ownerID).Msg("bot count publish failed")
	}
}

// serializeProblem converts a stored problem into its client payload.
// Binary-tree problems embed their serialized tree, image problems a
// URL.
func serializeProblem(p *store.Problem) (map[string]any, error) {
	out := map[string]any{
		"id":    p.ID,
		"type":  p.Type,
		"title": p.Title,
	}
	switch p.Type {
	case "btree":
		var tree any
		if err := json.Unmarshal([]byte(p.Original), &tree); err != nil {
			return nil, fmt.Errorf("decode btree problem %s: %w", p.ID, err)
		}
		out["tree"] = tree
	case "image":
		out["url"] = p.Original
	default:
		return nil, fmt.Errorf("unknown problem type %q", p.Type)
	}
	return out, nil
}
