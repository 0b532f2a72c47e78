package engine

// Status is the lifecycle state of an instance's simulation.
type Status int

const (
	StatusActive Status = iota
	StatusDone
)

// Kind is the closed set of game-object kinds.
type Kind int

const (
	KindDefense Kind = iota
	KindBot
)

// BotKind distinguishes the bot types a player can own. The string
// value doubles as the event-name prefix for count notifications.
type BotKind string

const (
	BotAssault   BotKind = "assaultBot"
	BotCollector BotKind = "collectionBot"
)

// Position is a point in world coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GameObject is one entity in the world. Fields beyond ID/Kind are
// populated per kind: defenses carry ItemID and CounterItemID, bots
// carry BotKind plus their task fields.
type GameObject struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	OwnerSeat int      `json:"playerId"`
	Position  Position `json:"position"`

	// Defense fields
	ItemID        string `json:"itemId,omitempty"`
	CounterItemID string `json:"counterItemId,omitempty"`

	// Bot fields
	BotKind        BotKind `json:"botType,omitempty"`
	ProblemID      string  `json:"problemId,omitempty"`
	TargetPlayerID string  `json:"targetPlayerId,omitempty"`
}

// BotConfig describes a bot to spawn.
type BotConfig struct {
	Kind           BotKind
	OwnerSeat      int
	Position       Position
	ProblemID      string
	TargetPlayerID string
}
