// Package catalog defines the siege-item catalog: the buildable items,
// their resource costs, the assault-bot cost, and the starting balances
// and base hit points a session hands each player. Catalogs are JSON
// documents loaded from a config directory, with an embedded default.
package catalog

import (
	"errors"
	"fmt"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Kind is the closed set of siege-item categories.
type Kind string

const (
	// KindDefensive items are placed on the builder's own field.
	KindDefensive Kind = "defensive"

	// KindOffensive items counter an existing defense.
	KindOffensive Kind = "offensive"
)

// SiegeItem is one buildable item.
type SiegeItem struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Kind Kind             `json:"type"`
	Cost map[string]int64 `json:"cost"`
}

// Config is a complete catalog.
type Config struct {
	Name             string           `json:"name"`
	Items            []SiegeItem      `json:"siegeItems"`
	AssaultBotCost   map[string]int64 `json:"assaultBotCost"`
	InitialResources map[string]int64 `json:"initialResources"`
	InitialHP        int64            `json:"initialHP"`
}

// Item looks up a siege item by id.
func (c *Config) Item(id string) (SiegeItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return SiegeItem{}, false
}

// Validate checks catalog consistency: unique ids, known kinds,
// non-negative costs, at least one item of each kind, and positive
// starting hit points.
func Validate(c *Config) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCatalog)
	}
	if c.InitialHP <= 0 {
		return fmt.Errorf("%w: initialHP must be positive, got %d", ErrInvalidCatalog, c.InitialHP)
	}

	seen := make(map[string]bool, len(c.Items))
	kinds := make(map[Kind]int)
	for _, item := range c.Items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %q has no id", ErrInvalidCatalog, item.Name)
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate item id %q", ErrInvalidCatalog, item.ID)
		}
		seen[item.ID] = true

		switch item.Kind {
		case KindDefensive, KindOffensive:
			kinds[item.Kind]++
		default:
			return fmt.Errorf("%w: item %q has unknown kind %q", ErrInvalidCatalog, item.ID, item.Kind)
		}

		if err := validateCost(item.Cost); err != nil {
			return fmt.Errorf("%w: item %q: %v", ErrInvalidCatalog, item.ID, err)
		}
	}

	if kinds[KindDefensive] == 0 {
		return fmt.Errorf("%w: must define at least one defensive item", ErrInvalidCatalog)
	}
	if kinds[KindOffensive] == 0 {
		return fmt.Errorf("%w: must define at least one offensive item", ErrInvalidCatalog)
	}

	if err := validateCost(c.AssaultBotCost); err != nil {
		return fmt.Errorf("%w: assault bot: %v", ErrInvalidCatalog, err)
	}
	for name, count := range c.InitialResources {
		if count < 0 {
			return fmt.Errorf("%w: initial resource %q is negative", ErrInvalidCatalog, name)
		}
	}
	return nil
}

func validateCost(cost map[string]int64) error {
	for name, count := range cost {
		if count < 0 {
			return fmt.Errorf("cost %q is negative", name)
		}
	}
	return nil
}

// Default returns the built-in catalog used when no config directory is
// provided.
func Default() *Config {
	return &Config{
		Name: "classic",
		Items: []SiegeItem{
			{ID: "0", Name: "Gate", Kind: KindOffensive, Cost: map[string]int64{"wood": 4, "stone": 0}},
			{ID: "1", Name: "Bridge", Kind: KindOffensive, Cost: map[string]int64{"wood": 4, "stone": 0}},
			{ID: "2", Name: "Ladder", Kind: KindOffensive, Cost: map[string]int64{"wood": 4, "stone": 0}},
			{ID: "3", Name: "Slowfield", Kind: KindDefensive, Cost: map[string]int64{"wood": 2, "stone": 2}},
			{ID: "4", Name: "Pit", Kind: KindDefensive, Cost: map[string]int64{"wood": 1, "stone": 3}},
			{ID: "5", Name: "Fence", Kind: KindDefensive, Cost: map[string]int64{"wood": 4, "stone": 0}},
		},
		AssaultBotCost:   map[string]int64{"wood": 10, "stone": 10},
		InitialResources: map[string]int64{"wood": 20, "stone": 20},
		InitialHP:        10,
	}
}
