package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchItem is returned when a label maps to no resource kind.
	ErrNoSuchItem = errors.New("no such item")
	// ErrNoSuchBuilding is returned when a label maps to no building kind.
	ErrNoSuchBuilding = errors.New("no such building")
)

// Item is one of the six tradeable resource kinds.
type Item uint8

const (
	Gold Item = iota
	Wood
	Diamond
	Ore
	Food
	Iron
)

var itemLabels = map[Item]string{
	Gold:    "gold",
	Wood:    "wood",
	Diamond: "diamond",
	Ore:     "ore",
	Food:    "food",
	Iron:    "iron",
}

var itemsByLabel = map[string]Item{
	"gold":    Gold,
	"wood":    Wood,
	"diamond": Diamond,
	"ore":     Ore,
	"food":    Food,
	"iron":    Iron,
}

// Items returns every resource kind in canonical order.
func Items() []Item {
	return []Item{Gold, Wood, Diamond, Ore, Food, Iron}
}

// Label returns the display label for the item.
func (i Item) Label() string {
	return itemLabels[i]
}

func (i Item) String() string { return i.Label() }

// ItemFromLabel resolves a display label back to an Item.
func ItemFromLabel(label string) (Item, error) {
	item, ok := itemsByLabel[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoSuchItem, label)
	}
	return item, nil
}

// Building is one of the six ownable structures.
type Building uint8

const (
	Farm Building = iota
	SuperFarm
	Miner
	SuperMiner
	Bank
	Cannon
)

// The label tables are exhaustive in both directions; tier resolution never
// falls back to substring matching.
var buildingLabels = map[Building]string{
	Farm:       "farm",
	SuperFarm:  "super farm",
	Miner:      "miner",
	SuperMiner: "super miner",
	Bank:       "bank",
	Cannon:     "cannon",
}

var buildingsByLabel = map[string]Building{
	"farm":        Farm,
	"super farm":  SuperFarm,
	"miner":       Miner,
	"super miner": SuperMiner,
	"bank":        Bank,
	"cannon":      Cannon,
}

// Buildings returns every building kind in canonical order.
func Buildings() []Building {
	return []Building{Farm, SuperFarm, Miner, SuperMiner, Bank, Cannon}
}

// Label returns the display label for the building.
func (b Building) Label() string {
	return buildingLabels[b]
}

func (b Building) String() string { return b.Label() }

// BuildingFromLabel resolves a display label back to a Building.
func BuildingFromLabel(label string) (Building, error) {
	building, ok := buildingsByLabel[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoSuchBuilding, label)
	}
	return building, nil
}
