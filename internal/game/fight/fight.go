// Package fight holds the authoritative battle state. It has no behavior beyond
// queries and structural edits; every rules mutation goes through settled events.
package fight

import (
	"fmt"
	"math/rand"
	"slices"
)

// Feature flags a battle can enable.
const (
	FeatureHammer   = "hammer"
	FeatureEnergy   = "energy"
	FeatureSideDeck = "sideDeck"
)

// Options is the immutable battle configuration.
type Options struct {
	Lanes          int      `json:"lanes" mapstructure:"lanes"`
	StartingHand   int      `json:"startingHand" mapstructure:"starting_hand"`
	Lives          int      `json:"lives" mapstructure:"lives"`
	HammersPerTurn int      `json:"hammersPerTurn" mapstructure:"hammers_per_turn"`
	ScaleLimit     int      `json:"scaleLimit" mapstructure:"scale_limit"`
	MaxEnergy      int      `json:"maxEnergy" mapstructure:"max_energy"`
	Features       []string `json:"features,omitempty" mapstructure:"features"`
	Ruleset        string   `json:"ruleset" mapstructure:"ruleset"`
}

// DefaultOptions returns the standard four-lane configuration.
func DefaultOptions() Options {
	return Options{
		Lanes:          4,
		StartingHand:   3,
		Lives:          2,
		HammersPerTurn: 1,
		ScaleLimit:     5,
		MaxEnergy:      6,
		Features:       []string{FeatureHammer, FeatureEnergy, FeatureSideDeck},
		Ruleset:        "starter",
	}
}

// Enabled reports whether a feature flag is set.
func (o Options) Enabled(feature string) bool {
	return slices.Contains(o.Features, feature)
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	switch {
	case o.Lanes < 1:
		return fmt.Errorf("lanes must be positive, got %d", o.Lanes)
	case o.Lives < 1:
		return fmt.Errorf("lives must be positive, got %d", o.Lives)
	case o.StartingHand < 0:
		return fmt.Errorf("starting hand must not be negative, got %d", o.StartingHand)
	case o.ScaleLimit < 1:
		return fmt.Errorf("scale limit must be positive, got %d", o.ScaleLimit)
	case o.MaxEnergy < 0 || o.MaxEnergy > 6:
		return fmt.Errorf("max energy must be within 0..6, got %d", o.MaxEnergy)
	case o.HammersPerTurn < 0:
		return fmt.Errorf("hammers per turn must not be negative, got %d", o.HammersPerTurn)
	}
	return nil
}

// Energy is a side's energy cell.
type Energy struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

// Player holds a side's resource counters.
type Player struct {
	Bones       int    `json:"bones"`
	Energy      Energy `json:"energy"`
	Deaths      int    `json:"deaths"`
	HammersUsed int    `json:"hammersUsed"`
}

// Fight is the battle aggregate.
type Fight struct {
	Options  Options     `json:"options"`
	Turn     Turn        `json:"turn"`
	Field    [2][]*Card  `json:"field"`
	Hands    [2][]*Card  `json:"hands"`
	Decks    [2]DeckPair `json:"decks"`
	Players  [2]Player   `json:"players"`
	Points   [2]int      `json:"points"`
	MustPlay [2]*int     `json:"mustPlay"`
}

// DeckList is the template pool a side brings to a battle.
type DeckList struct {
	Main []string `json:"main" yaml:"main"`
	Side []string `json:"side" yaml:"side"`
}

// New creates a fight with empty boards and decks shuffled by rng.
// The turn starts at SideA's pre-turn; nothing has been drawn yet.
func New(opts Options, decks [2]DeckList, rng *rand.Rand) (*Fight, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	f := &Fight{
		Options: opts,
		Turn:    Turn{Side: SideA, Phase: PhasePreTurn},
	}
	for _, side := range Sides {
		f.Field[side] = make([]*Card, opts.Lanes)
		f.Hands[side] = []*Card{}
		f.Decks[side] = DeckPair{
			Main: NewDeck(decks[side].Main, rng),
			Side: NewDeck(decks[side].Side, rng),
		}
	}
	return f, nil
}

// Clone returns a deep copy of the fight.
func (f *Fight) Clone() *Fight {
	out := *f
	out.Options.Features = slices.Clone(f.Options.Features)
	for _, side := range Sides {
		out.Field[side] = cloneCards(f.Field[side])
		out.Hands[side] = cloneCards(f.Hands[side])
		out.Decks[side] = f.Decks[side].Clone()
		if f.MustPlay[side] != nil {
			idx := *f.MustPlay[side]
			out.MustPlay[side] = &idx
		}
	}
	return &out
}

func cloneCards(cards []*Card) []*Card {
	if cards == nil {
		return nil
	}
	out := make([]*Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// At returns the card at pos, or nil when the slot is empty or out of range.
func (f *Fight) At(pos Pos) *Card {
	if !pos.Side.Valid() {
		return nil
	}
	var cards []*Card
	switch pos.Area {
	case AreaField:
		cards = f.Field[pos.Side]
	case AreaHand:
		cards = f.Hands[pos.Side]
	default:
		return nil
	}
	if pos.Index < 0 || pos.Index >= len(cards) {
		return nil
	}
	return cards[pos.Index]
}

// InBounds reports whether pos addresses an existing slot, occupied or not.
func (f *Fight) InBounds(pos Pos) bool {
	if !pos.Side.Valid() || pos.Index < 0 {
		return false
	}
	switch pos.Area {
	case AreaField:
		return pos.Index < len(f.Field[pos.Side])
	case AreaHand:
		return pos.Index < len(f.Hands[pos.Side])
	}
	return false
}

// LaneInRange reports whether lane is a valid field column.
func (f *Fight) LaneInRange(lane int) bool {
	return lane >= 0 && lane < f.Options.Lanes
}

// CanDraw reports whether side has a card left in a deck it may draw from.
// The side deck only counts while the side deck feature is enabled.
func (f *Fight) CanDraw(side Side) bool {
	decks := f.Decks[side]
	if decks.Main.Len() > 0 {
		return true
	}
	return f.Options.Enabled(FeatureSideDeck) && decks.Side.Len() > 0
}

// RemoveFromHand removes and returns the hand card at index, shifting mustPlay.
func (f *Fight) RemoveFromHand(side Side, index int) *Card {
	hand := f.Hands[side]
	card := hand[index]
	f.Hands[side] = append(hand[:index:index], hand[index+1:]...)
	f.MustPlay[side] = ShiftHandIndex(f.MustPlay[side], index)
	return card
}

// ShiftHandIndex corrects a hand index after the card at removed left the hand.
// It returns nil when ref pointed at the removed card.
func ShiftHandIndex(ref *int, removed int) *int {
	if ref == nil {
		return nil
	}
	switch {
	case *ref == removed:
		return nil
	case *ref > removed:
		idx := *ref - 1
		return &idx
	default:
		idx := *ref
		return &idx
	}
}

// FieldCards iterates the occupied field slots of side in lane order.
func (f *Fight) FieldCards(side Side) []Pos {
	var out []Pos
	for lane, c := range f.Field[side] {
		if c != nil {
			out = append(out, FieldPos(side, lane))
		}
	}
	return out
}

// Over reports whether a side has lost all its lives.
func (f *Fight) Over() bool {
	_, ok := f.Winner()
	return ok
}

// Winner returns the surviving side once the other side's deaths reach lives.
func (f *Fight) Winner() (Side, bool) {
	for _, side := range Sides {
		if f.Players[side].Deaths >= f.Options.Lives {
			return side.Other(), true
		}
	}
	return SideA, false
}
