package fight

import (
	"slices"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
)

// CardState is the mutable part of a card in battle.
type CardState struct {
	Power int `json:"power"`
	// Stat names a special stat resolved at read time instead of Power.
	Stat      string   `json:"stat,omitempty"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"maxHealth"`
	Sigils    []string `json:"sigils,omitempty"`
	Flipped   bool     `json:"flipped,omitempty"`
	Backward  bool     `json:"backward,omitempty"`
	Evolved   bool     `json:"evolved,omitempty"`
}

// Card is a template reference plus its battle state.
type Card struct {
	TemplateID string    `json:"templateId"`
	State      CardState `json:"state"`
}

// Clone returns a deep copy of c. Clone of nil is nil.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	out := *c
	out.State.Sigils = slices.Clone(c.State.Sigils)
	return &out
}

// HasSigil reports whether the card carries the named sigil.
func (c *Card) HasSigil(name string) bool {
	return c != nil && slices.Contains(c.State.Sigils, name)
}

// Dead reports whether the card's health has reached zero.
func (c *Card) Dead() bool {
	return c != nil && c.State.Health <= 0
}

// Template is a catalogue record cards are created from.
type Template struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Power     int       `json:"power" yaml:"power"`
	Stat      string    `json:"stat,omitempty" yaml:"stat,omitempty"`
	Health    int       `json:"health" yaml:"health"`
	Sigils    []string  `json:"sigils,omitempty" yaml:"sigils,omitempty"`
	Cost      cost.Cost `json:"cost" yaml:"-"`
	Gems      cost.Gem  `json:"gems,omitempty" yaml:"-"`
	Evolution string    `json:"evolution,omitempty" yaml:"evolution,omitempty"`
}

// Instance creates a fresh card from the template.
func (t Template) Instance() *Card {
	return &Card{
		TemplateID: t.ID,
		State: CardState{
			Power:     t.Power,
			Stat:      t.Stat,
			Health:    t.Health,
			MaxHealth: t.Health,
			Sigils:    slices.Clone(t.Sigils),
		},
	}
}

// Templates resolves template ids.
type Templates interface {
	Template(id string) (Template, bool)
}
