// Package content holds the starter card catalogue and the built-in sigils, and
// assembles them into the registry a ruleset runs with.
package content

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

//go:embed cards.yaml
var starterCards []byte

type cardRecord struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Power     int      `yaml:"power"`
	Stat      string   `yaml:"stat"`
	Health    int      `yaml:"health"`
	Sigils    []string `yaml:"sigils"`
	Cost      string   `yaml:"cost"`
	Gems      []string `yaml:"gems"`
	Evolution string   `yaml:"evolution"`
}

type catalogFile struct {
	Cards []cardRecord              `yaml:"cards"`
	Decks map[string]fight.DeckList `yaml:"decks"`
}

// Catalog is an immutable set of card templates and named decks.
type Catalog struct {
	templates map[string]fight.Template
	decks     map[string]fight.DeckList
}

var _ fight.Templates = (*Catalog)(nil)

// NormalizeID canonicalizes a template id: trimmed and NFC-normalized so ids typed
// on different platforms compare equal.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Starter returns the embedded starter catalogue.
func Starter() (*Catalog, error) {
	return ParseCatalog(starterCards)
}

// MustStarter is Starter for package initialisation and tests.
func MustStarter() *Catalog {
	c, err := Starter()
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog reads a YAML catalogue and checks that every evolution and deck
// entry refers to a known template.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		templates: make(map[string]fight.Template, len(file.Cards)),
		decks:     make(map[string]fight.DeckList, len(file.Decks)),
	}
	for _, rec := range file.Cards {
		t, err := rec.template()
		if err != nil {
			return nil, err
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", t.ID)
		}
		c.templates[t.ID] = t
	}
	for id, t := range c.templates {
		if t.Evolution == "" {
			continue
		}
		if _, ok := c.templates[t.Evolution]; !ok {
			return nil, fmt.Errorf("card %q evolves into unknown card %q", id, t.Evolution)
		}
	}
	for name, deck := range file.Decks {
		list := fight.DeckList{Main: normalizeAll(deck.Main), Side: normalizeAll(deck.Side)}
		if err := c.Validate(list); err != nil {
			return nil, fmt.Errorf("deck %q: %w", name, err)
		}
		c.decks[name] = list
	}
	return c, nil
}

func (rec cardRecord) template() (fight.Template, error) {
	id := NormalizeID(rec.ID)
	if id == "" {
		return fight.Template{}, fmt.Errorf("card %q has no id", rec.Name)
	}
	if rec.Health < 0 || rec.Power < 0 {
		return fight.Template{}, fmt.Errorf("card %q has negative stats", id)
	}
	c, err := cost.ParseCost(rec.Cost)
	if err != nil {
		return fight.Template{}, fmt.Errorf("card %q: %w", id, err)
	}
	var gems cost.Gem
	for _, name := range rec.Gems {
		g, err := cost.ParseGem(name)
		if err != nil {
			return fight.Template{}, fmt.Errorf("card %q: %w", id, err)
		}
		gems |= g
	}
	return fight.Template{
		ID:        id,
		Name:      rec.Name,
		Power:     rec.Power,
		Stat:      rec.Stat,
		Health:    rec.Health,
		Sigils:    rec.Sigils,
		Cost:      c,
		Gems:      gems,
		Evolution: NormalizeID(rec.Evolution),
	}, nil
}

func normalizeAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = NormalizeID(id)
	}
	return out
}

// Template resolves a template id.
func (c *Catalog) Template(id string) (fight.Template, bool) {
	t, ok := c.templates[NormalizeID(id)]
	return t, ok
}

// IDs returns every template id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Deck returns a named deck.
func (c *Catalog) Deck(name string) (fight.DeckList, bool) {
	d, ok := c.decks[name]
	if !ok {
		return fight.DeckList{}, false
	}
	return fight.DeckList{
		Main: append([]string(nil), d.Main...),
		Side: append([]string(nil), d.Side...),
	}, true
}

// DeckNames returns the named decks, sorted.
func (c *Catalog) DeckNames() []string {
	names := make([]string, 0, len(c.decks))
	for name := range c.decks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every card of a deck list exists.
func (c *Catalog) Validate(list fight.DeckList) error {
	for _, id := range append(append([]string(nil), list.Main...), list.Side...) {
		if _, ok := c.Template(id); !ok {
			return fmt.Errorf("unknown card %q", id)
		}
	}
	return nil
}

// Sigils returns every sigil name some template carries, sorted.
func (c *Catalog) Sigils() []string {
	seen := map[string]bool{}
	for _, t := range c.templates {
		for _, s := range t.Sigils {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
