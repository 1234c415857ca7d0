package fight

import (
	"math/rand"
	"slices"
	"sort"
)

// DeckKind selects a side's main or side deck.
type DeckKind string

const (
	DeckMain DeckKind = "main"
	DeckSide DeckKind = "side"
)

// Valid reports whether k names a deck.
func (k DeckKind) Valid() bool {
	return k == DeckMain || k == DeckSide
}

// Deck is a template pool with a shuffled draw order. Order holds the pool
// indices still in the deck, front first.
type Deck struct {
	Pool  []string `json:"pool"`
	Order []int    `json:"order"`
}

// NewDeck shuffles pool with rng. A nil rng keeps the listed order.
func NewDeck(pool []string, rng *rand.Rand) Deck {
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return Deck{Pool: slices.Clone(pool), Order: order}
}

// Len returns the number of cards left to draw.
func (d Deck) Len() int {
	return len(d.Order)
}

// Peek returns the template at draw position i.
func (d Deck) Peek(i int) (string, bool) {
	if i < 0 || i >= len(d.Order) {
		return "", false
	}
	return d.Pool[d.Order[i]], true
}

// Take removes the card at draw position i.
func (d *Deck) Take(i int) string {
	id := d.Pool[d.Order[i]]
	d.Order = append(d.Order[:i:i], d.Order[i+1:]...)
	return id
}

// Remaining returns the templates still in the deck, sorted so the order is not revealed.
func (d Deck) Remaining() []string {
	out := make([]string, 0, len(d.Order))
	for _, idx := range d.Order {
		out = append(out, d.Pool[idx])
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (d Deck) Clone() Deck {
	return Deck{Pool: slices.Clone(d.Pool), Order: slices.Clone(d.Order)}
}

// DeckPair holds a side's two decks.
type DeckPair struct {
	Main Deck `json:"main"`
	Side Deck `json:"side"`
}

// Get returns the deck of the given kind, or nil for an unknown kind.
func (p *DeckPair) Get(kind DeckKind) *Deck {
	switch kind {
	case DeckMain:
		return &p.Main
	case DeckSide:
		return &p.Side
	}
	return nil
}

// Clone returns a deep copy.
func (p DeckPair) Clone() DeckPair {
	return DeckPair{Main: p.Main.Clone(), Side: p.Side.Clone()}
}
