package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// BattleHarness sets up boards directly and drives them through the resolver.
type BattleHarness struct {
	t        *testing.T
	resolver *Resolver
	host     *Host
}

func starterRegistry(t *testing.T) *effects.Registry {
	t.Helper()
	reg, _, err := content.Ruleset(content.StarterRuleset, zaptest.NewLogger(t))
	require.NoError(t, err)
	return reg
}

// NewBattleHarness creates an empty battle on the starter ruleset. Decks are
// kept in the listed order.
func NewBattleHarness(t *testing.T, decks [2]fight.DeckList) *BattleHarness {
	t.Helper()
	return NewBattleHarnessWith(t, starterRegistry(t), fight.DefaultOptions(), decks)
}

// NewBattleHarnessWith creates an empty battle over a custom registry.
func NewBattleHarnessWith(t *testing.T, reg *effects.Registry, opts fight.Options, decks [2]fight.DeckList) *BattleHarness {
	t.Helper()
	f, err := fight.New(opts, decks, nil)
	require.NoError(t, err)
	return &BattleHarness{
		t:        t,
		resolver: NewResolver(reg, zaptest.NewLogger(t), 0),
		host: &Host{
			ID:      "battle-test",
			Ruleset: opts.Ruleset,
			Seed:    7,
			Fight:   f,
			Initial: f.Clone(),
		},
	}
}

func (b *BattleHarness) card(id string) *fight.Card {
	b.t.Helper()
	tmpl, ok := b.resolver.Registry().Template(id)
	require.True(b.t, ok, "unknown template %s", id)
	return tmpl.Instance()
}

// Place puts a fresh card on the field.
func (b *BattleHarness) Place(side fight.Side, lane int, id string) *fight.Card {
	c := b.card(id)
	b.host.Fight.Field[side][lane] = c
	b.snapshot()
	return c
}

// Give appends fresh cards to a hand.
func (b *BattleHarness) Give(side fight.Side, ids ...string) {
	for _, id := range ids {
		b.host.Fight.Hands[side] = append(b.host.Fight.Hands[side], b.card(id))
	}
	b.snapshot()
}

// Turn moves the turn pointer without settling anything.
func (b *BattleHarness) Turn(side fight.Side, phase fight.Phase) {
	b.host.Fight.Turn = fight.Turn{Side: side, Phase: phase}
	b.snapshot()
}

// Player edits a side's counters.
func (b *BattleHarness) Player(side fight.Side, edit func(p *fight.Player)) {
	edit(&b.host.Fight.Players[side])
	b.snapshot()
}

// snapshot keeps Initial equal to the set-up board so replays start from it.
func (b *BattleHarness) snapshot() {
	if len(b.host.Log) == 0 {
		b.host.Initial = b.host.Fight.Clone()
	}
}

// Apply runs an action that must be accepted.
func (b *BattleHarness) Apply(side fight.Side, a Action) []rules.Event {
	b.t.Helper()
	settled, err := b.resolver.Apply(b.host, side, a)
	require.NoError(b.t, err)
	return settled
}

// Reject runs an action that must be refused with kind.
func (b *BattleHarness) Reject(side fight.Side, a Action, kind apperrors.Kind) {
	b.t.Helper()
	before := b.host.Clone()
	_, err := b.resolver.Apply(b.host, side, a)
	require.Error(b.t, err)
	got, ok := apperrors.KindOf(err)
	require.True(b.t, ok, "untagged error: %v", err)
	require.Equal(b.t, kind, got, "error: %v", err)
	require.Equal(b.t, before, b.host, "rejected action changed the battle")
}

// Run settles events as if an action had produced them.
func (b *BattleHarness) Run(events ...rules.Event) []rules.Event {
	b.t.Helper()
	settled, err := b.resolver.Run(b.host, rules.NewQueue(events...))
	require.NoError(b.t, err)
	return settled
}

func (b *BattleHarness) At(side fight.Side, lane int) *fight.Card {
	return b.host.Fight.Field[side][lane]
}

func kinds(events []rules.Event) []rules.Kind {
	out := make([]rules.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func countKind(events []rules.Event, kind rules.Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
