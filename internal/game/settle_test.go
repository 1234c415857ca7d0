package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

var (
	sideA = fight.SideA
	sideB = fight.SideB
)

func TestDrawFromEmptyMainDeckRejected(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{{Side: []string{"squirrel"}}})
	b.Turn(sideA, fight.PhaseDraw)

	b.Reject(sideA, Action{Type: ActionDraw, Deck: fight.DeckMain}, apperrors.KindInvalidAction)
	assert.Empty(t, b.host.Log)

	settled := b.Apply(sideA, Action{Type: ActionDraw, Deck: fight.DeckSide})
	assert.Equal(t, []rules.Kind{rules.KindDraw, rules.KindPhase}, kinds(settled))
	require.Len(t, b.host.Fight.Hands[sideA], 1)
	assert.Equal(t, "squirrel", b.host.Fight.Hands[sideA][0].TemplateID)
	assert.Equal(t, fight.PhasePlay, b.host.Fight.Turn.Phase)
}

func TestDrawPhaseWithDisabledSideDeckMovesOn(t *testing.T) {
	opts := fight.DefaultOptions()
	opts.Features = []string{fight.FeatureHammer, fight.FeatureEnergy}
	b := NewBattleHarnessWith(t, starterRegistry(t), opts, [2]fight.DeckList{{Side: []string{"squirrel"}}})

	settled := b.Run(rules.NewPhase(sideA, fight.PhaseDraw))

	assert.Equal(t, []rules.Kind{rules.KindPhase, rules.KindPhase}, kinds(settled))
	assert.Equal(t, fight.Turn{Side: sideA, Phase: fight.PhasePlay}, b.host.Fight.Turn)
	assert.Equal(t, 1, b.host.Fight.Decks[sideA].Side.Len())
	b.Reject(sideA, Action{Type: ActionDraw, Deck: fight.DeckSide}, apperrors.KindInvalidAction)
	b.Apply(sideA, Action{Type: ActionBellRing})
	assert.Equal(t, sideB, b.host.Fight.Turn.Side)
}

func TestRedirectedDrawTakesTheNewPick(t *testing.T) {
	reg := starterRegistry(t)
	reg.MustRegister(effects.NewBehavior("redirect").
		Writer(rules.KindDraw, func(c effects.WriterContext) {
			if d := c.Edit().Draw; d.Deck == fight.DeckMain {
				d.Pick = 1
			}
		}).
		Build())

	b := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), [2]fight.DeckList{{Main: []string{"stoat", "wolf", "sparrow"}}})
	b.Turn(sideA, fight.PhaseDraw)
	b.Place(sideB, 3, "stoat").State.Sigils = []string{"redirect"}
	b.snapshot()

	settled := b.Apply(sideA, Action{Type: ActionDraw, Deck: fight.DeckMain})

	require.Equal(t, rules.KindDraw, settled[0].Kind)
	assert.Equal(t, "wolf", settled[0].Draw.Card.TemplateID)
	require.Len(t, b.host.Fight.Hands[sideA], 1)
	assert.Equal(t, "wolf", b.host.Fight.Hands[sideA][0].TemplateID)
	assert.Equal(t, []string{"sparrow", "stoat"}, b.host.Fight.Decks[sideA].Main.Remaining())
}

func TestPlayCorrectsPendingHandReferences(t *testing.T) {
	reg := starterRegistry(t)
	reg.MustRegister(effects.NewBehavior("tipster").
		As(rules.RolePlayed).
		Reader(rules.KindPlay, func(c effects.Context) {
			// Positions as the hand stood before the play committed.
			c.Emit(
				rules.NewFlip(fight.HandPos(sideA, 2)),
				rules.NewFlip(fight.HandPos(sideA, 1)),
				rules.NewStats(fight.HandPos(sideA, 0), 1, 0),
			)
		}).
		Build())

	b := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), [2]fight.DeckList{})
	b.Turn(sideA, fight.PhasePlay)
	b.Give(sideA, "squirrel", "stoat", "wolf", "grizzly")
	b.host.Fight.Hands[sideA][0].State.Sigils = []string{"tipster"}
	b.snapshot()

	settled := b.Apply(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 0})

	assert.Equal(t, []rules.Kind{rules.KindPlay, rules.KindFlip, rules.KindFlip}, kinds(settled))
	hand := b.host.Fight.Hands[sideA]
	require.Len(t, hand, 3)
	assert.Equal(t, "wolf", hand[1].TemplateID)
	assert.True(t, hand[1].State.Flipped, "the flip follows the wolf to its new index")
	assert.Equal(t, "stoat", hand[0].TemplateID)
	assert.True(t, hand[0].State.Flipped)
	assert.False(t, hand[2].State.Flipped)
	assert.Equal(t, 0, b.At(sideA, 0).State.Power, "stats aimed at the played card's old slot are dropped")
}

func TestSacrificePayment(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{})
	b.Turn(sideA, fight.PhasePlay)
	b.Place(sideA, 0, "stoat")
	b.Place(sideA, 1, "blackGoat")
	b.Give(sideA, "wolf")

	// The goat alone pays for the wolf, so adding the stoat overpays.
	b.Reject(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 2, Sacrifices: []int{0, 1}}, apperrors.KindInvalidAction)
	b.Reject(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 2, Sacrifices: []int{0}}, apperrors.KindInsufficientResources)
	b.Reject(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 2, Sacrifices: []int{1, 1}}, apperrors.KindInvalidAction)
	b.Reject(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 0, Sacrifices: []int{1}}, apperrors.KindInvalidAction)

	settled := b.Apply(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 1, Sacrifices: []int{1}})
	assert.Equal(t, []rules.Kind{rules.KindPerish, rules.KindBones, rules.KindPlay}, kinds(settled))
	assert.Equal(t, rules.CauseSacrifice, settled[0].Perish.Cause)
	assert.Equal(t, "wolf", b.At(sideA, 1).TemplateID)
	assert.Equal(t, 1, b.host.Fight.Players[sideA].Bones)
	assert.Empty(t, b.host.Fight.Hands[sideA])
}

func TestZeroHealthCardPerishesBeforeDraw(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{{Main: []string{"stoat"}}})
	b.Turn(sideA, fight.PhaseDraw)
	b.Place(sideB, 0, "stoat").State.Health = 0
	b.snapshot()

	settled := b.Apply(sideA, Action{Type: ActionDraw, Deck: fight.DeckMain})

	assert.Equal(t, []rules.Kind{rules.KindPerish, rules.KindBones, rules.KindDraw, rules.KindPhase}, kinds(settled))
	assert.Equal(t, fight.FieldPos(sideB, 0), settled[0].Perish.Pos)
	assert.Equal(t, rules.CauseAttack, settled[0].Perish.Cause)
	assert.Nil(t, b.At(sideB, 0))
	assert.Equal(t, 1, b.host.Fight.Players[sideB].Bones)
}

func TestHoarderSuspendsAndResumes(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{{Main: []string{"stoat", "wolf", "sparrow"}}})
	b.Turn(sideA, fight.PhasePlay)
	b.Place(sideA, 0, "squirrel")
	b.Place(sideA, 1, "squirrel")
	b.Give(sideA, "magpie")

	settled := b.Apply(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 2, Sacrifices: []int{0, 1}})
	require.NotEmpty(t, settled)
	assert.Equal(t, rules.KindRequest, settled[len(settled)-1].Kind)

	w := b.host.Waiting
	require.NotNil(t, w)
	assert.Equal(t, sideA, w.Side)
	assert.Equal(t, content.SigilHoarder, w.Behavior)
	assert.Equal(t, fight.FieldPos(sideA, 2), w.Pos)
	assert.Equal(t, []string{"sparrow", "stoat", "wolf"}, w.Request.Cards)

	// No action is accepted while the request is open.
	b.Reject(sideA, Action{Type: ActionBellRing}, apperrors.KindInvalidAction)

	for _, res := range []struct {
		side fight.Side
		res  rules.Response
	}{
		{sideA, rules.Response{Type: rules.RequestChooseCard, Index: 5}},
		{sideA, rules.Response{Type: rules.RequestChooseCard, Index: -1}},
		{sideA, rules.Response{Type: rules.RequestConfirm, Confirmed: true}},
		{sideB, rules.Response{Type: rules.RequestChooseCard, Index: 0}},
	} {
		before := b.host.Clone()
		_, err := b.resolver.Respond(b.host, res.side, res.res)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidAction), "error: %v", err)
		assert.Equal(t, before, b.host)
		assert.NotNil(t, b.host.Waiting)
	}

	settled, err := b.resolver.Respond(b.host, sideA, rules.Response{Type: rules.RequestChooseCard, Index: 2})
	require.NoError(t, err)
	assert.Equal(t, []rules.Kind{rules.KindResponse, rules.KindDraw}, kinds(settled))
	assert.Nil(t, b.host.Waiting)
	assert.Empty(t, b.host.Backlog)

	hand := b.host.Fight.Hands[sideA]
	require.Len(t, hand, 1)
	assert.Equal(t, "wolf", hand[0].TemplateID)
	assert.Equal(t, []string{"sparrow", "stoat"}, b.host.Fight.Decks[sideA].Main.Remaining())

	_, err = b.resolver.Respond(b.host, sideA, rules.Response{Type: rules.RequestChooseCard})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidAction))
}

// syncHoarder answers its own question: it always takes the wolf.
func syncHoarder() *effects.Behavior {
	return effects.NewBehavior(content.SigilHoarder).
		As(rules.RolePlayed).
		Cleanup(rules.KindPlay, func(c effects.Context) {
			deck := c.Deck(c.Self().Side, fight.DeckMain)
			for i := range deck.Len() {
				if id, _ := deck.Peek(i); id == "wolf" {
					c.Emit(rules.Event{Kind: rules.KindDraw, Draw: &rules.Draw{Side: c.Self().Side, Deck: fight.DeckMain, Pick: i}})
				}
			}
		}).
		Build()
}

func TestSuspensionMatchesSynchronousAnswer(t *testing.T) {
	decks := [2]fight.DeckList{{Main: []string{"stoat", "wolf", "sparrow"}}}
	setup := func(b *BattleHarness) {
		b.Turn(sideA, fight.PhasePlay)
		b.Place(sideA, 0, "squirrel")
		b.Place(sideA, 1, "squirrel")
		b.Give(sideA, "magpie", "stoat")
	}
	play := Action{Type: ActionPlay, Hand: 0, Lane: 2, Sacrifices: []int{0, 1}}

	suspended := NewBattleHarness(t, decks)
	setup(suspended)
	suspended.Apply(sideA, play)
	require.NotNil(t, suspended.host.Waiting)
	_, err := suspended.resolver.Respond(suspended.host, sideA, rules.Response{Type: rules.RequestChooseCard, Index: 2})
	require.NoError(t, err)

	reg := effects.NewRegistry(content.MustStarter(), zaptest.NewLogger(t))
	for _, s := range content.Sigils() {
		if s.Name != content.SigilHoarder {
			reg.MustRegister(s)
		}
	}
	reg.MustRegister(syncHoarder())
	direct := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), decks)
	setup(direct)
	direct.Apply(sideA, play)
	require.Nil(t, direct.host.Waiting)

	assert.Equal(t, ComputeChecksum(direct.host.Fight), ComputeChecksum(suspended.host.Fight))
	assert.Equal(t, direct.host.Fight, suspended.host.Fight)
}

func TestFatalErrorRollsBack(t *testing.T) {
	reg := starterRegistry(t)
	reg.MustRegister(effects.NewBehavior("cursed").
		Reader(rules.KindDraw, func(effects.Context) { panic("boom") }).
		Build())

	b := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), [2]fight.DeckList{{Main: []string{"stoat"}}})
	b.Turn(sideA, fight.PhaseDraw)
	b.Place(sideB, 3, "stoat").State.Sigils = []string{"cursed"}
	b.snapshot()

	before := b.host.Clone()
	_, err := b.resolver.Apply(b.host, sideA, Action{Type: ActionDraw, Deck: fight.DeckMain})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidEvent), "error: %v", err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Equal(t, before, b.host)
}

func TestWriterMisuseIsFatal(t *testing.T) {
	reg := starterRegistry(t)
	reg.MustRegister(effects.NewBehavior("meddler").
		Cleanup(rules.KindBones, func(c effects.Context) {
			c.(effects.WriterContext).Cancel()
		}).
		Build())

	b := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), [2]fight.DeckList{})
	b.Place(sideA, 0, "stoat").State.Sigils = []string{"meddler"}
	b.snapshot()

	_, err := b.resolver.Run(b.host, rules.NewQueue(rules.NewBones(sideA, 1)))
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidEvent), "error: %v", err)
	assert.Equal(t, 0, b.host.Fight.Players[sideA].Bones)
	assert.Empty(t, b.host.Log)
}

func TestRunawayChainHitsCeiling(t *testing.T) {
	reg := starterRegistry(t)
	reg.MustRegister(effects.NewBehavior("echo").
		Cleanup(rules.KindBones, func(c effects.Context) {
			c.Emit(rules.NewBones(c.Self().Side, 1))
		}).
		Build())

	b := NewBattleHarnessWith(t, reg, fight.DefaultOptions(), [2]fight.DeckList{})
	b.resolver = NewResolver(reg, zaptest.NewLogger(t), 100)
	b.Place(sideA, 0, "stoat").State.Sigils = []string{"echo"}
	b.snapshot()

	_, err := b.resolver.Run(b.host, rules.NewQueue(rules.NewBones(sideA, 1)))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindMaxStackSize), "error: %v", err)
	assert.Equal(t, 0, b.host.Fight.Players[sideA].Bones)
}

func TestStaleEventsAreSkipped(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{})
	b.Place(sideA, 0, "stoat")

	settled := b.Run(
		rules.NewPerish(fight.FieldPos(sideA, 0), rules.CauseEffect),
		rules.NewHeal(fight.FieldPos(sideA, 0), 1),
		rules.NewMove(fight.FieldPos(sideA, 0), fight.FieldPos(sideA, 1)),
	)
	assert.Equal(t, []rules.Kind{rules.KindPerish, rules.KindBones}, kinds(settled))
}

func TestConservationOfUntouchedCounters(t *testing.T) {
	b := NewBattleHarness(t, [2]fight.DeckList{})
	b.Place(sideA, 0, "stoat")
	b.Place(sideB, 1, "wolf")
	b.Player(sideA, func(p *fight.Player) { p.Bones = 4; p.Energy = fight.Energy{Current: 2, Capacity: 3} })
	before := b.host.Fight.Clone()

	b.Run(
		rules.NewHeal(fight.FieldPos(sideA, 0), 1),
		rules.NewMove(fight.FieldPos(sideA, 0), fight.FieldPos(sideA, 2)),
		rules.NewFlip(fight.FieldPos(sideB, 1)),
		rules.NewStats(fight.FieldPos(sideB, 1), 1, 1),
	)

	after := b.host.Fight
	assert.Equal(t, before.Players, after.Players)
	assert.Equal(t, before.Points, after.Points)
}
