package content

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Built-in sigil names.
const (
	SigilAirborne     = "airborne"
	SigilWaterborne   = "waterborne"
	SigilBurrower     = "burrower"
	SigilSprinter     = "sprinter"
	SigilHefty        = "hefty"
	SigilFledgling    = "fledgling"
	SigilBoneDigger   = "boneDigger"
	SigilWorthy       = "worthy"
	SigilTouchOfDeath = "touchOfDeath"
	SigilSharpQuills  = "sharpQuills"
	SigilRabbitHole   = "rabbitHole"
	SigilHoarder      = "hoarder"
	SigilUrgent       = "urgent"
	SigilAmorphous    = "amorphous"
	SigilStinky       = "stinky"
	SigilLeader       = "leader"
	SigilMending      = "mending"
	SigilEnlarge      = "enlarge"
	SigilArmored      = "armored"
	SigilBoneless     = "boneless"
	SigilUnkillable   = "unkillable"
)

// Special stat names.
const (
	StatAnt    = "ant"
	StatMirror = "mirror"
)

// amorphousPool is what an amorphous card can turn into when drawn.
var amorphousPool = []string{
	SigilAirborne,
	SigilSharpQuills,
	SigilMending,
	SigilStinky,
	SigilTouchOfDeath,
	SigilSprinter,
}

// Sigils returns the built-in behaviors.
func Sigils() []*effects.Behavior {
	return []*effects.Behavior{
		effects.NewBehavior(SigilAirborne).
			Describe("Attacks the opponent directly, over any card in the way.").
			As(rules.RolePlayed).
			Writer(rules.KindAttack, func(c effects.WriterContext) {
				c.Edit().Attack.Direct = true
			}).
			Build(),

		effects.NewBehavior(SigilWaterborne).
			Describe("Attacks aimed at this card pass under it and strike the owner.").
			As(rules.RoleAttackee).
			Writer(rules.KindAttack, func(c effects.WriterContext) {
				c.Edit().Attack.Direct = true
			}).
			Build(),

		effects.NewBehavior(SigilBurrower).
			Describe("Moves into an empty lane of its side that is about to be attacked.").
			Writer(rules.KindAttack, burrow).
			Build(),

		effects.NewBehavior(SigilSprinter).
			Describe("After its owner attacks, moves one lane onward, turning around at the edge.").
			Cleanup(rules.KindPhase, stride(false)).
			Build(),

		effects.NewBehavior(SigilHefty).
			Describe("After its owner attacks, shoves itself and the cards in front of it one lane onward.").
			Cleanup(rules.KindPhase, stride(true)).
			Build(),

		effects.NewBehavior(SigilFledgling).
			Describe("Grows into its evolution at the start of its owner's next turn.").
			Cleanup(rules.KindPhase, evolve).
			Build(),

		effects.NewBehavior(SigilBoneDigger).
			Describe("Digs up a bone at the end of its owner's turn.").
			Cleanup(rules.KindPhase, func(c effects.Context) {
				if ownPhase(c, fight.PhasePostAttack) {
					c.Emit(rules.NewBones(c.Self().Side, 1))
				}
			}).
			Build(),

		effects.NewBehavior(SigilWorthy).
			Describe("Counts as three blood when sacrificed.").
			Blood(3).
			Build(),

		effects.NewBehavior(SigilTouchOfDeath).
			Describe("Kills any card it damages.").
			As(rules.RolePlayed).
			Cleanup(rules.KindAttack, func(c effects.Context) {
				a := c.Event().Attack
				if a.Direct || a.Damage <= 0 {
					return
				}
				target := fight.FieldPos(a.Side.Other(), a.To)
				if c.Card(target) != nil {
					c.Emit(rules.NewPerish(target, rules.CauseEffect))
				}
			}).
			Build(),

		effects.NewBehavior(SigilSharpQuills).
			Describe("Deals one damage back to whatever strikes it.").
			As(rules.RoleAttackee).
			Cleanup(rules.KindAttack, func(c effects.Context) {
				a := c.Event().Attack
				if a.Direct {
					return
				}
				self := c.Self()
				c.Emit(rules.NewShoot(fight.FieldPos(a.Side, a.From), 1, &self))
			}).
			Build(),

		effects.NewBehavior(SigilRabbitHole).
			Describe("When played, a rabbit is added to its owner's hand.").
			As(rules.RolePlayed).
			Cleanup(rules.KindPlay, func(c effects.Context) {
				if t, ok := c.Template("rabbit"); ok {
					c.Emit(rules.NewGeneratedDraw(c.Self().Side, t.Instance()))
				}
			}).
			Build(),

		effects.NewBehavior(SigilHoarder).
			Describe("When played, its owner searches the main deck for any card.").
			As(rules.RolePlayed).
			Request(rules.KindPlay, hoard, hoarded).
			Build(),

		effects.NewBehavior(SigilUrgent).
			Describe("Must be played before any other card once drawn.").
			InHand().
			As(rules.RoleDrawn).
			Cleanup(rules.KindDraw, func(c effects.Context) {
				idx := c.Self().Index
				c.Emit(rules.NewMustPlay(c.Self().Side, &idx))
			}).
			Build(),

		effects.NewBehavior(SigilAmorphous).
			Describe("Takes on a random sigil when drawn.").
			InHand().
			As(rules.RoleDrawn).
			Cleanup(rules.KindDraw, func(c effects.Context) {
				card := c.SelfCard()
				pick := amorphousPool[c.Rand().Intn(len(amorphousPool))]
				for i, s := range card.State.Sigils {
					if s == c.Sigil() {
						card.State.Sigils[i] = pick
					}
				}
				c.Emit(rules.NewTransform(c.Self(), card))
			}).
			Build(),

		effects.NewBehavior(SigilStinky).
			Describe("The opposing card has one less power.").
			Aura(func(_ effects.Query, self, target fight.Pos) int {
				if target == self.Opposing() {
					return -1
				}
				return 0
			}).
			Build(),

		effects.NewBehavior(SigilLeader).
			Describe("Adjacent allies have one more power.").
			Aura(func(_ effects.Query, self, target fight.Pos) int {
				if target.Side == self.Side && (target.Index == self.Index-1 || target.Index == self.Index+1) {
					return 1
				}
				return 0
			}).
			Build(),

		effects.NewBehavior(SigilMending).
			Describe("Heals one at the start of its owner's turn.").
			Cleanup(rules.KindPhase, func(c effects.Context) {
				card := c.SelfCard()
				if ownPhase(c, fight.PhasePreTurn) && card.State.Health < card.State.MaxHealth {
					c.Emit(rules.NewHeal(c.Self(), 1))
				}
			}).
			Build(),

		effects.NewBehavior(SigilEnlarge).
			Describe("Pay two bones: gains one power and one health.").
			As(rules.RolePlayed).
			Activated(cost.Cost{Bones: 2}).
			Cleanup(rules.KindActivate, func(c effects.Context) {
				if c.Event().Activate.Sigil == c.Sigil() {
					c.Emit(rules.NewStats(c.Self(), 1, 1))
				}
			}).
			Build(),

		effects.NewBehavior(SigilArmored).
			Describe("The first attack against it is absorbed and its shell flips.").
			As(rules.RoleAttackee).
			Writer(rules.KindAttack, func(c effects.WriterContext) {
				if c.Event().Attack.Direct || c.SelfCard().State.Flipped {
					return
				}
				c.Cancel()
				c.Emit(rules.NewFlip(c.Self()))
			}).
			Build(),

		effects.NewBehavior(SigilBoneless).
			Describe("Yields no bones when it perishes.").
			As(rules.RolePlayed).
			Writer(rules.KindPerish, func(c effects.WriterContext) {
				c.CancelDefault()
			}).
			Build(),

		effects.NewBehavior(SigilUnkillable).
			Describe("Returns to its owner's hand when it perishes.").
			As(rules.RolePlayed).
			Cleanup(rules.KindPerish, func(c effects.Context) {
				card := c.Event().Perish.Card
				if card == nil {
					return
				}
				if t, ok := c.Template(card.TemplateID); ok {
					c.Emit(rules.NewGeneratedDraw(c.Self().Side, t.Instance()))
				}
			}).
			Build(),
	}
}

// Stats returns the built-in special stats.
func Stats() map[string]effects.StatFunc {
	return map[string]effects.StatFunc{
		StatAnt: func(q effects.Query, pos fight.Pos) int {
			n := 0
			for _, card := range q.Field(pos.Side) {
				if card != nil && card.State.Stat == StatAnt {
					n++
				}
			}
			return n
		},
		StatMirror: func(q effects.Query, pos fight.Pos) int {
			if pos.Area != fight.AreaField {
				return 0
			}
			return q.BasePower(pos.Opposing())
		},
	}
}

func ownPhase(c effects.Context, phase fight.Phase) bool {
	e := c.Event()
	return e.Kind == rules.KindPhase && e.Phase.Phase == phase && e.Phase.Side == c.Self().Side
}

func burrow(c effects.WriterContext) {
	a := c.Event().Attack
	self := c.Self()
	if a.Direct || a.Side == self.Side || a.To == self.Index {
		return
	}
	lane := fight.FieldPos(self.Side, a.To)
	if c.Card(lane) != nil {
		return
	}
	c.EmitBefore(rules.NewMove(self, lane))
}

// stride moves the card one lane in its facing at the end of its owner's turn.
// When the way is blocked it turns around and tries the other way. A pushing
// stride shoves the cards in front of it instead of stopping at them.
func stride(push bool) effects.ReaderFunc {
	return func(c effects.Context) {
		if !ownPhase(c, fight.PhasePostAttack) {
			return
		}
		self := c.Self()
		card := c.SelfCard()
		row := c.Field(self.Side)
		dir := 1
		if card.State.Backward {
			dir = -1
		}

		step := func(dir int) (rules.Event, bool) {
			next := self.Index + dir
			if next < 0 || next >= len(row) {
				return rules.Event{}, false
			}
			if row[next] == nil {
				return rules.NewMove(self, fight.FieldPos(self.Side, next)), true
			}
			if push && hasGap(row, self.Index, dir) {
				return rules.NewPush(self.Side, self.Index, dir), true
			}
			return rules.Event{}, false
		}

		if e, ok := step(dir); ok {
			c.Emit(e)
			return
		}
		card.State.Backward = !card.State.Backward
		turned := []rules.Event{rules.NewTransform(self, card)}
		if e, ok := step(-dir); ok {
			turned = append(turned, e)
		}
		c.Emit(turned...)
	}
}

func hasGap(row []*fight.Card, from, dir int) bool {
	for lane := from + dir; lane >= 0 && lane < len(row); lane += dir {
		if row[lane] == nil {
			return true
		}
	}
	return false
}

func evolve(c effects.Context) {
	if !ownPhase(c, fight.PhasePreTurn) {
		return
	}
	card := c.SelfCard()
	if card.State.Evolved {
		return
	}
	t, ok := c.Template(card.TemplateID)
	if !ok || t.Evolution == "" {
		return
	}
	next, ok := c.Template(t.Evolution)
	if !ok {
		return
	}
	into := next.Instance()
	into.State.Evolved = true
	c.Emit(rules.NewTransform(c.Self(), into))
}

func hoard(c effects.Context) (effects.Offer, bool) {
	side := c.Self().Side
	deck := c.Deck(side, fight.DeckMain)
	if deck.Len() == 0 {
		return effects.Offer{}, false
	}
	return effects.Offer{
		Side: side,
		Request: rules.Request{
			Kind:   rules.RequestChooseCard,
			Cards:  deck.Remaining(),
			Prompt: "Choose a card to take from your deck.",
		},
	}, true
}

func hoarded(c effects.Context, req rules.Request, res rules.Response) {
	want := req.Cards[res.Index]
	side := c.Self().Side
	deck := c.Deck(side, fight.DeckMain)
	for i := range deck.Len() {
		if id, _ := deck.Peek(i); id == want {
			c.Emit(rules.Event{Kind: rules.KindDraw, Draw: &rules.Draw{Side: side, Deck: fight.DeckMain, Pick: i}})
			return
		}
	}
	c.Logger().Warn("chosen card left the deck before the response")
}
