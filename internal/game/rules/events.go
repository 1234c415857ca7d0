package rules

import (
	"fmt"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// Kind identifies an event in the closed battle vocabulary.
type Kind string

const (
	KindDraw        Kind = "draw"
	KindPlay        Kind = "play"
	KindAttack      Kind = "attack"
	KindShoot       Kind = "shoot"
	KindPerish      Kind = "perish"
	KindMove        Kind = "move"
	KindPush        Kind = "push"
	KindHeal        Kind = "heal"
	KindStats       Kind = "stats"
	KindActivate    Kind = "activate"
	KindTransform   Kind = "transform"
	KindFlip        Kind = "flip"
	KindPhase       Kind = "phase"
	KindEnergy      Kind = "energy"
	KindEnergySpend Kind = "energySpend"
	KindBones       Kind = "bones"
	KindMustPlay    Kind = "mustPlay"
	KindRequest     Kind = "request"
	KindResponse    Kind = "response"
	KindPoints      Kind = "points"
)

// Kinds lists every event kind.
var Kinds = []Kind{
	KindDraw, KindPlay, KindAttack, KindShoot, KindPerish, KindMove, KindPush,
	KindHeal, KindStats, KindActivate, KindTransform, KindFlip, KindPhase,
	KindEnergy, KindEnergySpend, KindBones, KindMustPlay, KindRequest,
	KindResponse, KindPoints,
}

// Cause explains why a card perished.
type Cause string

const (
	CauseAttack    Cause = "attack"
	CauseSacrifice Cause = "sacrifice"
	CauseHammer    Cause = "hammer"
	CauseEffect    Cause = "effect"
)

// Draw moves a card into a hand. An empty Deck draws the generated Card.
// Pick selects the draw position within the deck, zero being the top.
type Draw struct {
	Side fight.Side     `json:"side"`
	Deck fight.DeckKind `json:"deck,omitempty"`
	Pick int            `json:"pick,omitempty"`
	Card *fight.Card    `json:"card,omitempty"`
}

// Play moves a hand card onto an empty lane.
type Play struct {
	Side fight.Side  `json:"side"`
	Hand int         `json:"hand"`
	Lane int         `json:"lane"`
	Card *fight.Card `json:"card,omitempty"`
}

// Attack strikes from a lane at the opposing lane, or at the opponent when Direct.
type Attack struct {
	Side   fight.Side `json:"side"`
	From   int        `json:"from"`
	To     int        `json:"to"`
	Direct bool       `json:"direct,omitempty"`
	Damage int        `json:"damage"`
}

// Shoot deals non-combat damage to a field card.
type Shoot struct {
	Target fight.Pos  `json:"target"`
	Source *fight.Pos `json:"source,omitempty"`
	Damage int        `json:"damage"`
}

// Perish removes a field card.
type Perish struct {
	Pos   fight.Pos   `json:"pos"`
	Cause Cause       `json:"cause"`
	Card  *fight.Card `json:"card,omitempty"`
}

// Move relocates a field card to an empty slot.
type Move struct {
	From fight.Pos `json:"from"`
	To   fight.Pos `json:"to"`
}

// Push shifts a card and the cards in front of it one lane along Dir.
type Push struct {
	Side fight.Side `json:"side"`
	Lane int        `json:"lane"`
	Dir  int        `json:"dir"`
}

// Heal restores health up to the card's maximum.
type Heal struct {
	Pos    fight.Pos `json:"pos"`
	Amount int       `json:"amount"`
}

// Stats adjusts base power and health by the given deltas.
type Stats struct {
	Pos    fight.Pos `json:"pos"`
	Power  int       `json:"power,omitempty"`
	Health int       `json:"health,omitempty"`
}

// Activate fires an activated sigil.
type Activate struct {
	Pos   fight.Pos `json:"pos"`
	Sigil string    `json:"sigil"`
}

// Transform replaces a card in place.
type Transform struct {
	Pos  fight.Pos   `json:"pos"`
	Into *fight.Card `json:"into"`
}

// Flip toggles a card's flipped state.
type Flip struct {
	Pos fight.Pos `json:"pos"`
}

// PhaseChange moves the turn pointer.
type PhaseChange struct {
	Side  fight.Side  `json:"side"`
	Phase fight.Phase `json:"phase"`
}

// Energy grows (or shrinks) capacity by a delta and optionally refills.
type Energy struct {
	Side     fight.Side `json:"side"`
	Capacity int        `json:"capacity,omitempty"`
	Refill   bool       `json:"refill,omitempty"`
}

// EnergySpend removes current energy.
type EnergySpend struct {
	Side   fight.Side `json:"side"`
	Amount int        `json:"amount"`
}

// Bones adds (or spends, when negative) bones.
type Bones struct {
	Side   fight.Side `json:"side"`
	Amount int        `json:"amount"`
}

// MustPlay sets or clears the hand index side must play next.
type MustPlay struct {
	Side fight.Side `json:"side"`
	Hand *int       `json:"hand,omitempty"`
}

// RequestRaised records that resolution paused for side's decision.
type RequestRaised struct {
	Side    fight.Side `json:"side"`
	Request Request    `json:"request"`
}

// ResponseGiven records the answer that resumed resolution.
type ResponseGiven struct {
	Side     fight.Side `json:"side"`
	Response Response   `json:"response"`
}

// Points tips the scale toward side.
type Points struct {
	Side   fight.Side `json:"side"`
	Amount int        `json:"amount"`
}

// Event is a tagged union: Kind names which payload field is set.
type Event struct {
	Kind        Kind           `json:"kind"`
	Draw        *Draw          `json:"draw,omitempty"`
	Play        *Play          `json:"play,omitempty"`
	Attack      *Attack        `json:"attack,omitempty"`
	Shoot       *Shoot         `json:"shoot,omitempty"`
	Perish      *Perish        `json:"perish,omitempty"`
	Move        *Move          `json:"move,omitempty"`
	Push        *Push          `json:"push,omitempty"`
	Heal        *Heal          `json:"heal,omitempty"`
	Stats       *Stats         `json:"stats,omitempty"`
	Activate    *Activate      `json:"activate,omitempty"`
	Transform   *Transform     `json:"transform,omitempty"`
	Flip        *Flip          `json:"flip,omitempty"`
	Phase       *PhaseChange   `json:"phase,omitempty"`
	Energy      *Energy        `json:"energy,omitempty"`
	EnergySpend *EnergySpend   `json:"energySpend,omitempty"`
	Bones       *Bones         `json:"bones,omitempty"`
	MustPlay    *MustPlay      `json:"mustPlay,omitempty"`
	Request     *RequestRaised `json:"request,omitempty"`
	Response    *ResponseGiven `json:"response,omitempty"`
	Points      *Points        `json:"points,omitempty"`
}

// Payload returns the payload matching Kind, or nil when it is missing.
func (e Event) Payload() any {
	switch e.Kind {
	case KindDraw:
		return nilIfEmpty(e.Draw)
	case KindPlay:
		return nilIfEmpty(e.Play)
	case KindAttack:
		return nilIfEmpty(e.Attack)
	case KindShoot:
		return nilIfEmpty(e.Shoot)
	case KindPerish:
		return nilIfEmpty(e.Perish)
	case KindMove:
		return nilIfEmpty(e.Move)
	case KindPush:
		return nilIfEmpty(e.Push)
	case KindHeal:
		return nilIfEmpty(e.Heal)
	case KindStats:
		return nilIfEmpty(e.Stats)
	case KindActivate:
		return nilIfEmpty(e.Activate)
	case KindTransform:
		return nilIfEmpty(e.Transform)
	case KindFlip:
		return nilIfEmpty(e.Flip)
	case KindPhase:
		return nilIfEmpty(e.Phase)
	case KindEnergy:
		return nilIfEmpty(e.Energy)
	case KindEnergySpend:
		return nilIfEmpty(e.EnergySpend)
	case KindBones:
		return nilIfEmpty(e.Bones)
	case KindMustPlay:
		return nilIfEmpty(e.MustPlay)
	case KindRequest:
		return nilIfEmpty(e.Request)
	case KindResponse:
		return nilIfEmpty(e.Response)
	case KindPoints:
		return nilIfEmpty(e.Points)
	}
	return nil
}

func nilIfEmpty[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}

// Check reports structural problems: an unknown kind or a missing payload.
func (e Event) Check() error {
	if e.Payload() == nil {
		return fmt.Errorf("event %q has no matching payload", e.Kind)
	}
	return nil
}

// Clone returns a deep copy.
func (e Event) Clone() Event {
	out := Event{Kind: e.Kind}
	switch e.Kind {
	case KindDraw:
		if e.Draw != nil {
			d := *e.Draw
			d.Card = e.Draw.Card.Clone()
			out.Draw = &d
		}
	case KindPlay:
		if e.Play != nil {
			p := *e.Play
			p.Card = e.Play.Card.Clone()
			out.Play = &p
		}
	case KindAttack:
		out.Attack = clonePtr(e.Attack)
	case KindShoot:
		if e.Shoot != nil {
			s := *e.Shoot
			s.Source = clonePtr(e.Shoot.Source)
			out.Shoot = &s
		}
	case KindPerish:
		if e.Perish != nil {
			p := *e.Perish
			p.Card = e.Perish.Card.Clone()
			out.Perish = &p
		}
	case KindMove:
		out.Move = clonePtr(e.Move)
	case KindPush:
		out.Push = clonePtr(e.Push)
	case KindHeal:
		out.Heal = clonePtr(e.Heal)
	case KindStats:
		out.Stats = clonePtr(e.Stats)
	case KindActivate:
		out.Activate = clonePtr(e.Activate)
	case KindTransform:
		if e.Transform != nil {
			t := *e.Transform
			t.Into = e.Transform.Into.Clone()
			out.Transform = &t
		}
	case KindFlip:
		out.Flip = clonePtr(e.Flip)
	case KindPhase:
		out.Phase = clonePtr(e.Phase)
	case KindEnergy:
		out.Energy = clonePtr(e.Energy)
	case KindEnergySpend:
		out.EnergySpend = clonePtr(e.EnergySpend)
	case KindBones:
		out.Bones = clonePtr(e.Bones)
	case KindMustPlay:
		if e.MustPlay != nil {
			m := *e.MustPlay
			m.Hand = clonePtr(e.MustPlay.Hand)
			out.MustPlay = &m
		}
	case KindRequest:
		if e.Request != nil {
			r := *e.Request
			r.Request = e.Request.Request.Clone()
			out.Request = &r
		}
	case KindResponse:
		out.Response = clonePtr(e.Response)
	case KindPoints:
		out.Points = clonePtr(e.Points)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CloneAll deep-copies a slice of events.
func CloneAll(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

func (e Event) String() string {
	return string(e.Kind)
}

// NewDraw draws the top card of a deck.
func NewDraw(side fight.Side, deck fight.DeckKind) Event {
	return Event{Kind: KindDraw, Draw: &Draw{Side: side, Deck: deck}}
}

// NewGeneratedDraw puts a card that comes from no deck into side's hand.
func NewGeneratedDraw(side fight.Side, card *fight.Card) Event {
	return Event{Kind: KindDraw, Draw: &Draw{Side: side, Card: card}}
}

// NewPlay plays hand card hand into lane.
func NewPlay(side fight.Side, hand, lane int) Event {
	return Event{Kind: KindPlay, Play: &Play{Side: side, Hand: hand, Lane: lane}}
}

// NewAttack attacks straight across a lane.
func NewAttack(side fight.Side, lane int) Event {
	return Event{Kind: KindAttack, Attack: &Attack{Side: side, From: lane, To: lane}}
}

// NewShoot deals damage to the card at target.
func NewShoot(target fight.Pos, damage int, source *fight.Pos) Event {
	return Event{Kind: KindShoot, Shoot: &Shoot{Target: target, Damage: damage, Source: clonePtr(source)}}
}

// NewPerish kills the field card at pos.
func NewPerish(pos fight.Pos, cause Cause) Event {
	return Event{Kind: KindPerish, Perish: &Perish{Pos: pos, Cause: cause}}
}

// NewMove moves a field card.
func NewMove(from, to fight.Pos) Event {
	return Event{Kind: KindMove, Move: &Move{From: from, To: to}}
}

// NewPush pushes the card at lane along dir.
func NewPush(side fight.Side, lane, dir int) Event {
	return Event{Kind: KindPush, Push: &Push{Side: side, Lane: lane, Dir: dir}}
}

// NewHeal heals a card.
func NewHeal(pos fight.Pos, amount int) Event {
	return Event{Kind: KindHeal, Heal: &Heal{Pos: pos, Amount: amount}}
}

// NewStats adjusts a card's base stats.
func NewStats(pos fight.Pos, power, health int) Event {
	return Event{Kind: KindStats, Stats: &Stats{Pos: pos, Power: power, Health: health}}
}

// NewActivate fires an activated sigil.
func NewActivate(pos fight.Pos, sigil string) Event {
	return Event{Kind: KindActivate, Activate: &Activate{Pos: pos, Sigil: sigil}}
}

// NewTransform replaces the card at pos.
func NewTransform(pos fight.Pos, into *fight.Card) Event {
	return Event{Kind: KindTransform, Transform: &Transform{Pos: pos, Into: into}}
}

// NewFlip toggles the card at pos.
func NewFlip(pos fight.Pos) Event {
	return Event{Kind: KindFlip, Flip: &Flip{Pos: pos}}
}

// NewPhase moves the turn pointer.
func NewPhase(side fight.Side, phase fight.Phase) Event {
	return Event{Kind: KindPhase, Phase: &PhaseChange{Side: side, Phase: phase}}
}

// NewEnergy changes energy capacity by delta and optionally refills.
func NewEnergy(side fight.Side, capacity int, refill bool) Event {
	return Event{Kind: KindEnergy, Energy: &Energy{Side: side, Capacity: capacity, Refill: refill}}
}

// NewEnergySpend spends current energy.
func NewEnergySpend(side fight.Side, amount int) Event {
	return Event{Kind: KindEnergySpend, EnergySpend: &EnergySpend{Side: side, Amount: amount}}
}

// NewBones gains (or spends) bones.
func NewBones(side fight.Side, amount int) Event {
	return Event{Kind: KindBones, Bones: &Bones{Side: side, Amount: amount}}
}

// NewMustPlay sets side's forced play. A nil hand clears it.
func NewMustPlay(side fight.Side, hand *int) Event {
	return Event{Kind: KindMustPlay, MustPlay: &MustPlay{Side: side, Hand: clonePtr(hand)}}
}

// NewRequest records a pending request.
func NewRequest(side fight.Side, req Request) Event {
	return Event{Kind: KindRequest, Request: &RequestRaised{Side: side, Request: req.Clone()}}
}

// NewResponse records an accepted response.
func NewResponse(side fight.Side, res Response) Event {
	return Event{Kind: KindResponse, Response: &ResponseGiven{Side: side, Response: res}}
}

// NewPoints tips the scale.
func NewPoints(side fight.Side, amount int) Event {
	return Event{Kind: KindPoints, Points: &Points{Side: side, Amount: amount}}
}
