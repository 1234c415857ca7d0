package rules

import (
	"fmt"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// LegalityResult is the outcome of checking an event against the current fight.
type LegalityResult struct {
	Legal  bool
	Reason string
}

func legal() LegalityResult {
	return LegalityResult{Legal: true}
}

func illegal(format string, args ...any) LegalityResult {
	return LegalityResult{Reason: fmt.Sprintf(format, args...)}
}

// Valid reports whether the event can still settle against f.
func Valid(f *fight.Fight, e Event) bool {
	return CheckLegality(f, e).Legal
}

// CheckLegality is the per-kind validity predicate. Stale events (a target that
// left the board, an emptied deck) are illegal and get skipped by settlement.
func CheckLegality(f *fight.Fight, e Event) LegalityResult {
	if err := e.Check(); err != nil {
		return illegal("%v", err)
	}

	switch e.Kind {
	case KindDraw:
		d := e.Draw
		if !d.Side.Valid() {
			return illegal("unknown side %d", d.Side)
		}
		if d.Deck == "" {
			if d.Card == nil {
				return illegal("generated draw without a card")
			}
			return legal()
		}
		deck := f.Decks[d.Side].Get(d.Deck)
		if deck == nil {
			return illegal("unknown deck %q", d.Deck)
		}
		if d.Pick < 0 || d.Pick >= deck.Len() {
			return illegal("%s deck has %d cards, cannot pick %d", d.Deck, deck.Len(), d.Pick)
		}

	case KindPlay:
		p := e.Play
		if !p.Side.Valid() {
			return illegal("unknown side %d", p.Side)
		}
		if f.At(fight.HandPos(p.Side, p.Hand)) == nil {
			return illegal("no hand card at %d", p.Hand)
		}
		if !f.LaneInRange(p.Lane) {
			return illegal("lane %d out of range", p.Lane)
		}
		if f.Field[p.Side][p.Lane] != nil {
			return illegal("lane %d is occupied", p.Lane)
		}

	case KindAttack:
		a := e.Attack
		if !a.Side.Valid() {
			return illegal("unknown side %d", a.Side)
		}
		if f.At(fight.FieldPos(a.Side, a.From)) == nil {
			return illegal("no attacker in lane %d", a.From)
		}
		if !f.LaneInRange(a.To) {
			return illegal("target lane %d out of range", a.To)
		}
		if a.Damage < 0 {
			return illegal("negative damage")
		}

	case KindShoot:
		if !onField(f, e.Shoot.Target) {
			return illegal("no card to shoot at %s", e.Shoot.Target)
		}
		if e.Shoot.Damage < 0 {
			return illegal("negative damage")
		}

	case KindPerish:
		if !onField(f, e.Perish.Pos) {
			return illegal("no card to perish at %s", e.Perish.Pos)
		}

	case KindMove:
		m := e.Move
		if !onField(f, m.From) {
			return illegal("no card to move at %s", m.From)
		}
		if m.To.Area != fight.AreaField || !f.InBounds(m.To) {
			return illegal("move target %s out of range", m.To)
		}
		if f.At(m.To) != nil {
			return illegal("move target %s is occupied", m.To)
		}

	case KindPush:
		if _, ok := pushGap(f, e.Push); !ok {
			return illegal("nothing can be pushed from lane %d by %d", e.Push.Lane, e.Push.Dir)
		}

	case KindHeal:
		if f.At(e.Heal.Pos) == nil {
			return illegal("no card to heal at %s", e.Heal.Pos)
		}
		if e.Heal.Amount < 0 {
			return illegal("negative heal")
		}

	case KindStats:
		if f.At(e.Stats.Pos) == nil {
			return illegal("no card at %s", e.Stats.Pos)
		}

	case KindActivate:
		card := f.At(e.Activate.Pos)
		if card == nil || e.Activate.Pos.Area != fight.AreaField {
			return illegal("no field card at %s", e.Activate.Pos)
		}
		if !card.HasSigil(e.Activate.Sigil) {
			return illegal("card at %s lacks %q", e.Activate.Pos, e.Activate.Sigil)
		}

	case KindTransform:
		if f.At(e.Transform.Pos) == nil {
			return illegal("no card to transform at %s", e.Transform.Pos)
		}
		if e.Transform.Into == nil {
			return illegal("transform without a target card")
		}

	case KindFlip:
		if f.At(e.Flip.Pos) == nil {
			return illegal("no card to flip at %s", e.Flip.Pos)
		}

	case KindPhase:
		if !e.Phase.Side.Valid() || !e.Phase.Phase.Valid() {
			return illegal("unknown turn %s/%s", e.Phase.Side, e.Phase.Phase)
		}

	case KindEnergy:
		if !e.Energy.Side.Valid() {
			return illegal("unknown side %d", e.Energy.Side)
		}

	case KindEnergySpend:
		s := e.EnergySpend
		if !s.Side.Valid() {
			return illegal("unknown side %d", s.Side)
		}
		if s.Amount < 0 || f.Players[s.Side].Energy.Current < s.Amount {
			return illegal("cannot spend %d energy", s.Amount)
		}

	case KindBones:
		b := e.Bones
		if !b.Side.Valid() {
			return illegal("unknown side %d", b.Side)
		}
		if f.Players[b.Side].Bones+b.Amount < 0 {
			return illegal("cannot spend %d bones", -b.Amount)
		}

	case KindMustPlay:
		m := e.MustPlay
		if !m.Side.Valid() {
			return illegal("unknown side %d", m.Side)
		}
		if m.Hand != nil && f.At(fight.HandPos(m.Side, *m.Hand)) == nil {
			return illegal("no hand card at %d", *m.Hand)
		}

	case KindRequest:
		if !e.Request.Side.Valid() {
			return illegal("unknown side %d", e.Request.Side)
		}

	case KindResponse:
		if !e.Response.Side.Valid() {
			return illegal("unknown side %d", e.Response.Side)
		}

	case KindPoints:
		if !e.Points.Side.Valid() {
			return illegal("unknown side %d", e.Points.Side)
		}
		if e.Points.Amount < 0 {
			return illegal("negative points")
		}
	}
	return legal()
}

func onField(f *fight.Fight, pos fight.Pos) bool {
	return pos.Area == fight.AreaField && f.At(pos) != nil
}
