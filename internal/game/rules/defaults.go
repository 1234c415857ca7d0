package rules

import (
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// PowerFunc computes a field card's effective power.
type PowerFunc func(pos fight.Pos) int

// Prepare fills the fields an event derives from the board before behaviors see
// it: the card a draw takes, snapshots of played and perishing cards, attack damage.
func Prepare(f *fight.Fight, e *Event, templates fight.Templates, power PowerFunc) error {
	switch e.Kind {
	case KindDraw:
		d := e.Draw
		if d.Deck == "" {
			return nil
		}
		id, ok := f.Decks[d.Side].Get(d.Deck).Peek(d.Pick)
		if !ok {
			return apperrors.InvalidPositionAccess("draw pick %d from %s deck", d.Pick, d.Deck)
		}
		tmpl, ok := templates.Template(id)
		if !ok {
			return apperrors.InvalidEvent("deck holds unknown template %q", id)
		}
		d.Card = tmpl.Instance()
	case KindPlay:
		e.Play.Card = f.At(fight.HandPos(e.Play.Side, e.Play.Hand)).Clone()
	case KindPerish:
		e.Perish.Card = f.At(e.Perish.Pos).Clone()
	case KindAttack:
		e.Attack.Damage = max(0, power(fight.FieldPos(e.Attack.Side, e.Attack.From)))
	}
	return nil
}

// PreDefault is the built-in consequence applied after writers and before readers.
// An attack into an empty lane goes straight at the opponent.
func PreDefault(f *fight.Fight, e *Event) {
	switch e.Kind {
	case KindAttack:
		a := e.Attack
		if !a.Direct && f.At(fight.FieldPos(a.Side.Other(), a.To)) == nil {
			a.Direct = true
		}
	}
}

// Followups are events a default produces. Front events resolve before the rest of
// the queue; Back events wait behind it.
type Followups struct {
	Front []Event
	Back  []Event
}

// PostDefault is the built-in consequence applied after an event commits.
func PostDefault(f *fight.Fight, e Event, power PowerFunc) Followups {
	var out Followups
	switch e.Kind {
	case KindAttack:
		if e.Attack.Direct && e.Attack.Damage > 0 {
			out.Front = append(out.Front, NewPoints(e.Attack.Side, e.Attack.Damage))
		}
	case KindPerish:
		out.Front = append(out.Front, NewBones(e.Perish.Pos.Side, 1))
	case KindPhase:
		out = phaseDefaults(f, *e.Phase, power)
	}
	return out
}

// phaseDefaults advances the turn clock through the phases that need no input.
func phaseDefaults(f *fight.Fight, p PhaseChange, power PowerFunc) Followups {
	var out Followups
	switch p.Phase {
	case fight.PhasePreTurn:
		if f.Options.Enabled(fight.FeatureEnergy) {
			out.Front = append(out.Front, NewEnergy(p.Side, 1, true))
		}
		out.Back = append(out.Back, NewPhase(p.Side, fight.PhaseDraw))
	case fight.PhaseDraw:
		if !f.CanDraw(p.Side) {
			out.Back = append(out.Back, NewPhase(p.Side, fight.PhasePlay))
		}
	case fight.PhasePreAttack:
		out.Back = append(out.Back, NewPhase(p.Side, fight.PhaseAttack))
	case fight.PhaseAttack:
		for _, pos := range f.FieldCards(p.Side) {
			if power(pos) > 0 {
				out.Back = append(out.Back, NewAttack(p.Side, pos.Index))
			}
		}
		out.Back = append(out.Back, NewPhase(p.Side, fight.PhasePostAttack))
	case fight.PhasePostAttack:
		next, _ := p.Phase.Next()
		out.Back = append(out.Back, NewPhase(p.Side.Other(), next))
	}
	return out
}
