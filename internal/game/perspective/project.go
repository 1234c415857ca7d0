// Package perspective turns the authoritative event log and fight state into what
// one side may see. Sides are relabeled so the viewer is always side 0 (Self) and
// the opponent side 1 (Other); the opponent's hidden information is removed.
package perspective

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Relabeled sides.
const (
	Self  = fight.SideA
	Other = fight.SideB
)

// Relabel maps an authoritative side into viewer space.
func Relabel(s, viewer fight.Side) fight.Side {
	return fight.Side(int(s) ^ int(viewer))
}

func relabelPos(p fight.Pos, viewer fight.Side) fight.Pos {
	p.Side = Relabel(p.Side, viewer)
	return p
}

// inOpponentHand reports whether p addresses a card viewer cannot see.
func inOpponentHand(p fight.Pos, viewer fight.Side) bool {
	return p.Area == fight.AreaHand && p.Side != viewer
}

// Project returns e as viewer sees it, or nil when viewer must not see it at all.
// The viewer's own events come back unchanged apart from side labels.
func Project(e rules.Event, viewer fight.Side) *rules.Event {
	out := e.Clone()
	if out.Payload() == nil {
		return nil
	}

	switch out.Kind {
	case rules.KindDraw:
		d := out.Draw
		if d.Side != viewer {
			d.Card = nil
			d.Pick = 0
		}
		d.Side = Relabel(d.Side, viewer)
	case rules.KindPlay:
		p := out.Play
		if p.Side != viewer {
			p.Hand = -1
		}
		p.Side = Relabel(p.Side, viewer)
	case rules.KindAttack:
		out.Attack.Side = Relabel(out.Attack.Side, viewer)
	case rules.KindShoot:
		s := out.Shoot
		s.Target = relabelPos(s.Target, viewer)
		if s.Source != nil {
			src := relabelPos(*s.Source, viewer)
			s.Source = &src
		}
	case rules.KindPerish:
		out.Perish.Pos = relabelPos(out.Perish.Pos, viewer)
	case rules.KindMove:
		out.Move.From = relabelPos(out.Move.From, viewer)
		out.Move.To = relabelPos(out.Move.To, viewer)
	case rules.KindPush:
		out.Push.Side = Relabel(out.Push.Side, viewer)
	case rules.KindHeal:
		if inOpponentHand(out.Heal.Pos, viewer) {
			return nil
		}
		out.Heal.Pos = relabelPos(out.Heal.Pos, viewer)
	case rules.KindStats:
		if inOpponentHand(out.Stats.Pos, viewer) {
			return nil
		}
		out.Stats.Pos = relabelPos(out.Stats.Pos, viewer)
	case rules.KindActivate:
		out.Activate.Pos = relabelPos(out.Activate.Pos, viewer)
	case rules.KindTransform:
		t := out.Transform
		if inOpponentHand(t.Pos, viewer) {
			return nil
		}
		t.Pos = relabelPos(t.Pos, viewer)
	case rules.KindFlip:
		if inOpponentHand(out.Flip.Pos, viewer) {
			return nil
		}
		out.Flip.Pos = relabelPos(out.Flip.Pos, viewer)
	case rules.KindPhase:
		out.Phase.Side = Relabel(out.Phase.Side, viewer)
	case rules.KindEnergy:
		out.Energy.Side = Relabel(out.Energy.Side, viewer)
	case rules.KindEnergySpend:
		out.EnergySpend.Side = Relabel(out.EnergySpend.Side, viewer)
	case rules.KindBones:
		out.Bones.Side = Relabel(out.Bones.Side, viewer)
	case rules.KindMustPlay:
		if out.MustPlay.Side != viewer {
			return nil
		}
		out.MustPlay.Side = Self
	case rules.KindRequest:
		r := out.Request
		if r.Side != viewer {
			r.Request.Cards = nil
		}
		r.Side = Relabel(r.Side, viewer)
	case rules.KindResponse:
		r := out.Response
		if r.Side != viewer {
			r.Response = rules.Response{Type: r.Response.Type}
		}
		r.Side = Relabel(r.Side, viewer)
	case rules.KindPoints:
		out.Points.Side = Relabel(out.Points.Side, viewer)
	}
	return &out
}

// ProjectAll projects a sequence, dropping suppressed events and keeping order.
func ProjectAll(events []rules.Event, viewer fight.Side) []rules.Event {
	out := make([]rules.Event, 0, len(events))
	for _, e := range events {
		if p := Project(e, viewer); p != nil {
			out = append(out, *p)
		}
	}
	return out
}
