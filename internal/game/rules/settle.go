package rules

import (
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// Settle applies a prepared event to the fight. It is deterministic and only
// fails when the event addresses something that is not there.
func Settle(f *fight.Fight, e Event) error {
	if err := e.Check(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidEvent, "settle", err)
	}

	switch e.Kind {
	case KindDraw:
		d := e.Draw
		if d.Card == nil {
			return apperrors.InvalidEvent("draw for side %s carries no card", d.Side)
		}
		if d.Deck != "" {
			deck := f.Decks[d.Side].Get(d.Deck)
			if deck == nil || d.Pick < 0 || d.Pick >= deck.Len() {
				return apperrors.InvalidPositionAccess("draw pick %d from %s deck", d.Pick, d.Deck)
			}
			deck.Take(d.Pick)
		}
		f.Hands[d.Side] = append(f.Hands[d.Side], d.Card.Clone())

	case KindPlay:
		p := e.Play
		if f.At(fight.HandPos(p.Side, p.Hand)) == nil {
			return apperrors.InvalidPositionAccess("no hand card at %d", p.Hand)
		}
		if !f.LaneInRange(p.Lane) || f.Field[p.Side][p.Lane] != nil {
			return apperrors.InvalidPositionAccess("lane %d is not free", p.Lane)
		}
		card := f.RemoveFromHand(p.Side, p.Hand)
		f.Field[p.Side][p.Lane] = card

	case KindAttack:
		a := e.Attack
		if f.At(fight.FieldPos(a.Side, a.From)) == nil {
			return apperrors.InvalidPositionAccess("no attacker in lane %d", a.From)
		}
		if !a.Direct {
			if target := f.At(fight.FieldPos(a.Side.Other(), a.To)); target != nil {
				damage(target, a.Damage)
			}
		}

	case KindShoot:
		target, err := cardAt(f, e.Shoot.Target)
		if err != nil {
			return err
		}
		damage(target, e.Shoot.Damage)

	case KindPerish:
		p := e.Perish
		if p.Pos.Area != fight.AreaField {
			return apperrors.InvalidPositionAccess("perish outside the field at %s", p.Pos)
		}
		if _, err := cardAt(f, p.Pos); err != nil {
			return err
		}
		f.Field[p.Pos.Side][p.Pos.Index] = nil
		if p.Cause == CauseHammer {
			f.Players[p.Pos.Side].HammersUsed++
		}

	case KindMove:
		m := e.Move
		card, err := cardAt(f, m.From)
		if err != nil {
			return err
		}
		if m.To.Area != fight.AreaField || !f.InBounds(m.To) || f.At(m.To) != nil {
			return apperrors.InvalidPositionAccess("move target %s is not free", m.To)
		}
		f.Field[m.From.Side][m.From.Index] = nil
		f.Field[m.To.Side][m.To.Index] = card

	case KindPush:
		p := e.Push
		gap, ok := pushGap(f, p)
		if !ok {
			return apperrors.InvalidPositionAccess("cannot push lane %d by %d", p.Lane, p.Dir)
		}
		row := f.Field[p.Side]
		for lane := gap; lane != p.Lane; lane -= p.Dir {
			row[lane] = row[lane-p.Dir]
		}
		row[p.Lane] = nil

	case KindHeal:
		card, err := cardAt(f, e.Heal.Pos)
		if err != nil {
			return err
		}
		card.State.Health = min(card.State.MaxHealth, card.State.Health+e.Heal.Amount)

	case KindStats:
		card, err := cardAt(f, e.Stats.Pos)
		if err != nil {
			return err
		}
		card.State.Power = max(0, card.State.Power+e.Stats.Power)
		card.State.MaxHealth = max(0, card.State.MaxHealth+e.Stats.Health)
		card.State.Health = max(0, card.State.Health+e.Stats.Health)

	case KindActivate:
		if _, err := cardAt(f, e.Activate.Pos); err != nil {
			return err
		}

	case KindTransform:
		t := e.Transform
		if _, err := cardAt(f, t.Pos); err != nil {
			return err
		}
		if t.Into == nil {
			return apperrors.InvalidEvent("transform at %s has no target card", t.Pos)
		}
		into := t.Into.Clone()
		switch t.Pos.Area {
		case fight.AreaField:
			f.Field[t.Pos.Side][t.Pos.Index] = into
		case fight.AreaHand:
			f.Hands[t.Pos.Side][t.Pos.Index] = into
		}

	case KindFlip:
		card, err := cardAt(f, e.Flip.Pos)
		if err != nil {
			return err
		}
		card.State.Flipped = !card.State.Flipped

	case KindPhase:
		p := e.Phase
		f.Turn = fight.Turn{Side: p.Side, Phase: p.Phase}
		if p.Phase == fight.PhasePreTurn {
			f.Players[p.Side].HammersUsed = 0
		}

	case KindEnergy:
		en := e.Energy
		cell := &f.Players[en.Side].Energy
		cell.Capacity = min(max(cell.Capacity+en.Capacity, 0), f.Options.MaxEnergy)
		if en.Refill {
			cell.Current = cell.Capacity
		}
		cell.Current = min(cell.Current, cell.Capacity)

	case KindEnergySpend:
		s := e.EnergySpend
		f.Players[s.Side].Energy.Current -= s.Amount

	case KindBones:
		b := e.Bones
		f.Players[b.Side].Bones += b.Amount

	case KindMustPlay:
		m := e.MustPlay
		if m.Hand == nil {
			f.MustPlay[m.Side] = nil
		} else {
			idx := *m.Hand
			f.MustPlay[m.Side] = &idx
		}

	case KindRequest, KindResponse:
		// Markers only; the suspension state lives on the host record.

	case KindPoints:
		p := e.Points
		f.Points[p.Side] += p.Amount
		lead := f.Points[p.Side] - f.Points[p.Side.Other()]
		if lead >= f.Options.ScaleLimit {
			f.Players[p.Side.Other()].Deaths++
			f.Points = [2]int{}
		}
	}
	return nil
}

func cardAt(f *fight.Fight, pos fight.Pos) (*fight.Card, error) {
	card := f.At(pos)
	if card == nil {
		return nil, apperrors.InvalidPositionAccess("no card at %s", pos)
	}
	return card, nil
}

func damage(card *fight.Card, amount int) {
	if amount <= 0 {
		return
	}
	card.State.Health = max(0, card.State.Health-amount)
}

// pushGap finds the first empty lane in the push direction.
func pushGap(f *fight.Fight, p *Push) (int, bool) {
	if p.Dir != 1 && p.Dir != -1 {
		return 0, false
	}
	if !p.Side.Valid() || f.At(fight.FieldPos(p.Side, p.Lane)) == nil {
		return 0, false
	}
	for lane := p.Lane + p.Dir; f.LaneInRange(lane); lane += p.Dir {
		if f.Field[p.Side][lane] == nil {
			return lane, true
		}
	}
	return 0, false
}

// Vacated reports the hand slot a committed event emptied.
func Vacated(e Event) (fight.Side, int, bool) {
	if e.Kind == KindPlay && e.Play != nil {
		return e.Play.Side, e.Play.Hand, true
	}
	return fight.SideA, 0, false
}

// ShiftHand corrects the hand references of pending events after the card at
// removed left side's hand. Events that addressed the removed card are stale and
// dropped.
func ShiftHand(events []Event, side fight.Side, removed int) []Event {
	if len(events) == 0 {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if shifted, ok := shiftHandEvent(e, side, removed); ok {
			out = append(out, shifted)
		}
	}
	return out
}

func shiftHandEvent(e Event, side fight.Side, removed int) (Event, bool) {
	e = e.Clone()
	live := true
	shift := func(p *fight.Pos) {
		if p == nil || p.Area != fight.AreaHand || p.Side != side {
			return
		}
		switch {
		case p.Index == removed:
			live = false
		case p.Index > removed:
			p.Index--
		}
	}

	switch e.Kind {
	case KindPlay:
		if p := e.Play; p != nil {
			pos := fight.HandPos(p.Side, p.Hand)
			shift(&pos)
			p.Hand = pos.Index
		}
	case KindMustPlay:
		if m := e.MustPlay; m != nil && m.Side == side && m.Hand != nil {
			m.Hand = fight.ShiftHandIndex(m.Hand, removed)
			live = m.Hand != nil
		}
	case KindShoot:
		if s := e.Shoot; s != nil {
			shift(&s.Target)
			shift(s.Source)
		}
	case KindPerish:
		if p := e.Perish; p != nil {
			shift(&p.Pos)
		}
	case KindMove:
		if m := e.Move; m != nil {
			shift(&m.From)
			shift(&m.To)
		}
	case KindHeal:
		if h := e.Heal; h != nil {
			shift(&h.Pos)
		}
	case KindStats:
		if s := e.Stats; s != nil {
			shift(&s.Pos)
		}
	case KindActivate:
		if a := e.Activate; a != nil {
			shift(&a.Pos)
		}
	case KindTransform:
		if t := e.Transform; t != nil {
			shift(&t.Pos)
		}
	case KindFlip:
		if fl := e.Flip; fl != nil {
			shift(&fl.Pos)
		}
	}
	return e, live
}
