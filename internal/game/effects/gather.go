package effects

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Active is a behavior instance: a sigil on a card at a position.
type Active struct {
	Pos      fight.Pos
	Card     *fight.Card
	Behavior *Behavior
}

// Board resolves which card occupies each position for the purpose of an event.
// A card being played counts at its destination lane and no longer in hand; a
// card being drawn counts at the hand slot it will take.
type Board struct {
	f       *fight.Fight
	virtual map[fight.Pos]*fight.Card
	hidden  map[fight.Pos]bool
}

// Occupants builds the board for e. e should already be prepared.
func Occupants(f *fight.Fight, e rules.Event) *Board {
	b := &Board{f: f, virtual: map[fight.Pos]*fight.Card{}, hidden: map[fight.Pos]bool{}}
	switch e.Kind {
	case rules.KindPlay:
		if p := e.Play; p != nil {
			card := p.Card
			if card == nil {
				card = f.At(fight.HandPos(p.Side, p.Hand))
			}
			if card != nil && f.LaneInRange(p.Lane) {
				b.virtual[fight.FieldPos(p.Side, p.Lane)] = card
				b.hidden[fight.HandPos(p.Side, p.Hand)] = true
			}
		}
	case rules.KindDraw:
		if d := e.Draw; d != nil && d.Card != nil {
			b.virtual[fight.HandPos(d.Side, len(f.Hands[d.Side]))] = d.Card
		}
	}
	return b
}

// At returns the occupant of pos.
func (b *Board) At(pos fight.Pos) *fight.Card {
	if b.hidden[pos] {
		return nil
	}
	if card, ok := b.virtual[pos]; ok {
		return card
	}
	return b.f.At(pos)
}

// Order lists every occupied position in board order: field A, field B, hand A, hand B.
func (b *Board) Order() []fight.Pos {
	var out []fight.Pos
	for _, side := range fight.Sides {
		for lane := range b.f.Field[side] {
			if pos := fight.FieldPos(side, lane); b.At(pos) != nil {
				out = append(out, pos)
			}
		}
	}
	for _, side := range fight.Sides {
		for i := 0; i <= len(b.f.Hands[side]); i++ {
			if pos := fight.HandPos(side, i); b.At(pos) != nil {
				out = append(out, pos)
			}
		}
	}
	return out
}

// Gathered holds the behavior instances that handle one event, per phase, in
// the order they run.
type Gathered struct {
	Writers  []Active
	Readers  []Active
	Cleanup  []Active
	Requests []Active
}

// For returns the instances of one phase.
func (g Gathered) For(phase Phase) []Active {
	switch phase {
	case PhaseWriter:
		return g.Writers
	case PhaseReader:
		return g.Readers
	case PhaseCleanup:
		return g.Cleanup
	case PhaseRequest:
		return g.Requests
	}
	return nil
}

// Gather collects the behaviors that handle an event of kind. Role-bound
// behaviors come first in role order, then role-free behaviors in board order.
// Within a card, sigils keep the card's order.
func (r *Registry) Gather(board *Board, kind rules.Kind, targets rules.Targets) Gathered {
	var all []Active
	for _, role := range rules.Roles {
		pos, ok := targets.Role(role)
		if !ok {
			continue
		}
		card := board.At(pos)
		for _, b := range r.behaviorsOf(card) {
			if b.RunRole == role && b.Location() == pos.Area {
				all = append(all, Active{Pos: pos, Card: card, Behavior: b})
			}
		}
	}
	for _, pos := range board.Order() {
		card := board.At(pos)
		for _, b := range r.behaviorsOf(card) {
			if b.RunRole == "" && b.Location() == pos.Area {
				all = append(all, Active{Pos: pos, Card: card, Behavior: b})
			}
		}
	}

	var g Gathered
	for _, a := range all {
		if a.Behavior.Handles(PhaseWriter, kind) {
			g.Writers = append(g.Writers, a)
		}
		if a.Behavior.Handles(PhaseReader, kind) {
			g.Readers = append(g.Readers, a)
		}
		if a.Behavior.Handles(PhaseCleanup, kind) {
			g.Cleanup = append(g.Cleanup, a)
		}
		if a.Behavior.Handles(PhaseRequest, kind) {
			g.Requests = append(g.Requests, a)
		}
	}
	return g
}

// Invoke runs the handler of a for kind in phase. Request handlers return their offer.
func (a Active) Invoke(s *Scope, phase Phase, kind rules.Kind) (Offer, bool) {
	b := a.Behavior
	switch phase {
	case PhaseWriter:
		if fn := b.Writers[kind]; fn != nil {
			fn(s)
		}
	case PhaseReader:
		if fn := b.Readers[kind]; fn != nil {
			fn(s)
		}
	case PhaseCleanup:
		if fn := b.Cleanup[kind]; fn != nil {
			fn(s)
		}
	case PhaseRequest:
		if fn := b.Requests[kind]; fn != nil {
			return fn(s)
		}
	}
	return Offer{}, false
}
