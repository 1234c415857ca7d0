package game

import (
	"slices"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// ActionType names a player command.
type ActionType string

const (
	ActionDraw     ActionType = "draw"
	ActionBellRing ActionType = "bellRing"
	ActionHammer   ActionType = "hammer"
	ActionPlay     ActionType = "play"
	ActionActivate ActionType = "activate"
)

// Action is a player command as it arrives on the wire.
type Action struct {
	Type       ActionType     `json:"type" jsonschema:"enum=draw,enum=bellRing,enum=hammer,enum=play,enum=activate"`
	Deck       fight.DeckKind `json:"deck,omitempty" jsonschema:"enum=main,enum=side"`
	Hand       int            `json:"hand,omitempty"`
	Lane       int            `json:"lane,omitempty"`
	Sacrifices []int          `json:"sacrifices,omitempty"`
	Sigil      string         `json:"sigil,omitempty"`
}

// phaseActions lists what each phase accepts from the side to act.
var phaseActions = map[fight.Phase][]ActionType{
	fight.PhaseDraw: {ActionDraw},
	fight.PhasePlay: {ActionPlay, ActionActivate, ActionHammer, ActionBellRing},
}

// Translate validates an action against h and returns the events it starts. It
// never modifies h; every rejection is InvalidAction or InsufficientResources.
func (r *Resolver) Translate(h *Host, side fight.Side, a Action) ([]rules.Event, error) {
	f := h.Fight
	switch {
	case !side.Valid():
		return nil, apperrors.InvalidAction("unknown side %d", side)
	case f.Over():
		return nil, apperrors.InvalidAction("battle is over")
	case h.Waiting != nil:
		return nil, apperrors.InvalidAction("waiting for side %s to respond", h.Waiting.Side)
	case f.Turn.Side != side:
		return nil, apperrors.InvalidAction("it is side %s's turn", f.Turn.Side)
	case !slices.Contains(phaseActions[f.Turn.Phase], a.Type):
		return nil, apperrors.InvalidAction("%s is not allowed during %s", a.Type, f.Turn.Phase)
	}

	switch a.Type {
	case ActionDraw:
		return r.translateDraw(f, side, a)
	case ActionBellRing:
		if f.MustPlay[side] != nil {
			return nil, apperrors.InvalidAction("hand card %d must be played first", *f.MustPlay[side])
		}
		return []rules.Event{rules.NewPhase(side, fight.PhasePreAttack)}, nil
	case ActionHammer:
		return r.translateHammer(f, side, a)
	case ActionPlay:
		return r.translatePlay(f, side, a)
	case ActionActivate:
		return r.translateActivate(f, side, a)
	}
	return nil, apperrors.InvalidAction("unknown action %q", a.Type)
}

func (r *Resolver) translateDraw(f *fight.Fight, side fight.Side, a Action) ([]rules.Event, error) {
	if !a.Deck.Valid() {
		return nil, apperrors.InvalidAction("unknown deck %q", a.Deck)
	}
	if a.Deck == fight.DeckSide && !f.Options.Enabled(fight.FeatureSideDeck) {
		return nil, apperrors.InvalidAction("side deck is disabled")
	}
	if f.Decks[side].Get(a.Deck).Len() == 0 {
		return nil, apperrors.InvalidAction("%s deck is empty", a.Deck)
	}
	return []rules.Event{
		rules.NewDraw(side, a.Deck),
		rules.NewPhase(side, fight.PhasePlay),
	}, nil
}

func (r *Resolver) translateHammer(f *fight.Fight, side fight.Side, a Action) ([]rules.Event, error) {
	if !f.Options.Enabled(fight.FeatureHammer) {
		return nil, apperrors.InvalidAction("hammer is disabled")
	}
	if f.Players[side].HammersUsed >= f.Options.HammersPerTurn {
		return nil, apperrors.InvalidAction("hammer already used %d times this turn", f.Players[side].HammersUsed)
	}
	if !f.LaneInRange(a.Lane) || f.Field[side][a.Lane] == nil {
		return nil, apperrors.InvalidAction("no card of yours in lane %d", a.Lane)
	}
	return []rules.Event{rules.NewPerish(fight.FieldPos(side, a.Lane), rules.CauseHammer)}, nil
}

func (r *Resolver) translatePlay(f *fight.Fight, side fight.Side, a Action) ([]rules.Event, error) {
	card := f.At(fight.HandPos(side, a.Hand))
	if card == nil {
		return nil, apperrors.InvalidAction("no card at hand index %d", a.Hand)
	}
	if must := f.MustPlay[side]; must != nil && *must != a.Hand {
		return nil, apperrors.InvalidAction("hand card %d must be played first", *must)
	}
	if !f.LaneInRange(a.Lane) {
		return nil, apperrors.InvalidAction("lane %d is outside the board", a.Lane)
	}

	values := make([]int, 0, len(a.Sacrifices))
	for i, lane := range a.Sacrifices {
		if slices.Contains(a.Sacrifices[:i], lane) {
			return nil, apperrors.InvalidAction("lane %d sacrificed twice", lane)
		}
		if !f.LaneInRange(lane) || f.Field[side][lane] == nil {
			return nil, apperrors.InvalidAction("no card to sacrifice in lane %d", lane)
		}
		values = append(values, r.registry.BloodValue(f.Field[side][lane]))
	}
	if f.Field[side][a.Lane] != nil && !slices.Contains(a.Sacrifices, a.Lane) {
		return nil, apperrors.InvalidAction("lane %d is occupied", a.Lane)
	}

	tmpl, ok := r.registry.Template(card.TemplateID)
	if !ok {
		return nil, apperrors.InvalidAction("unknown card %q", card.TemplateID)
	}
	blood := cost.CheckBlood(tmpl.Cost.Blood, values)
	switch {
	case blood.Excessive:
		return nil, apperrors.InvalidAction("%s", blood.Reason).With("card", tmpl.ID)
	case !blood.Success:
		return nil, apperrors.InsufficientResources("%s", blood.Reason).With("card", tmpl.ID)
	}
	spends, err := r.spend(f, side, tmpl.Cost)
	if err != nil {
		return nil, err.With("card", tmpl.ID)
	}

	var events []rules.Event
	for _, lane := range a.Sacrifices {
		events = append(events, rules.NewPerish(fight.FieldPos(side, lane), rules.CauseSacrifice))
	}
	events = append(events, spends...)
	return append(events, rules.NewPlay(side, a.Hand, a.Lane)), nil
}

func (r *Resolver) translateActivate(f *fight.Fight, side fight.Side, a Action) ([]rules.Event, error) {
	pos := fight.FieldPos(side, a.Lane)
	card := f.At(pos)
	if card == nil {
		return nil, apperrors.InvalidAction("no card of yours in lane %d", a.Lane)
	}
	if !card.HasSigil(a.Sigil) {
		return nil, apperrors.InvalidAction("%s does not carry %s", card.TemplateID, a.Sigil)
	}
	b, ok := r.registry.Behavior(a.Sigil)
	if !ok || b.Activated == nil {
		return nil, apperrors.InvalidAction("%s cannot be activated", a.Sigil)
	}
	spends, err := r.spend(f, side, b.Activated.Cost)
	if err != nil {
		return nil, err.With("sigil", a.Sigil)
	}
	return append(spends, rules.NewActivate(pos, a.Sigil)), nil
}

// spend checks the bone, energy and mox part of a cost and returns the events
// paying it.
func (r *Resolver) spend(f *fight.Fight, side fight.Side, c cost.Cost) ([]rules.Event, *apperrors.Error) {
	player := f.Players[side]
	res := cost.CalculatePayment(c, cost.Pool{
		Bones:  player.Bones,
		Energy: player.Energy.Current,
		Gems:   r.registry.Gems(f, side),
	})
	if !res.Success {
		return nil, apperrors.InsufficientResources("%s", res.Reason).With("short", string(res.Short))
	}
	var events []rules.Event
	if c.Bones > 0 {
		events = append(events, rules.NewBones(side, -c.Bones))
	}
	if c.Energy > 0 {
		events = append(events, rules.NewEnergySpend(side, c.Energy))
	}
	return events, nil
}
