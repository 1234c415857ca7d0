package perspective

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// DeckView lists the viewer's remaining deck contents. The order is never shown.
type DeckView struct {
	Main []string `json:"main"`
	Side []string `json:"side"`
}

// DeckCounts is all the viewer learns about the opponent's decks.
type DeckCounts struct {
	Main int `json:"main"`
	Side int `json:"side"`
}

// PendingView describes a paused resolution. Request is only set when the
// viewer is the one being asked.
type PendingView struct {
	Side    fight.Side        `json:"side"`
	Kind    rules.RequestKind `json:"kind"`
	Request *rules.Request    `json:"request,omitempty"`
}

// View is one side's read model of a battle. Index 0 of every pair is the viewer.
type View struct {
	Options      fight.Options    `json:"options"`
	Turn         fight.Turn       `json:"turn"`
	Field        [2][]*fight.Card `json:"field"`
	Hand         []*fight.Card    `json:"hand"`
	OpponentHand int              `json:"opponentHand"`
	Deck         DeckView         `json:"deck"`
	OpponentDeck DeckCounts       `json:"opponentDeck"`
	Players      [2]fight.Player  `json:"players"`
	Points       [2]int           `json:"points"`
	MustPlay     *int             `json:"mustPlay,omitempty"`
	Pending      *PendingView     `json:"pending,omitempty"`
	Winner       *fight.Side      `json:"winner,omitempty"`
}

// ProjectFight builds viewer's read model. pending is the paused request, if any.
func ProjectFight(f *fight.Fight, pending *rules.RequestRaised, viewer fight.Side) View {
	opp := viewer.Other()
	v := View{
		Options:      f.Options,
		Turn:         fight.Turn{Side: Relabel(f.Turn.Side, viewer), Phase: f.Turn.Phase},
		Hand:         cloneCards(f.Hands[viewer]),
		OpponentHand: len(f.Hands[opp]),
		Deck: DeckView{
			Main: f.Decks[viewer].Main.Remaining(),
			Side: f.Decks[viewer].Side.Remaining(),
		},
		OpponentDeck: DeckCounts{
			Main: f.Decks[opp].Main.Len(),
			Side: f.Decks[opp].Side.Len(),
		},
	}
	for _, side := range fight.Sides {
		rel := Relabel(side, viewer)
		v.Field[rel] = cloneCards(f.Field[side])
		v.Players[rel] = f.Players[side]
		v.Points[rel] = f.Points[side]
	}
	if must := f.MustPlay[viewer]; must != nil {
		idx := *must
		v.MustPlay = &idx
	}
	if pending != nil {
		pv := &PendingView{Side: Relabel(pending.Side, viewer), Kind: pending.Request.Kind}
		if pending.Side == viewer {
			req := pending.Request.Clone()
			pv.Request = &req
		}
		v.Pending = pv
	}
	if winner, ok := f.Winner(); ok {
		w := Relabel(winner, viewer)
		v.Winner = &w
	}
	return v
}

func cloneCards(cards []*fight.Card) []*fight.Card {
	out := make([]*fight.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}
