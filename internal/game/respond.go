package game

import (
	"go.uber.org/zap"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Apply validates a player action and settles it. Rejected actions leave h untouched.
func (r *Resolver) Apply(h *Host, side fight.Side, a Action) ([]rules.Event, error) {
	events, err := r.Translate(h, side, a)
	if err != nil {
		r.logger.Debug("action rejected",
			zap.String("battle_id", h.ID),
			zap.Stringer("side", side),
			zap.String("action", string(a.Type)),
			zap.Error(err))
		return nil, err
	}
	return r.Run(h, rules.NewQueue(events...))
}

// Respond answers the pending request and resumes resolution: the sigil that
// asked handles the answer, its follow-ups resolve first, then the backlog.
func (r *Resolver) Respond(h *Host, side fight.Side, res rules.Response) ([]rules.Event, error) {
	w := h.Waiting
	switch {
	case w == nil:
		return nil, apperrors.InvalidAction("no request is pending")
	case w.Side != side:
		return nil, apperrors.InvalidAction("pending request is addressed to side %s", w.Side)
	}
	if err := rules.ValidateResponse(w.Request, res); err != nil {
		return nil, err
	}
	b, ok := r.registry.Behavior(w.Behavior)
	if !ok || b.Respond == nil {
		return nil, apperrors.InvalidEvent("sigil %s cannot handle a response", w.Behavior)
	}

	work := h.Clone()
	answered := rules.NewResponse(side, res)
	work.Log = append(work.Log, answered)

	emitted, err := r.respond(work, b, res)
	if err != nil {
		return nil, err
	}
	q := rules.NewQueue(emitted...)
	q.PushBack(work.Backlog...)
	work.Backlog = nil
	work.Waiting = nil

	settled, err := r.Run(work, q)
	if err != nil {
		return nil, err
	}
	*h = *work
	return append([]rules.Event{answered}, settled...), nil
}

// respond runs the response handler and returns what it emitted.
func (r *Resolver) respond(h *Host, b *effects.Behavior, res rules.Response) (events []rules.Event, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(p)
		}
	}()
	w := h.Waiting
	event := w.Event.Clone()
	resolution := effects.NewResolution(&event, rules.TargetsOf(h.Fight, event))
	active := effects.Active{Pos: w.Pos, Card: h.Fight.At(w.Pos), Behavior: b}
	scope := r.registry.NewScope(h.Fight, resolution, effects.PhaseCleanup, active, r.rand(h, 0))
	b.Respond(scope, w.Request.Clone(), res)
	return resolution.Emitted, nil
}
