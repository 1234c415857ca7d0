package game

import (
	"math/rand"

	"go.uber.org/zap"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// DefaultMaxIterations bounds a single resolution.
const DefaultMaxIterations = 10_000

// Resolver drains event queues against a host record. It holds no battle state
// and can serve any number of battles sharing one registry.
type Resolver struct {
	registry      *effects.Registry
	logger        *zap.Logger
	maxIterations int
}

// NewResolver creates a resolver. maxIterations <= 0 uses DefaultMaxIterations.
func NewResolver(registry *effects.Registry, logger *zap.Logger, maxIterations int) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Resolver{registry: registry, logger: logger, maxIterations: maxIterations}
}

// Registry returns the behavior registry the resolver dispatches through.
func (r *Resolver) Registry() *effects.Registry {
	return r.registry
}

// Run settles q against h and returns the events committed by this call. h is only
// modified when resolution finishes or suspends cleanly; on a fatal error it is
// left as it was.
func (r *Resolver) Run(h *Host, q *rules.Queue) ([]rules.Event, error) {
	work := h.Clone()
	settled, err := r.settle(work, q)
	if err != nil {
		return nil, err
	}
	*h = *work
	return settled, nil
}

// settle is the loop. It mutates h in place.
func (r *Resolver) settle(h *Host, q *rules.Queue) (settled []rules.Event, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recovered(p)
			r.logger.Error("behavior panicked during settlement",
				zap.String("battle_id", h.ID),
				zap.Error(err))
		}
	}()

	f := h.Fight
	for iter := 0; !q.IsEmpty(); iter++ {
		if iter >= r.maxIterations {
			return nil, apperrors.Newf(apperrors.KindMaxStackSize,
				"resolution exceeded %d iterations", r.maxIterations).
				With("battle_id", h.ID)
		}
		if f.Over() {
			if dropped := q.Drain(); len(dropped) > 0 {
				r.logger.Debug("battle over, dropping queued events",
					zap.String("battle_id", h.ID),
					zap.Int("dropped", len(dropped)))
			}
			break
		}

		e, _ := q.PopFront()
		if e.Kind != rules.KindPerish {
			if sweep := staleDeaths(f); len(sweep) > 0 {
				q.PushFront(append(sweep, e)...)
				continue
			}
		}
		if res := rules.CheckLegality(f, e); !res.Legal {
			r.logger.Debug("skipping stale event",
				zap.String("battle_id", h.ID),
				zap.Stringer("event", e),
				zap.String("reason", res.Reason))
			continue
		}

		step, err := r.resolve(h, e)
		if err != nil {
			return nil, err
		}
		settled = append(settled, step.settled...)
		if v := step.vacated; v != nil {
			q.PushBack(rules.ShiftHand(q.Drain(), v.Side, v.Index)...)
		}
		q.PushFront(step.front...)
		q.PushBack(step.back...)

		if step.offer != nil {
			raised := rules.NewRequest(step.offer.Side, step.offer.Request)
			h.Log = append(h.Log, raised)
			settled = append(settled, raised)
			h.Waiting = step.waiting
			h.Backlog = q.Drain()
			r.logger.Debug("resolution suspended",
				zap.String("battle_id", h.ID),
				zap.String("sigil", h.Waiting.Behavior),
				zap.Stringer("side", h.Waiting.Side),
				zap.Int("backlog", len(h.Backlog)))
			return settled, nil
		}
	}
	return settled, nil
}

// outcome is what resolving one event produced.
type outcome struct {
	settled []rules.Event
	front   []rules.Event
	back    []rules.Event
	offer   *effects.Offer
	waiting *Waiting
	vacated *fight.Pos
}

func (r *Resolver) resolve(h *Host, e rules.Event) (outcome, error) {
	var out outcome
	f := h.Fight
	original := e.Clone()

	if err := rules.Prepare(f, &e, r.registry.Templates(), r.power(f)); err != nil {
		return out, err
	}
	targets := rules.TargetsOf(f, e)
	gathered := r.registry.Gather(effects.Occupants(f, e), e.Kind, targets)
	res := effects.NewResolution(&e, targets)

	pick := drawPick(e)
	r.run(h, res, effects.PhaseWriter, gathered.Writers, e.Kind)
	switch {
	case res.Deferred:
		out.front = append(out.front, res.Emitted...)
		out.front = append(out.front, res.Before...)
		out.front = append(out.front, original)
		return out, nil
	case res.Cancelled:
		out.front = append(out.front, res.Emitted...)
		return out, nil
	}
	if lr := rules.CheckLegality(f, e); !lr.Legal {
		return out, apperrors.InvalidEvent("writers left %s invalid: %s", e.Kind, lr.Reason)
	}
	if e.Kind == rules.KindDraw && drawPick(e) != pick {
		// A writer redirected the draw; the hand must get the card the deck gives up.
		if err := rules.Prepare(f, &e, r.registry.Templates(), r.power(f)); err != nil {
			return out, err
		}
	}

	if !res.DefaultCancelled {
		rules.PreDefault(f, &e)
	}
	r.run(h, res, effects.PhaseReader, gathered.Readers, e.Kind)

	if err := rules.Settle(f, e); err != nil {
		return out, err
	}
	committed := e.Clone()
	h.Log = append(h.Log, committed)
	out.settled = append(out.settled, committed)

	// Events emitted so far address the hand as it was before the commit.
	if side, idx, ok := rules.Vacated(committed); ok {
		res.Emitted = rules.ShiftHand(res.Emitted, side, idx)
		res.Before = rules.ShiftHand(res.Before, side, idx)
		vacated := fight.HandPos(side, idx)
		out.vacated = &vacated
	}

	if !res.DefaultCancelled {
		follow := rules.PostDefault(f, e, r.power(f))
		out.front = append(out.front, follow.Front...)
		out.back = append(out.back, follow.Back...)
	}
	r.run(h, res, effects.PhaseCleanup, gathered.Cleanup, e.Kind)

	for i, active := range gathered.Requests {
		scope := r.registry.NewScope(f, res, effects.PhaseRequest, active, r.rand(h, int(effects.PhaseRequest)*1000+i))
		offer, ok := active.Invoke(scope, effects.PhaseRequest, e.Kind)
		if !ok {
			continue
		}
		if out.offer != nil {
			r.logger.Debug("dropping simultaneous request offer",
				zap.String("battle_id", h.ID),
				zap.String("sigil", active.Behavior.Name),
				zap.String("kept", out.waiting.Behavior))
			continue
		}
		out.offer = &offer
		out.waiting = &Waiting{
			Side:     offer.Side,
			Request:  offer.Request.Clone(),
			Behavior: active.Behavior.Name,
			Event:    committed.Clone(),
			Pos:      active.Pos,
		}
	}

	out.front = append(out.front, res.Emitted...)
	return out, nil
}

// run invokes one phase's handlers in order.
func (r *Resolver) run(h *Host, res *effects.Resolution, phase effects.Phase, actives []effects.Active, kind rules.Kind) {
	for i, active := range actives {
		scope := r.registry.NewScope(h.Fight, res, phase, active, r.rand(h, int(phase)*1000+i))
		active.Invoke(scope, phase, kind)
	}
}

func (r *Resolver) power(f *fight.Fight) rules.PowerFunc {
	return func(pos fight.Pos) int {
		return r.registry.Power(f, pos)
	}
}

// rand derives a handler's random source from the battle seed, the log position
// and the handler's slot, so replays and retries draw the same numbers.
func (r *Resolver) rand(h *Host, slot int) *rand.Rand {
	seed := h.Seed*1_000_003 + int64(len(h.Log))*7919 + int64(slot)
	return rand.New(rand.NewSource(seed))
}

type deckPick struct {
	deck fight.DeckKind
	pick int
}

// drawPick identifies the deck card a draw takes.
func drawPick(e rules.Event) deckPick {
	if e.Kind != rules.KindDraw || e.Draw == nil {
		return deckPick{}
	}
	return deckPick{deck: e.Draw.Deck, pick: e.Draw.Pick}
}

// staleDeaths returns a perish for every field card whose health reached zero.
func staleDeaths(f *fight.Fight) []rules.Event {
	var out []rules.Event
	for _, side := range fight.Sides {
		for _, pos := range f.FieldCards(side) {
			if f.At(pos).Dead() {
				out = append(out, rules.NewPerish(pos, rules.CauseAttack))
			}
		}
	}
	return out
}

func recovered(p any) error {
	if err, ok := p.(error); ok {
		if _, tagged := apperrors.KindOf(err); tagged {
			return err
		}
		return apperrors.Wrap(apperrors.KindInvalidEvent, "behavior panicked", err)
	}
	return apperrors.InvalidEvent("behavior panicked: %v", p)
}

