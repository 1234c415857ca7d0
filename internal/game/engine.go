package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/perspective"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Packet is one side's projection of a single commit. Packets for a battle are
// delivered in commit order.
type Packet struct {
	BattleID  string            `json:"battleId"`
	Side      fight.Side        `json:"side"`
	Settled   []rules.Event     `json:"settled"`
	View      *perspective.View `json:"view,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// PacketHandler receives packets. It is called synchronously while the battle is
// locked, so it must not call back into the engine for the same battle.
type PacketHandler func(Packet)

// BattleConfig describes a new battle. A zero Seed picks one from the clock.
type BattleConfig struct {
	Options fight.Options     `json:"options"`
	Decks   [2]fight.DeckList `json:"decks"`
	Seed    int64             `json:"seed,omitempty"`
}

// Engine serves battles: it loads the host record, resolves under a per-battle
// lock, persists the result and publishes packets.
type Engine struct {
	logger   *zap.Logger
	resolver *Resolver
	store    HostStore
	tracer   trace.Tracer

	mu      sync.RWMutex
	handler PacketHandler
	archive Archive
	locks   map[string]*sync.Mutex
}

// NewEngine creates an engine over store.
func NewEngine(resolver *Resolver, store HostStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:   logger,
		resolver: resolver,
		store:    store,
		tracer:   otel.Tracer("github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetPacketHandler sets the receiver of per-side packets.
func (e *Engine) SetPacketHandler(handler PacketHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

// SetArchive sets where finished battles are recorded.
func (e *Engine) SetArchive(archive Archive) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archive = archive
}

func (e *Engine) lock(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// StartBattle creates a battle, deals the opening hands and starts side A's turn.
func (e *Engine) StartBattle(ctx context.Context, cfg BattleConfig) (*Host, error) {
	ctx, span := e.tracer.Start(ctx, "battle.start")
	defer span.End()

	for side, deck := range cfg.Decks {
		for _, id := range append(append([]string(nil), deck.Main...), deck.Side...) {
			if _, ok := e.resolver.Registry().Template(id); !ok {
				return nil, apperrors.InvalidAction("deck %d lists unknown card %q", side, id)
			}
		}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f, err := fight.New(cfg.Options, cfg.Decks, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, apperrors.InvalidAction("%v", err)
	}

	now := time.Now().UTC()
	h := &Host{
		ID:        uuid.NewString(),
		Ruleset:   cfg.Options.Ruleset,
		Seed:      seed,
		Fight:     f,
		Initial:   f.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("battle.id", h.ID), attribute.Int64("battle.seed", seed))

	settled, err := e.resolver.Run(h, rules.NewQueue(Opening(f)...))
	if err != nil {
		return nil, e.fail(span, h.ID, "start", err)
	}
	if err := e.store.Save(ctx, h); err != nil {
		return nil, e.fail(span, h.ID, "save", err)
	}

	e.logger.Info("battle started",
		zap.String("battle_id", h.ID),
		zap.Int64("seed", seed),
		zap.String("ruleset", h.Ruleset),
		zap.Int("settled", len(settled)))
	e.publish(h, settled)
	return h.Clone(), nil
}

// Opening is the queue a fresh battle starts with: each side draws one side-deck
// card when it has one and the starting hand from its main deck, then side A's
// turn begins.
func Opening(f *fight.Fight) []rules.Event {
	var events []rules.Event
	for _, side := range fight.Sides {
		if f.Options.Enabled(fight.FeatureSideDeck) && f.Decks[side].Side.Len() > 0 {
			events = append(events, rules.NewDraw(side, fight.DeckSide))
		}
		for range f.Options.StartingHand {
			events = append(events, rules.NewDraw(side, fight.DeckMain))
		}
	}
	return append(events, rules.NewPhase(fight.SideA, fight.PhasePreTurn))
}

// Apply runs a player action on a stored battle.
func (e *Engine) Apply(ctx context.Context, id string, side fight.Side, a Action) ([]rules.Event, error) {
	ctx, span := e.tracer.Start(ctx, "battle.apply", trace.WithAttributes(
		attribute.String("battle.id", id),
		attribute.Int("battle.side", int(side)),
		attribute.String("action.type", string(a.Type))))
	defer span.End()

	return e.mutate(ctx, span, id, "apply", func(h *Host) ([]rules.Event, error) {
		return e.resolver.Apply(h, side, a)
	})
}

// Respond answers a stored battle's pending request.
func (e *Engine) Respond(ctx context.Context, id string, side fight.Side, res rules.Response) ([]rules.Event, error) {
	ctx, span := e.tracer.Start(ctx, "battle.respond", trace.WithAttributes(
		attribute.String("battle.id", id),
		attribute.Int("battle.side", int(side)),
		attribute.String("response.type", string(res.Type))))
	defer span.End()

	return e.mutate(ctx, span, id, "respond", func(h *Host) ([]rules.Event, error) {
		return e.resolver.Respond(h, side, res)
	})
}

func (e *Engine) mutate(ctx context.Context, span trace.Span, id, op string, fn func(*Host) ([]rules.Event, error)) ([]rules.Event, error) {
	unlock := e.lock(id)
	defer unlock()

	h, err := e.store.Load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	wasOver := h.Fight.Over()

	settled, err := fn(h)
	if err != nil {
		if apperrors.IsFatal(err) {
			return nil, e.fail(span, id, op, err)
		}
		span.SetAttributes(attribute.String("rejected", err.Error()))
		return nil, err
	}

	h.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, h); err != nil {
		return nil, e.fail(span, id, "save", err)
	}
	span.SetAttributes(attribute.Int("settled", len(settled)))
	e.publish(h, settled)

	if !wasOver && h.Fight.Over() {
		e.finish(ctx, h)
	}
	return settled, nil
}

// View returns side's projection of a stored battle.
func (e *Engine) View(ctx context.Context, id string, side fight.Side) (perspective.View, error) {
	if !side.Valid() {
		return perspective.View{}, apperrors.InvalidAction("unknown side %d", side)
	}
	h, err := e.store.Load(ctx, id)
	if err != nil {
		return perspective.View{}, err
	}
	return perspective.ProjectFight(h.Fight, h.Pending(), side), nil
}

// Host returns the full stored record. It is meant for operators and tooling.
func (e *Engine) Host(ctx context.Context, id string) (*Host, error) {
	return e.store.Load(ctx, id)
}

func (e *Engine) publish(h *Host, settled []rules.Event) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()
	if handler == nil {
		return
	}
	now := time.Now().UTC()
	for _, side := range fight.Sides {
		view := perspective.ProjectFight(h.Fight, h.Pending(), side)
		handler(Packet{
			BattleID:  h.ID,
			Side:      side,
			Settled:   perspective.ProjectAll(settled, side),
			View:      &view,
			Timestamp: now,
		})
	}
}

func (e *Engine) finish(ctx context.Context, h *Host) {
	winner, _ := h.Fight.Winner()
	e.logger.Info("battle finished",
		zap.String("battle_id", h.ID),
		zap.Stringer("winner", winner),
		zap.Int("events", len(h.Log)))

	e.mu.RLock()
	archive := e.archive
	e.mu.RUnlock()
	if archive == nil {
		return
	}
	if err := archive.Record(ctx, h); err != nil {
		e.logger.Warn("failed to archive battle",
			zap.String("battle_id", h.ID),
			zap.Error(err))
	}
}

func (e *Engine) fail(span trace.Span, id, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	e.logger.Error("battle engine failure",
		zap.String("battle_id", id),
		zap.String("op", op),
		zap.Error(err))
	return fmt.Errorf("%s battle %s: %w", op, id, err)
}

// Pending returns the paused request as an event payload, or nil.
func (h *Host) Pending() *rules.RequestRaised {
	if h.Waiting == nil {
		return nil
	}
	return &rules.RequestRaised{Side: h.Waiting.Side, Request: h.Waiting.Request.Clone()}
}
