package effects

import (
	"math/rand"

	"go.uber.org/zap"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Query is the read-only view of a battle handed to behaviors. Cards returned
// from it are copies; mutating them has no effect on the battle.
type Query interface {
	Turn() fight.Turn
	Options() fight.Options
	Card(pos fight.Pos) *fight.Card
	Field(side fight.Side) []*fight.Card
	Hand(side fight.Side) []*fight.Card
	DeckRemaining(side fight.Side, kind fight.DeckKind) int
	Deck(side fight.Side, kind fight.DeckKind) fight.Deck
	Player(side fight.Side) fight.Player
	Points() [2]int
	// BasePower is the card's power before auras. Special stats are only
	// resolved at the top level so stats reading other stats terminate.
	BasePower(pos fight.Pos) int
	Template(id string) (fight.Template, bool)
}

// Context is what reader, cleanup, request and respond handlers receive.
type Context interface {
	Query
	Sigil() string
	Self() fight.Pos
	SelfCard() *fight.Card
	Event() rules.Event
	Targets() rules.Targets
	Power(pos fight.Pos) int
	Rand() *rand.Rand
	Logger() *zap.Logger
	// Emit queues follow-up events that resolve right after the current one.
	Emit(events ...rules.Event)
}

// WriterContext is what writer handlers receive.
type WriterContext interface {
	Context
	// Edit returns the live event for in-place rewriting.
	Edit() *rules.Event
	// Cancel drops the event; it is neither settled nor logged.
	Cancel()
	// CancelDefault suppresses the built-in consequences of the event.
	CancelDefault()
	// EmitBefore defers the event: the given events resolve first, then the
	// event is retried as it was before any rewriting.
	EmitBefore(events ...rules.Event)
}

// view implements Query over a live fight.
type view struct {
	f     *fight.Fight
	reg   *Registry
	depth int
}

func (v *view) Turn() fight.Turn       { return v.f.Turn }
func (v *view) Options() fight.Options { return v.f.Options }
func (v *view) Points() [2]int         { return v.f.Points }

func (v *view) Card(pos fight.Pos) *fight.Card {
	return v.f.At(pos).Clone()
}

func (v *view) Field(side fight.Side) []*fight.Card {
	if !side.Valid() {
		return nil
	}
	return cloneCards(v.f.Field[side])
}

func (v *view) Hand(side fight.Side) []*fight.Card {
	if !side.Valid() {
		return nil
	}
	return cloneCards(v.f.Hands[side])
}

func (v *view) DeckRemaining(side fight.Side, kind fight.DeckKind) int {
	if !side.Valid() {
		return 0
	}
	deck := v.f.Decks[side].Get(kind)
	if deck == nil {
		return 0
	}
	return deck.Len()
}

func (v *view) Deck(side fight.Side, kind fight.DeckKind) fight.Deck {
	if !side.Valid() {
		return fight.Deck{}
	}
	deck := v.f.Decks[side].Get(kind)
	if deck == nil {
		return fight.Deck{}
	}
	return deck.Clone()
}

func (v *view) Player(side fight.Side) fight.Player {
	if !side.Valid() {
		return fight.Player{}
	}
	return v.f.Players[side]
}

func (v *view) Template(id string) (fight.Template, bool) {
	return v.reg.Template(id)
}

func (v *view) BasePower(pos fight.Pos) int {
	card := v.f.At(pos)
	if card == nil {
		return 0
	}
	if card.State.Stat == "" || v.depth > 0 {
		return card.State.Power
	}
	stat, ok := v.reg.Stat(card.State.Stat)
	if !ok {
		v.reg.logger.Debug("card carries unknown stat",
			zap.String("template", card.TemplateID),
			zap.String("stat", card.State.Stat))
		return card.State.Power
	}
	return stat(&view{f: v.f, reg: v.reg, depth: v.depth + 1}, pos)
}

func cloneCards(cards []*fight.Card) []*fight.Card {
	out := make([]*fight.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

// Resolution is the shared per-event state every handler of one event writes to.
type Resolution struct {
	Event            *rules.Event
	Targets          rules.Targets
	Cancelled        bool
	DefaultCancelled bool
	Deferred         bool
	Emitted          []rules.Event
	Before           []rules.Event
}

// NewResolution starts the resolution of e.
func NewResolution(e *rules.Event, targets rules.Targets) *Resolution {
	return &Resolution{Event: e, Targets: targets}
}

// Scope binds one behavior instance to a resolution for a single handler call.
// It implements both Context and WriterContext; writer-only calls outside the
// writer phase panic with an invalid event error.
type Scope struct {
	*view
	res    *Resolution
	phase  Phase
	active Active
	rng    *rand.Rand
	logger *zap.Logger
}

// NewScope creates the context for a handler of active in phase.
func (r *Registry) NewScope(f *fight.Fight, res *Resolution, phase Phase, active Active, rng *rand.Rand) *Scope {
	return &Scope{
		view:   r.view(f),
		res:    res,
		phase:  phase,
		active: active,
		rng:    rng,
		logger: r.logger.With(
			zap.String("sigil", active.Behavior.Name),
			zap.Stringer("self", active.Pos),
			zap.Stringer("phase", phase)),
	}
}

var (
	_ Context       = (*Scope)(nil)
	_ WriterContext = (*Scope)(nil)
)

func (s *Scope) Sigil() string          { return s.active.Behavior.Name }
func (s *Scope) Self() fight.Pos        { return s.active.Pos }
func (s *Scope) SelfCard() *fight.Card  { return s.active.Card.Clone() }
func (s *Scope) Event() rules.Event     { return s.res.Event.Clone() }
func (s *Scope) Targets() rules.Targets { return s.res.Targets }
func (s *Scope) Rand() *rand.Rand       { return s.rng }
func (s *Scope) Logger() *zap.Logger    { return s.logger }

func (s *Scope) Power(pos fight.Pos) int {
	return s.reg.Power(s.f, pos)
}

func (s *Scope) Emit(events ...rules.Event) {
	s.res.Emitted = append(s.res.Emitted, rules.CloneAll(events)...)
}

func (s *Scope) Edit() *rules.Event {
	s.mustWrite("edit")
	return s.res.Event
}

func (s *Scope) Cancel() {
	s.mustWrite("cancel")
	s.res.Cancelled = true
}

func (s *Scope) CancelDefault() {
	s.mustWrite("cancel default")
	s.res.DefaultCancelled = true
}

func (s *Scope) EmitBefore(events ...rules.Event) {
	s.mustWrite("emit before")
	s.res.Deferred = true
	s.res.Before = append(s.res.Before, rules.CloneAll(events)...)
}

func (s *Scope) mustWrite(op string) {
	if s.phase != PhaseWriter {
		panic(apperrors.InvalidEvent("sigil %s called %s during the %s phase", s.active.Behavior.Name, op, s.phase))
	}
}
