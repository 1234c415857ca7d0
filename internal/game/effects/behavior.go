// Package effects is the sigil registry: named behaviors that declare which event
// kinds they react to and in which phase. The settlement loop consumes them
// generically and never special-cases a behavior name.
package effects

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Phase is one of the four points at which behaviors react to an event.
type Phase int

const (
	PhaseWriter Phase = iota
	PhaseReader
	PhaseCleanup
	PhaseRequest
)

var phaseNames = map[Phase]string{
	PhaseWriter:  "writer",
	PhaseReader:  "reader",
	PhaseCleanup: "cleanup",
	PhaseRequest: "request",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

type (
	// WriterFunc may rewrite, cancel or defer the event before it commits.
	WriterFunc func(c WriterContext)
	// ReaderFunc observes an event and may emit follow-ups.
	ReaderFunc func(c Context)
	// RequestFunc may offer a decision to a player after the event commits.
	RequestFunc func(c Context) (Offer, bool)
	// RespondFunc handles the answer to an offer this behavior made.
	RespondFunc func(c Context, req rules.Request, res rules.Response)
	// AuraFunc returns the power modifier a field card gives the card at target.
	AuraFunc func(q Query, self, target fight.Pos) int
	// StatFunc computes a special power stat for the card at pos.
	StatFunc func(q Query, pos fight.Pos) int
)

// Offer is a pending request raised during the request phase.
type Offer struct {
	Side    fight.Side
	Request rules.Request
}

// Activated marks a sigil the owner can fire during their play phase.
type Activated struct {
	Cost cost.Cost
}

// Behavior is a sigil declaration. A zero RunLocation means the field; a zero
// RunRole makes the behavior fire for every event regardless of its targets.
type Behavior struct {
	Name        string
	Description string
	RunLocation fight.Area
	RunRole     rules.Role

	Writers  map[rules.Kind]WriterFunc
	Readers  map[rules.Kind]ReaderFunc
	Cleanup  map[rules.Kind]ReaderFunc
	Requests map[rules.Kind]RequestFunc
	Respond  RespondFunc

	Aura      AuraFunc
	Blood     int
	Gems      cost.Gem
	Activated *Activated
}

// Location returns the effective run location.
func (b *Behavior) Location() fight.Area {
	if b.RunLocation == "" {
		return fight.AreaField
	}
	return b.RunLocation
}

// Handles reports whether the behavior registers a handler for kind in phase.
func (b *Behavior) Handles(phase Phase, kind rules.Kind) bool {
	switch phase {
	case PhaseWriter:
		_, ok := b.Writers[kind]
		return ok
	case PhaseReader:
		_, ok := b.Readers[kind]
		return ok
	case PhaseCleanup:
		_, ok := b.Cleanup[kind]
		return ok
	case PhaseRequest:
		_, ok := b.Requests[kind]
		return ok
	}
	return false
}

// Builder provides a fluent API for declaring behaviors.
type Builder struct {
	b *Behavior
}

// NewBehavior starts a behavior declaration.
func NewBehavior(name string) *Builder {
	return &Builder{b: &Behavior{Name: name}}
}

// Describe sets the human-readable rules text.
func (bd *Builder) Describe(text string) *Builder {
	bd.b.Description = text
	return bd
}

// InHand makes the behavior run while its card is in hand.
func (bd *Builder) InHand() *Builder {
	bd.b.RunLocation = fight.AreaHand
	return bd
}

// As binds the behavior to a target role.
func (bd *Builder) As(role rules.Role) *Builder {
	bd.b.RunRole = role
	return bd
}

// Writer registers a writer handler.
func (bd *Builder) Writer(kind rules.Kind, fn WriterFunc) *Builder {
	if bd.b.Writers == nil {
		bd.b.Writers = map[rules.Kind]WriterFunc{}
	}
	bd.b.Writers[kind] = fn
	return bd
}

// Reader registers a reader handler.
func (bd *Builder) Reader(kind rules.Kind, fn ReaderFunc) *Builder {
	if bd.b.Readers == nil {
		bd.b.Readers = map[rules.Kind]ReaderFunc{}
	}
	bd.b.Readers[kind] = fn
	return bd
}

// Cleanup registers a cleanup handler.
func (bd *Builder) Cleanup(kind rules.Kind, fn ReaderFunc) *Builder {
	if bd.b.Cleanup == nil {
		bd.b.Cleanup = map[rules.Kind]ReaderFunc{}
	}
	bd.b.Cleanup[kind] = fn
	return bd
}

// Request registers a request handler and the handler for its answer.
func (bd *Builder) Request(kind rules.Kind, fn RequestFunc, respond RespondFunc) *Builder {
	if bd.b.Requests == nil {
		bd.b.Requests = map[rules.Kind]RequestFunc{}
	}
	bd.b.Requests[kind] = fn
	bd.b.Respond = respond
	return bd
}

// Aura sets the power modifier the behavior projects from the field.
func (bd *Builder) Aura(fn AuraFunc) *Builder {
	bd.b.Aura = fn
	return bd
}

// Blood sets the blood value of a card carrying the behavior.
func (bd *Builder) Blood(value int) *Builder {
	bd.b.Blood = value
	return bd
}

// Gems sets the mox colours the behavior provides while on the field.
func (bd *Builder) Gems(g cost.Gem) *Builder {
	bd.b.Gems = g
	return bd
}

// Activated makes the behavior an activated sigil with the given cost.
func (bd *Builder) Activated(c cost.Cost) *Builder {
	bd.b.Activated = &Activated{Cost: c}
	return bd
}

// Build returns the declared behavior.
func (bd *Builder) Build() *Behavior {
	return bd.b
}
