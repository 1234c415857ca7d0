package fight

import "fmt"

// Side identifies one of the two players.
type Side int

const (
	SideA Side = 0
	SideB Side = 1
)

// Sides lists both sides in resolution order.
var Sides = [2]Side{SideA, SideB}

// Other returns the opposing side.
func (s Side) Other() Side {
	return 1 - s
}

// Valid reports whether s is SideA or SideB.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return fmt.Sprintf("SIDE_%d", int(s))
	}
}

// Phase is a step of a side's turn.
type Phase string

const (
	PhasePreTurn    Phase = "pre-turn"
	PhaseDraw       Phase = "draw"
	PhasePlay       Phase = "play"
	PhasePreAttack  Phase = "pre-attack"
	PhaseAttack     Phase = "attack"
	PhasePostAttack Phase = "post-attack"
)

// turnSequence is the order phases follow within one turn.
var turnSequence = []Phase{
	PhasePreTurn,
	PhaseDraw,
	PhasePlay,
	PhasePreAttack,
	PhaseAttack,
	PhasePostAttack,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, q := range turnSequence {
		if p == q {
			return true
		}
	}
	return false
}

// Next returns the phase after p and whether the turn passes to the other side.
func (p Phase) Next() (Phase, bool) {
	for i, q := range turnSequence {
		if q == p && i+1 < len(turnSequence) {
			return turnSequence[i+1], false
		}
	}
	return PhasePreTurn, true
}

func (p Phase) String() string {
	return string(p)
}

// Turn points at the side and phase currently resolving.
type Turn struct {
	Side  Side  `json:"side"`
	Phase Phase `json:"phase"`
}
