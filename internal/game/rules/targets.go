package rules

import (
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// Role names the part a card plays in an event.
type Role string

const (
	RolePlayed   Role = "played"
	RoleAttackee Role = "attackee"
	RoleOpposing Role = "opposing"
	RoleDrawn    Role = "drawn"
)

// Roles lists roles in the order behaviors bound to them are gathered.
var Roles = []Role{RolePlayed, RoleAttackee, RoleOpposing, RoleDrawn}

// Targets maps roles to the positions an event touches.
type Targets map[Role]fight.Pos

// Role returns the position bound to role.
func (t Targets) Role(role Role) (fight.Pos, bool) {
	pos, ok := t[role]
	return pos, ok
}

// TargetsOf derives the roles of an event from its own fields. A played card is
// addressed at the lane it is entering and a drawn card at the hand slot it will take.
func TargetsOf(f *fight.Fight, e Event) Targets {
	t := Targets{}
	if e.Payload() == nil {
		return t
	}

	switch e.Kind {
	case KindDraw:
		t[RoleDrawn] = fight.HandPos(e.Draw.Side, len(f.Hands[e.Draw.Side]))
	case KindPlay:
		pos := fight.FieldPos(e.Play.Side, e.Play.Lane)
		t[RolePlayed] = pos
		t[RoleOpposing] = pos.Opposing()
	case KindAttack:
		a := e.Attack
		from := fight.FieldPos(a.Side, a.From)
		t[RolePlayed] = from
		t[RoleOpposing] = from.Opposing()
		if !a.Direct {
			t[RoleAttackee] = fight.FieldPos(a.Side.Other(), a.To)
		}
	case KindShoot:
		t[RoleAttackee] = e.Shoot.Target
		if e.Shoot.Source != nil {
			t[RolePlayed] = *e.Shoot.Source
		}
	case KindPerish:
		bindPlayed(t, e.Perish.Pos)
	case KindMove:
		bindPlayed(t, e.Move.From)
	case KindPush:
		bindPlayed(t, fight.FieldPos(e.Push.Side, e.Push.Lane))
	case KindHeal:
		bindPlayed(t, e.Heal.Pos)
	case KindStats:
		bindPlayed(t, e.Stats.Pos)
	case KindActivate:
		bindPlayed(t, e.Activate.Pos)
	case KindTransform:
		bindPlayed(t, e.Transform.Pos)
	case KindFlip:
		bindPlayed(t, e.Flip.Pos)
	}
	return t
}

func bindPlayed(t Targets, pos fight.Pos) {
	t[RolePlayed] = pos
	if pos.Area == fight.AreaField {
		t[RoleOpposing] = pos.Opposing()
	}
}
