package script

import (
	"fmt"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// effect is one compiled verb. It returns the events to emit, or none when its
// target is missing.
type effect func(c effects.Context) []rules.Event

// mutation is one compiled writer verb.
type mutation func(c effects.WriterContext)

func compile(decl map[string]any) (*effects.Behavior, error) {
	name := str(decl, "name")
	if name == "" {
		return nil, fmt.Errorf("sigil script has no name")
	}
	b := effects.NewBehavior(name).Describe(str(decl, "description"))

	switch loc := str(decl, "location"); loc {
	case "", string(fight.AreaField):
	case string(fight.AreaHand):
		b.InHand()
	default:
		return nil, fmt.Errorf("sigil %s: unknown location %q", name, loc)
	}
	if role := str(decl, "role"); role != "" {
		if !knownRole(rules.Role(role)) {
			return nil, fmt.Errorf("sigil %s: unknown role %q", name, role)
		}
		b.As(rules.Role(role))
	}
	if blood := num(decl, "blood"); blood > 0 {
		b.Blood(blood)
	}
	if gems, ok := decl["gems"].([]any); ok {
		var mask cost.Gem
		for _, g := range gems {
			gem, err := cost.ParseGem(fmt.Sprint(g))
			if err != nil {
				return nil, fmt.Errorf("sigil %s: %w", name, err)
			}
			mask |= gem
		}
		b.Gems(mask)
	}
	if text := str(decl, "activated"); text != "" {
		c, err := cost.ParseCost(text)
		if err != nil {
			return nil, fmt.Errorf("sigil %s: %w", name, err)
		}
		b.Activated(c)
	}
	if aura, ok := decl["aura"].(map[string]any); ok {
		fn, err := compileAura(aura)
		if err != nil {
			return nil, fmt.Errorf("sigil %s: %w", name, err)
		}
		b.Aura(fn)
	}

	handlers, _ := decl["on"].([]any)
	for i, raw := range handlers {
		h, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sigil %s: handler %d is not a table", name, i+1)
		}
		if err := compileHandler(b, h); err != nil {
			return nil, fmt.Errorf("sigil %s: handler %d: %w", name, i+1, err)
		}
	}
	return b.Build(), nil
}

func compileHandler(b *effects.Builder, h map[string]any) error {
	kind := rules.Kind(str(h, "kind"))
	if !knownKind(kind) {
		return fmt.Errorf("unknown event kind %q", kind)
	}
	when, err := compileCondition(h)
	if err != nil {
		return err
	}
	list, _ := h["effects"].([]any)
	if len(list) == 0 {
		return fmt.Errorf("no effects")
	}

	phase := str(h, "phase")
	if phase == "writer" {
		var muts []mutation
		for _, raw := range list {
			m, err := compileMutation(raw)
			if err != nil {
				return err
			}
			muts = append(muts, m)
		}
		b.Writer(kind, func(c effects.WriterContext) {
			if !when(c) {
				return
			}
			for _, m := range muts {
				m(c)
			}
		})
		return nil
	}

	var effs []effect
	for _, raw := range list {
		e, err := compileEffect(raw)
		if err != nil {
			return err
		}
		effs = append(effs, e)
	}
	fn := func(c effects.Context) {
		if !when(c) {
			return
		}
		for _, e := range effs {
			c.Emit(e(c)...)
		}
	}
	switch phase {
	case "reader":
		b.Reader(kind, fn)
	case "", "cleanup":
		b.Cleanup(kind, fn)
	default:
		return fmt.Errorf("unknown phase %q", phase)
	}
	return nil
}

// compileCondition reads the optional turn ("own" or "enemy") and at (a turn
// phase, for phase events) filters.
func compileCondition(h map[string]any) (func(effects.Context) bool, error) {
	turn := str(h, "turn")
	if turn != "" && turn != "own" && turn != "enemy" {
		return nil, fmt.Errorf("unknown turn filter %q", turn)
	}
	at := fight.Phase(str(h, "at"))
	if at != "" && !at.Valid() {
		return nil, fmt.Errorf("unknown phase filter %q", at)
	}
	return func(c effects.Context) bool {
		switch turn {
		case "own":
			if c.Turn().Side != c.Self().Side {
				return false
			}
		case "enemy":
			if c.Turn().Side == c.Self().Side {
				return false
			}
		}
		if at != "" {
			e := c.Event()
			if e.Kind != rules.KindPhase || e.Phase.Phase != at {
				return false
			}
		}
		return true
	}, nil
}

func compileMutation(raw any) (mutation, error) {
	decl, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("effect is not a table")
	}
	switch verb := str(decl, "verb"); verb {
	case "cancel":
		return func(c effects.WriterContext) { c.Cancel() }, nil
	case "cancelDefault":
		return func(c effects.WriterContext) { c.CancelDefault() }, nil
	case "direct":
		return func(c effects.WriterContext) {
			if e := c.Edit(); e.Kind == rules.KindAttack {
				e.Attack.Direct = true
			}
		}, nil
	case "damage":
		delta := num(decl, "amount")
		return func(c effects.WriterContext) {
			switch e := c.Edit(); e.Kind {
			case rules.KindAttack:
				e.Attack.Damage = max(0, e.Attack.Damage+delta)
			case rules.KindShoot:
				e.Shoot.Damage = max(0, e.Shoot.Damage+delta)
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown writer verb %q", verb)
	}
}

func compileEffect(raw any) (effect, error) {
	decl, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("effect is not a table")
	}
	target := str(decl, "target")
	if target == "" {
		target = "self"
	}
	amount := num(decl, "amount")

	switch verb := str(decl, "verb"); verb {
	case "shoot":
		return onTarget(target, func(c effects.Context, pos fight.Pos) rules.Event {
			self := c.Self()
			return rules.NewShoot(pos, amount, &self)
		}), nil
	case "heal":
		return onTarget(target, func(_ effects.Context, pos fight.Pos) rules.Event {
			return rules.NewHeal(pos, amount)
		}), nil
	case "stats":
		power, health := num(decl, "power"), num(decl, "health")
		return onTarget(target, func(_ effects.Context, pos fight.Pos) rules.Event {
			return rules.NewStats(pos, power, health)
		}), nil
	case "perish":
		return onTarget(target, func(_ effects.Context, pos fight.Pos) rules.Event {
			return rules.NewPerish(pos, rules.CauseEffect)
		}), nil
	case "flip":
		return onTarget(target, func(_ effects.Context, pos fight.Pos) rules.Event {
			return rules.NewFlip(pos)
		}), nil
	case "bones":
		return func(c effects.Context) []rules.Event {
			return []rules.Event{rules.NewBones(c.Self().Side, amount)}
		}, nil
	case "energy":
		return func(c effects.Context) []rules.Event {
			return []rules.Event{rules.NewEnergy(c.Self().Side, amount, false)}
		}, nil
	case "draw":
		card := str(decl, "card")
		if card == "" {
			return nil, fmt.Errorf("draw needs a card")
		}
		count := max(1, amount)
		return func(c effects.Context) []rules.Event {
			t, ok := c.Template(card)
			if !ok {
				c.Logger().Warn("scripted draw of unknown card")
				return nil
			}
			out := make([]rules.Event, 0, count)
			for range count {
				out = append(out, rules.NewGeneratedDraw(c.Self().Side, t.Instance()))
			}
			return out
		}, nil
	default:
		return nil, fmt.Errorf("unknown verb %q", verb)
	}
}

func onTarget(target string, build func(effects.Context, fight.Pos) rules.Event) effect {
	return func(c effects.Context) []rules.Event {
		pos, ok := resolve(c, target)
		if !ok || c.Card(pos) == nil {
			return nil
		}
		return []rules.Event{build(c, pos)}
	}
}

// resolve maps a target name to a position: self, opposing, attacker, or any
// role of the current event.
func resolve(c effects.Context, target string) (fight.Pos, bool) {
	self := c.Self()
	switch target {
	case "self":
		return self, true
	case "opposing":
		if self.Area != fight.AreaField {
			return fight.Pos{}, false
		}
		return self.Opposing(), true
	case "attacker":
		e := c.Event()
		switch e.Kind {
		case rules.KindAttack:
			return fight.FieldPos(e.Attack.Side, e.Attack.From), true
		case rules.KindShoot:
			if e.Shoot.Source != nil {
				return *e.Shoot.Source, true
			}
		}
		return fight.Pos{}, false
	}
	return c.Targets().Role(rules.Role(target))
}

func compileAura(aura map[string]any) (effects.AuraFunc, error) {
	amount := num(aura, "amount")
	switch target := str(aura, "target"); target {
	case "opposing":
		return func(_ effects.Query, self, pos fight.Pos) int {
			if pos == self.Opposing() {
				return amount
			}
			return 0
		}, nil
	case "adjacent":
		return func(_ effects.Query, self, pos fight.Pos) int {
			if pos.Side == self.Side && (pos.Index == self.Index-1 || pos.Index == self.Index+1) {
				return amount
			}
			return 0
		}, nil
	case "allies":
		return func(_ effects.Query, self, pos fight.Pos) int {
			if pos.Side == self.Side && pos != self {
				return amount
			}
			return 0
		}, nil
	default:
		return nil, fmt.Errorf("unknown aura target %q", target)
	}
}

func knownKind(kind rules.Kind) bool {
	for _, k := range rules.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func knownRole(role rules.Role) bool {
	for _, r := range rules.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
