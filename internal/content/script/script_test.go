package script

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

type templateMap map[string]fight.Template

func (m templateMap) Template(id string) (fight.Template, bool) {
	t, ok := m[id]
	return t, ok
}

var templates = templateMap{
	"wolf": {ID: "wolf", Power: 2, Health: 2},
	"wall": {ID: "wall", Power: 0, Health: 3},
	"bee":  {ID: "bee", Power: 1, Health: 1},
}

func newFight(t *testing.T) *fight.Fight {
	t.Helper()
	f, err := fight.New(fight.DefaultOptions(), [2]fight.DeckList{}, nil)
	require.NoError(t, err)
	return f
}

// fire runs b's handler for e in phase, with b on the card at self.
func fire(t *testing.T, b *effects.Behavior, f *fight.Fight, self fight.Pos, e rules.Event, phase effects.Phase) *effects.Resolution {
	t.Helper()
	reg := effects.NewRegistry(templates, zaptest.NewLogger(t))
	reg.MustRegister(b)
	res := effects.NewResolution(&e, rules.TargetsOf(f, e))
	active := effects.Active{Pos: self, Card: f.At(self), Behavior: b}
	active.Invoke(reg.NewScope(f, res, phase, active, rand.New(rand.NewSource(1))), phase, e.Kind)
	return res
}

func TestBuiltinScriptsCompile(t *testing.T) {
	behaviors, err := Builtin()
	require.NoError(t, err)

	var names []string
	for _, b := range behaviors {
		names = append(names, b.Name)
		assert.NotEmpty(t, b.Description, b.Name)
	}
	assert.Equal(t, []string{"rally", "swarm", "thorns"}, names)
}

func TestLoadRejectsBadScripts(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `return {`},
		{"runtime error", `error("boom")`},
		{"not a table", `return 42`},
		{"no name", `return { description = "x" }`},
		{"unknown location", `return { name = "x", location = "deck" }`},
		{"unknown role", `return { name = "x", role = "bystander" }`},
		{"unknown kind", `return { name = "x", on = { { kind = "dance", effects = { { verb = "bones", amount = 1 } } } } }`},
		{"unknown verb", `return { name = "x", on = { { kind = "play", effects = { { verb = "explode" } } } } }`},
		{"unknown phase", `return { name = "x", on = { { kind = "play", phase = "later", effects = { { verb = "bones" } } } } }`},
		{"no effects", `return { name = "x", on = { { kind = "play" } } }`},
		{"unknown writer verb", `return { name = "x", on = { { kind = "attack", phase = "writer", effects = { { verb = "shoot" } } } } }`},
		{"bad aura", `return { name = "x", aura = { target = "everyone", amount = 1 } }`},
		{"bad gem", `return { name = "x", gems = { "purple" } }`},
		{"bad activation cost", `return { name = "x", activated = "two bones" }`},
		{"draw without card", `return { name = "x", on = { { kind = "play", effects = { { verb = "draw" } } } } }`},
		{"bad turn filter", `return { name = "x", on = { { kind = "phase", turn = "theirs", effects = { { verb = "bones" } } } } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDeclaration(t *testing.T) {
	b, err := Load(`
		return {
		  name = "totem",
		  location = "hand",
		  role = "drawn",
		  blood = 2,
		  gems = { "green", "blue" },
		  activated = "{1 energy}",
		}`)
	require.NoError(t, err)

	assert.Equal(t, "totem", b.Name)
	assert.Equal(t, fight.AreaHand, b.Location())
	assert.Equal(t, rules.RoleDrawn, b.RunRole)
	assert.Equal(t, 2, b.Blood)
	assert.Equal(t, cost.GemGreen|cost.GemBlue, b.Gems)
	require.NotNil(t, b.Activated)
	assert.Equal(t, cost.Cost{Energy: 1}, b.Activated.Cost)
}

func TestThornsWeakensAttacker(t *testing.T) {
	b, err := Builtin()
	require.NoError(t, err)
	thorns := b[2]

	f := newFight(t)
	attacker := fight.FieldPos(fight.SideA, 1)
	self := fight.FieldPos(fight.SideB, 1)
	f.Field[fight.SideA][1] = templates["wolf"].Instance()
	f.Field[fight.SideB][1] = templates["wall"].Instance()

	res := fire(t, thorns, f, self, rules.NewAttack(fight.SideA, 1), effects.PhaseCleanup)

	require.Len(t, res.Emitted, 1)
	assert.Equal(t, rules.NewStats(attacker, -1, 0), res.Emitted[0])
}

func TestSwarmDrawsBee(t *testing.T) {
	b, err := Builtin()
	require.NoError(t, err)
	swarm := b[1]

	f := newFight(t)
	self := fight.FieldPos(fight.SideB, 0)
	f.Field[fight.SideA][0] = templates["wolf"].Instance()
	f.Field[fight.SideB][0] = templates["wall"].Instance()

	res := fire(t, swarm, f, self, rules.NewAttack(fight.SideA, 0), effects.PhaseCleanup)

	require.Len(t, res.Emitted, 1)
	draw := res.Emitted[0]
	assert.Equal(t, rules.KindDraw, draw.Kind)
	assert.Equal(t, fight.SideB, draw.Draw.Side)
	assert.Equal(t, "bee", draw.Draw.Card.TemplateID)
}

func TestRallyConditionsAndAura(t *testing.T) {
	b, err := Builtin()
	require.NoError(t, err)
	rally := b[0]

	f := newFight(t)
	self := fight.FieldPos(fight.SideA, 0)
	f.Field[fight.SideA][0] = templates["wall"].Instance()

	f.Turn = fight.Turn{Side: fight.SideA, Phase: fight.PhasePreTurn}
	res := fire(t, rally, f, self, rules.NewPhase(fight.SideA, fight.PhasePreTurn), effects.PhaseCleanup)
	assert.Equal(t, []rules.Event{rules.NewEnergy(fight.SideA, 1, false)}, res.Emitted)

	f.Turn = fight.Turn{Side: fight.SideB, Phase: fight.PhasePreTurn}
	res = fire(t, rally, f, self, rules.NewPhase(fight.SideB, fight.PhasePreTurn), effects.PhaseCleanup)
	assert.Empty(t, res.Emitted)

	f.Turn = fight.Turn{Side: fight.SideA, Phase: fight.PhaseDraw}
	res = fire(t, rally, f, self, rules.NewPhase(fight.SideA, fight.PhaseDraw), effects.PhaseCleanup)
	assert.Empty(t, res.Emitted)

	require.NotNil(t, rally.Aura)
	assert.Equal(t, 1, rally.Aura(nil, self, fight.FieldPos(fight.SideA, 3)))
	assert.Equal(t, 0, rally.Aura(nil, self, self))
	assert.Equal(t, 0, rally.Aura(nil, self, fight.FieldPos(fight.SideB, 0)))
}

func TestWriterVerbs(t *testing.T) {
	b, err := Load(`
		return {
		  name = "blunt",
		  role = "attackee",
		  on = {
		    { phase = "writer", kind = "attack", effects = { { verb = "damage", amount = -5 } } },
		  },
		}`)
	require.NoError(t, err)

	f := newFight(t)
	self := fight.FieldPos(fight.SideB, 2)
	f.Field[fight.SideA][2] = templates["wolf"].Instance()
	f.Field[fight.SideB][2] = templates["wall"].Instance()

	e := rules.NewAttack(fight.SideA, 2)
	e.Attack.Damage = 2
	res := fire(t, b, f, self, e, effects.PhaseWriter)

	assert.Equal(t, 0, res.Event.Attack.Damage)
	assert.False(t, res.Cancelled)
}

func TestEffectSkipsMissingTarget(t *testing.T) {
	b, err := Load(`
		return {
		  name = "spite",
		  on = { { kind = "phase", effects = { { verb = "shoot", target = "opposing", amount = 1 } } } },
		}`)
	require.NoError(t, err)

	f := newFight(t)
	self := fight.FieldPos(fight.SideA, 1)
	f.Field[fight.SideA][1] = templates["wall"].Instance()

	res := fire(t, b, f, self, rules.NewPhase(fight.SideA, fight.PhaseAttack), effects.PhaseCleanup)
	assert.Empty(t, res.Emitted)

	f.Field[fight.SideB][1] = templates["wolf"].Instance()
	res = fire(t, b, f, self, rules.NewPhase(fight.SideA, fight.PhaseAttack), effects.PhaseCleanup)
	require.Len(t, res.Emitted, 1)
	assert.Equal(t, fight.FieldPos(fight.SideB, 1), res.Emitted[0].Shoot.Target)
	assert.Equal(t, &self, res.Emitted[0].Shoot.Source)
}
