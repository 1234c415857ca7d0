package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
)

func loadScenarios(t *testing.T) []*Scenario {
	t.Helper()
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)
	return scenarios
}

func TestScenariosPass(t *testing.T) {
	for _, s := range loadScenarios(t) {
		t.Run(s.Name, func(t *testing.T) {
			res, err := Run(s, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.NoError(t, res.Err())

			// The recorded log must rebuild the final state.
			final, err := game.ReplayOf(res.Host).Final()
			require.NoError(t, err)
			assert.Equal(t, game.ComputeChecksum(res.Host.Fight), game.ComputeChecksum(final))
		})
	}
}

// TestScenarioTracesAreStable records each trace as a golden file and checks a
// second run against it.
func TestScenarioTracesAreStable(t *testing.T) {
	dir := t.TempDir()
	for _, s := range loadScenarios(t) {
		t.Run(s.Name, func(t *testing.T) {
			first, err := Run(s, nil)
			require.NoError(t, err)
			g := goldie.New(t, goldie.WithFixtureDir(dir), goldie.WithNameSuffix(".golden"))
			require.NoError(t, g.Update(t, s.Name, first.Golden()))

			AssertGolden(t, dir, s, zaptest.NewLogger(t))
		})
	}
}

func TestFailuresAreReported(t *testing.T) {
	s, err := Parse([]byte(`
name: wrong_expectations
turn: {side: 0, phase: play}
field:
  - {side: 0, lane: 0, card: stoat}
steps:
  - side: 0
    action: {type: bellRing}
    expect: {error: INVALID_ACTION}
  - side: 0
    action: {type: bellRing}
expect:
  field: {A0: wolf}
  points: {0: 9}
`))
	require.NoError(t, err)

	res, err := Run(s, nil)
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.Len(t, res.Failures, 4)
	assert.Contains(t, res.Trace, "  rejected INVALID_ACTION")
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no name":       "steps: [{side: 0, action: {type: draw}}]",
		"no steps":      "name: empty",
		"both commands": "name: x\nsteps: [{side: 0, action: {type: draw}, response: {type: confirm}}]",
		"bad side":      "name: x\nsteps: [{side: 3, action: {type: draw}}]",
		"bad slot":      "name: x\nsteps: [{side: 0, action: {type: draw}}]\nexpect: {field: {C1: stoat}}",
		"unknown key":   "name: x\nsteps: [{side: 0, action: {type: draw}}]\nboard: []",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestRunRejectsBadSetup(t *testing.T) {
	s, err := Parse([]byte("name: x\nfield: [{side: 0, lane: 9, card: stoat}]\nsteps: [{side: 0, action: {type: bellRing}}]"))
	require.NoError(t, err)
	_, err = Run(s, nil)
	assert.Error(t, err)

	s, err = Parse([]byte("name: y\nfield: [{side: 0, lane: 0, card: dragon}]\nsteps: [{side: 0, action: {type: bellRing}}]"))
	require.NoError(t, err)
	_, err = Run(s, nil)
	assert.Error(t, err)
}
