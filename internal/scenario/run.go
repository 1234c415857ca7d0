package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.uber.org/zap"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Result is the outcome of a run. Failures lists every expectation that did
// not hold; the run itself continues past them.
type Result struct {
	Name     string
	Host     *game.Host
	Trace    []string
	Failures []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Err joins the failures into one error, or returns nil.
func (r *Result) Err() error {
	if r.Passed() {
		return nil
	}
	return fmt.Errorf("scenario %s:\n  %s", r.Name, strings.Join(r.Failures, "\n  "))
}

// Golden renders the trace for golden comparison.
func (r *Result) Golden() []byte {
	return []byte(strings.Join(r.Trace, "\n") + "\n")
}

func (r *Result) failf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run builds the scenario's battle and plays its steps. Errors are returned for
// scenarios that cannot be set up; expectation mismatches land in Failures.
func Run(s *Scenario, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg, _, err := content.Ruleset(s.Ruleset, logger)
	if err != nil {
		return nil, err
	}
	resolver := game.NewResolver(reg, logger, 0)

	h, err := setup(s, resolver)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	res := &Result{Name: s.Name, Host: h}

	if s.Opening {
		settled, err := resolver.Run(h, rules.NewQueue(game.Opening(h.Fight)...))
		if err != nil {
			return nil, fmt.Errorf("scenario %s opening: %w", s.Name, err)
		}
		res.Trace = append(res.Trace, "#0 opening")
		res.Trace = append(res.Trace, traceEvents(settled)...)
	}

	for i, st := range s.Steps {
		n := i + 1
		var settled []rules.Event
		if st.Action != nil {
			res.Trace = append(res.Trace, fmt.Sprintf("#%d %s action %s", n, st.Side, compact(st.Action)))
			settled, err = resolver.Apply(h, st.Side, *st.Action)
		} else {
			res.Trace = append(res.Trace, fmt.Sprintf("#%d %s response %s", n, st.Side, compact(st.Response)))
			settled, err = resolver.Respond(h, st.Side, *st.Response)
		}
		checkStep(res, n, st.Expect, settled, err, h)
		if err != nil {
			res.Trace = append(res.Trace, "  rejected "+rejection(err))
			continue
		}
		res.Trace = append(res.Trace, traceEvents(settled)...)
		if h.Waiting != nil {
			res.Trace = append(res.Trace, fmt.Sprintf("  waiting %s %s", h.Waiting.Side, h.Waiting.Behavior))
		}
	}

	if s.Expect != nil {
		checkFinal(res, *s.Expect, h)
	}
	res.Trace = append(res.Trace, "checksum "+game.ComputeChecksum(h.Fight).Hash)
	return res, nil
}

// setup builds the host from the scenario's board description.
func setup(s *Scenario, resolver *game.Resolver) (*game.Host, error) {
	opts := s.options()
	for _, deck := range s.Decks {
		for _, id := range append(slices.Clone(deck.Main), deck.Side...) {
			if _, ok := resolver.Registry().Template(id); !ok {
				return nil, fmt.Errorf("deck lists unknown card %q", id)
			}
		}
	}
	f, err := fight.New(opts, s.Decks, nil)
	if err != nil {
		return nil, err
	}

	instance := func(id string) (*fight.Card, error) {
		tmpl, ok := resolver.Registry().Template(id)
		if !ok {
			return nil, fmt.Errorf("unknown card %q", id)
		}
		return tmpl.Instance(), nil
	}
	for _, p := range s.Field {
		if !f.LaneInRange(p.Lane) {
			return nil, fmt.Errorf("lane %d is out of range", p.Lane)
		}
		c, err := instance(p.Card)
		if err != nil {
			return nil, err
		}
		if p.Health != nil {
			c.State.Health = *p.Health
		}
		f.Field[p.Side][p.Lane] = c
	}
	for _, side := range fight.Sides {
		for _, id := range s.Hands[side] {
			c, err := instance(id)
			if err != nil {
				return nil, err
			}
			f.Hands[side] = append(f.Hands[side], c)
		}
		f.Players[side].Bones = s.Bones[side]
		f.Players[side].Deaths = s.Deaths[side]
	}
	f.Points = s.Points
	if s.Turn != nil {
		if !s.Turn.Side.Valid() || !s.Turn.Phase.Valid() {
			return nil, fmt.Errorf("bad turn %s/%s", s.Turn.Side, s.Turn.Phase)
		}
		f.Turn = fight.Turn{Side: s.Turn.Side, Phase: s.Turn.Phase}
	}

	seed := s.Seed
	if seed == 0 {
		seed = 1
	}
	return &game.Host{
		ID:      s.Name,
		Ruleset: opts.Ruleset,
		Seed:    seed,
		Fight:   f,
		Initial: f.Clone(),
	}, nil
}

func checkStep(res *Result, n int, want StepExpects, settled []rules.Event, err error, h *game.Host) {
	if want.Error != "" {
		got, _ := apperrors.KindOf(err)
		if err == nil || got != want.Error {
			res.failf("step %d: want error %s, got %v", n, want.Error, err)
		}
		return
	}
	if err != nil {
		res.failf("step %d: unexpected error: %v", n, err)
		return
	}
	kinds := make([]rules.Kind, len(settled))
	for i, e := range settled {
		kinds[i] = e.Kind
	}
	if want.Kinds != nil && !slices.Equal(want.Kinds, kinds) {
		res.failf("step %d: want kinds %v, got %v", n, want.Kinds, kinds)
	}
	if want.Last != "" && (len(kinds) == 0 || kinds[len(kinds)-1] != want.Last) {
		res.failf("step %d: want last kind %s, got %v", n, want.Last, kinds)
	}
	if want.Waiting != nil && *want.Waiting != h.Suspended() {
		res.failf("step %d: want waiting=%t", n, *want.Waiting)
	}
}

func checkFinal(res *Result, want FinalExpects, h *game.Host) {
	f := h.Fight
	if want.Winner != nil {
		winner, ok := f.Winner()
		if !ok || winner != *want.Winner {
			res.failf("final: want winner %s, got %s (over=%t)", *want.Winner, winner, ok)
		}
	}
	counters := []struct {
		name string
		want map[fight.Side]int
		got  func(fight.Side) int
	}{
		{"points", want.Points, func(s fight.Side) int { return f.Points[s] }},
		{"bones", want.Bones, func(s fight.Side) int { return f.Players[s].Bones }},
		{"deaths", want.Deaths, func(s fight.Side) int { return f.Players[s].Deaths }},
		{"hand size", want.HandSizes, func(s fight.Side) int { return len(f.Hands[s]) }},
	}
	for _, c := range counters {
		for side, v := range c.want {
			if got := c.got(side); got != v {
				res.failf("final: want %s %d for %s, got %d", c.name, v, side, got)
			}
		}
	}
	for side, ids := range want.Hands {
		got := make([]string, len(f.Hands[side]))
		for i, c := range f.Hands[side] {
			got[i] = c.TemplateID
		}
		if !slices.Equal(ids, got) {
			res.failf("final: want hand %v for %s, got %v", ids, side, got)
		}
	}
	for slot, id := range want.Field {
		pos, _ := parseSlot(slot)
		got := ""
		if c := f.At(pos); c != nil {
			got = c.TemplateID
		}
		if got != id {
			res.failf("final: want %q at %s, got %q", id, slot, got)
		}
	}
	for slot, hp := range want.Health {
		pos, _ := parseSlot(slot)
		c := f.At(pos)
		if c == nil {
			res.failf("final: want health %d at %s, slot is empty", hp, slot)
			continue
		}
		if c.State.Health != hp {
			res.failf("final: want health %d at %s, got %d", hp, slot, c.State.Health)
		}
	}
	if want.Waiting != nil && *want.Waiting != h.Suspended() {
		res.failf("final: want waiting=%t", *want.Waiting)
	}
}

func traceEvents(events []rules.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = fmt.Sprintf("  %s %s", e.Kind, compact(e.Payload()))
	}
	return out
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

func rejection(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}

// AssertGolden runs s, fails t on unmet expectations and compares the trace with
// the golden file <dir>/<name>.golden.
func AssertGolden(t *testing.T, dir string, s *Scenario, logger *zap.Logger) *Result {
	t.Helper()
	res, err := Run(s, logger)
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}
	if err := res.Err(); err != nil {
		t.Error(err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, res.Golden())
	return res
}
