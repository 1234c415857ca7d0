// Package scenario runs battles described in YAML: a prepared board, a list of
// player commands with their expected outcomes, and assertions on the final state.
// Each run produces a text trace suitable for golden comparison.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Scenario is one battle script.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Ruleset defaults to the starter ruleset.
	Ruleset string            `yaml:"ruleset,omitempty"`
	Seed    int64             `yaml:"seed,omitempty"`
	Options *OptionOverrides  `yaml:"options,omitempty"`
	Decks   [2]fight.DeckList `yaml:"decks,omitempty"`

	// Opening deals the starting hands through settled draws before the steps.
	Opening bool          `yaml:"opening,omitempty"`
	Turn    *TurnSpec     `yaml:"turn,omitempty"`
	Field   []Placement   `yaml:"field,omitempty"`
	Hands   [2][]string   `yaml:"hands,omitempty"`
	Bones   [2]int        `yaml:"bones,omitempty"`
	Deaths  [2]int        `yaml:"deaths,omitempty"`
	Points  [2]int        `yaml:"points,omitempty"`
	Steps   []Step        `yaml:"steps"`
	Expect  *FinalExpects `yaml:"expect,omitempty"`
}

// OptionOverrides changes selected default options.
type OptionOverrides struct {
	Lanes        *int     `yaml:"lanes,omitempty"`
	StartingHand *int     `yaml:"starting_hand,omitempty"`
	Lives        *int     `yaml:"lives,omitempty"`
	ScaleLimit   *int     `yaml:"scale_limit,omitempty"`
	Features     []string `yaml:"features,omitempty"`
}

type TurnSpec struct {
	Side  fight.Side  `yaml:"side"`
	Phase fight.Phase `yaml:"phase"`
}

// Placement puts a fresh card on the field. Health overrides the template's.
type Placement struct {
	Side   fight.Side `yaml:"side"`
	Lane   int        `yaml:"lane"`
	Card   string     `yaml:"card"`
	Health *int       `yaml:"health,omitempty"`
}

// Step is one command: an action or a response, never both.
type Step struct {
	Side     fight.Side      `yaml:"side"`
	Action   *game.Action    `yaml:"action,omitempty"`
	Response *rules.Response `yaml:"response,omitempty"`
	Expect   StepExpects     `yaml:"expect,omitempty"`
}

// StepExpects checks a single command. Empty fields are not checked.
type StepExpects struct {
	Error   apperrors.Kind `yaml:"error,omitempty"`
	Kinds   []rules.Kind   `yaml:"kinds,omitempty"`
	Last    rules.Kind     `yaml:"last,omitempty"`
	Waiting *bool          `yaml:"waiting,omitempty"`
}

// FinalExpects checks the battle after every step. Field and Health are keyed by
// slot, e.g. "A0" or "B3"; an empty Field value means the slot is empty.
type FinalExpects struct {
	Winner    *fight.Side             `yaml:"winner,omitempty"`
	Points    map[fight.Side]int      `yaml:"points,omitempty"`
	Bones     map[fight.Side]int      `yaml:"bones,omitempty"`
	Deaths    map[fight.Side]int      `yaml:"deaths,omitempty"`
	HandSizes map[fight.Side]int      `yaml:"hand_sizes,omitempty"`
	Hands     map[fight.Side][]string `yaml:"hands,omitempty"`
	Field     map[string]string       `yaml:"field,omitempty"`
	Health    map[string]int          `yaml:"health,omitempty"`
	Waiting   *bool                   `yaml:"waiting,omitempty"`
}

// Parse decodes a scenario and checks its shape.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadDir reads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Validate checks the fields Run relies on.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("scenario name %q must be a plain file name", s.Name)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}
	for i, st := range s.Steps {
		if (st.Action == nil) == (st.Response == nil) {
			return fmt.Errorf("scenario %s step %d needs exactly one of action and response", s.Name, i+1)
		}
		if !st.Side.Valid() {
			return fmt.Errorf("scenario %s step %d has unknown side %d", s.Name, i+1, st.Side)
		}
	}
	for _, p := range s.Field {
		if !p.Side.Valid() {
			return fmt.Errorf("scenario %s places %s on unknown side %d", s.Name, p.Card, p.Side)
		}
	}
	if s.Expect != nil {
		for slot := range s.Expect.Field {
			if _, err := parseSlot(slot); err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
		}
		for slot := range s.Expect.Health {
			if _, err := parseSlot(slot); err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
		}
	}
	return nil
}

// options applies the overrides to the defaults.
func (s *Scenario) options() fight.Options {
	opts := fight.DefaultOptions()
	if s.Ruleset != "" {
		opts.Ruleset = s.Ruleset
	}
	o := s.Options
	if o == nil {
		return opts
	}
	if o.Lanes != nil {
		opts.Lanes = *o.Lanes
	}
	if o.StartingHand != nil {
		opts.StartingHand = *o.StartingHand
	}
	if o.Lives != nil {
		opts.Lives = *o.Lives
	}
	if o.ScaleLimit != nil {
		opts.ScaleLimit = *o.ScaleLimit
	}
	if o.Features != nil {
		opts.Features = o.Features
	}
	return opts
}

// parseSlot reads "A2" style field slot names.
func parseSlot(slot string) (fight.Pos, error) {
	if len(slot) < 2 {
		return fight.Pos{}, fmt.Errorf("bad slot %q", slot)
	}
	var side fight.Side
	switch slot[0] {
	case 'A', 'a':
		side = fight.SideA
	case 'B', 'b':
		side = fight.SideB
	default:
		return fight.Pos{}, fmt.Errorf("bad slot %q: side must be A or B", slot)
	}
	lane, err := strconv.Atoi(slot[1:])
	if err != nil || lane < 0 {
		return fight.Pos{}, fmt.Errorf("bad slot %q: lane must be a number", slot)
	}
	return fight.FieldPos(side, lane), nil
}
