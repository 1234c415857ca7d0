package cost

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Gem is a bitmask of mox colours.
type Gem uint8

const (
	GemGreen Gem = 1 << iota
	GemOrange
	GemBlue
)

// GemNone is the empty gem mask.
const GemNone Gem = 0

var gemNames = map[Gem]string{
	GemGreen:  "green",
	GemOrange: "orange",
	GemBlue:   "blue",
}

// Has reports whether every colour of want is present in g.
func (g Gem) Has(want Gem) bool {
	return g&want == want
}

// Missing returns the colours of want not present in g.
func (g Gem) Missing(want Gem) Gem {
	return want &^ g
}

// String renders the mask as a "+"-joined colour list.
func (g Gem) String() string {
	if g == GemNone {
		return "none"
	}
	var parts []string
	for _, gem := range []Gem{GemGreen, GemOrange, GemBlue} {
		if g&gem != 0 {
			parts = append(parts, gemNames[gem])
		}
	}
	return strings.Join(parts, "+")
}

// ParseGem parses a single colour name.
func ParseGem(name string) (Gem, error) {
	for gem, n := range gemNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return gem, nil
		}
	}
	return GemNone, fmt.Errorf("unknown gem: %q", name)
}

// Cost is the play cost of a card. A card may combine currencies.
type Cost struct {
	Blood  int `json:"blood,omitempty"`
	Bones  int `json:"bones,omitempty"`
	Energy int `json:"energy,omitempty"`
	Mox    Gem `json:"mox,omitempty"`
}

// IsFree reports whether the cost requires nothing.
func (c Cost) IsFree() bool {
	return c == Cost{}
}

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a cost string such as "{2 blood}", "{3 bone}{energy}" or "{green}{blue}".
// A symbol without a count counts once.
func ParseCost(s string) (Cost, error) {
	var c Cost
	if strings.TrimSpace(s) == "" {
		return c, nil
	}

	matches := symbolPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return c, fmt.Errorf("no cost symbols in %q", s)
	}
	for _, match := range matches {
		fields := strings.Fields(strings.ToLower(match[1]))
		count := 1
		name := ""
		switch len(fields) {
		case 1:
			name = fields[0]
		case 2:
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 0 {
				return Cost{}, fmt.Errorf("invalid count in {%s}", match[1])
			}
			count, name = n, fields[1]
		default:
			return Cost{}, fmt.Errorf("invalid cost symbol: {%s}", match[1])
		}

		switch name {
		case "blood":
			c.Blood += count
		case "bone", "bones":
			c.Bones += count
		case "energy":
			c.Energy += count
		default:
			gem, err := ParseGem(name)
			if err != nil {
				return Cost{}, fmt.Errorf("unknown cost symbol: {%s}", match[1])
			}
			c.Mox |= gem
		}
	}
	return c, nil
}

// String renders the cost in ParseCost syntax.
func (c Cost) String() string {
	var b strings.Builder
	if c.Blood > 0 {
		fmt.Fprintf(&b, "{%d blood}", c.Blood)
	}
	if c.Bones > 0 {
		fmt.Fprintf(&b, "{%d bone}", c.Bones)
	}
	if c.Energy > 0 {
		fmt.Fprintf(&b, "{%d energy}", c.Energy)
	}
	for _, gem := range []Gem{GemGreen, GemOrange, GemBlue} {
		if c.Mox&gem != 0 {
			fmt.Fprintf(&b, "{%s}", gemNames[gem])
		}
	}
	return b.String()
}
