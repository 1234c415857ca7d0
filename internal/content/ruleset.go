package content

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content/script"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
)

// StarterRuleset names the built-in card set and sigils.
const StarterRuleset = "starter"

// NewRegistry registers the built-in and scripted sigils and the special stats
// over catalog. Every sigil a template carries must resolve.
func NewRegistry(catalog *Catalog, logger *zap.Logger) (*effects.Registry, error) {
	reg := effects.NewRegistry(catalog, logger)
	for _, b := range Sigils() {
		if err := reg.Register(b); err != nil {
			return nil, err
		}
	}
	scripted, err := script.Builtin()
	if err != nil {
		return nil, err
	}
	for _, b := range scripted {
		if err := reg.Register(b); err != nil {
			return nil, err
		}
	}
	for name, fn := range Stats() {
		if err := reg.RegisterStat(name, fn); err != nil {
			return nil, err
		}
	}

	for _, name := range catalog.Sigils() {
		if _, ok := reg.Behavior(name); !ok {
			return nil, fmt.Errorf("catalog uses unregistered sigil %q", name)
		}
	}
	return reg, nil
}

// Ruleset builds the registry for a named ruleset. The empty name selects the
// starter ruleset.
func Ruleset(name string, logger *zap.Logger) (*effects.Registry, *Catalog, error) {
	switch name {
	case "", StarterRuleset:
		catalog, err := Starter()
		if err != nil {
			return nil, nil, err
		}
		reg, err := NewRegistry(catalog, logger)
		if err != nil {
			return nil, nil, err
		}
		return reg, catalog, nil
	default:
		return nil, nil, fmt.Errorf("unknown ruleset %q", name)
	}
}
