package effects

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/cost"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// Registry maps sigil names to behaviors and special stats to their functions.
// It is populated once per ruleset and only read during battles.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[string]*Behavior
	stats     map[string]StatFunc
	templates fight.Templates
	logger    *zap.Logger
}

// NewRegistry creates an empty registry resolving templates through templates.
func NewRegistry(templates fight.Templates, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		behaviors: make(map[string]*Behavior),
		stats:     make(map[string]StatFunc),
		templates: templates,
		logger:    logger,
	}
}

// Register adds a behavior. Names must be unique.
func (r *Registry) Register(b *Behavior) error {
	if b == nil || b.Name == "" {
		return fmt.Errorf("behavior must have a name")
	}
	if len(b.Requests) > 0 && b.Respond == nil {
		return fmt.Errorf("behavior %q offers requests without a response handler", b.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.behaviors[b.Name]; exists {
		return fmt.Errorf("behavior %q already registered", b.Name)
	}
	r.behaviors[b.Name] = b

	r.logger.Debug("registered behavior",
		zap.String("sigil", b.Name),
		zap.String("location", string(b.Location())),
		zap.String("role", string(b.RunRole)))
	return nil
}

// MustRegister registers behaviors and panics on error. Used for built-in content.
func (r *Registry) MustRegister(behaviors ...*Behavior) {
	for _, b := range behaviors {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
}

// RegisterStat adds a special power stat.
func (r *Registry) RegisterStat(name string, fn StatFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("stat needs a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stats[name]; exists {
		return fmt.Errorf("stat %q already registered", name)
	}
	r.stats[name] = fn
	return nil
}

// Behavior looks up a sigil.
func (r *Registry) Behavior(name string) (*Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.behaviors[name]
	return b, ok
}

// Stat looks up a special stat.
func (r *Registry) Stat(name string) (StatFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.stats[name]
	return fn, ok
}

// Names returns the registered sigil names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.behaviors))
	for name := range r.behaviors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template resolves a card template.
func (r *Registry) Template(id string) (fight.Template, bool) {
	if r.templates == nil {
		return fight.Template{}, false
	}
	return r.templates.Template(id)
}

// Templates exposes the template source the registry was built with.
func (r *Registry) Templates() fight.Templates {
	return r.templates
}

// behaviorsOf returns the registered behaviors of a card in sigil order.
// Unknown sigil names are skipped.
func (r *Registry) behaviorsOf(card *fight.Card) []*Behavior {
	if card == nil {
		return nil
	}
	out := make([]*Behavior, 0, len(card.State.Sigils))
	for _, name := range card.State.Sigils {
		if b, ok := r.Behavior(name); ok {
			out = append(out, b)
		} else {
			r.logger.Debug("card carries unknown sigil",
				zap.String("template", card.TemplateID),
				zap.String("sigil", name))
		}
	}
	return out
}

// BasePower is a card's power before auras: its own power or its special stat.
func (r *Registry) BasePower(f *fight.Fight, pos fight.Pos) int {
	return r.view(f).BasePower(pos)
}

// Power is a card's effective power: base power plus every field aura. It is
// recomputed on each call.
func (r *Registry) Power(f *fight.Fight, pos fight.Pos) int {
	card := f.At(pos)
	if card == nil {
		return 0
	}
	q := r.view(f)
	power := q.BasePower(pos)
	if pos.Area != fight.AreaField {
		return max(0, power)
	}
	for _, side := range fight.Sides {
		for _, holder := range f.FieldCards(side) {
			for _, b := range r.behaviorsOf(f.At(holder)) {
				if b.Aura != nil {
					power += b.Aura(q, holder, pos)
				}
			}
		}
	}
	return max(0, power)
}

// BloodValue is what sacrificing card pays toward a blood cost.
func (r *Registry) BloodValue(card *fight.Card) int {
	value := 1
	for _, b := range r.behaviorsOf(card) {
		if b.Blood > value {
			value = b.Blood
		}
	}
	return value
}

// Gems returns the mox colours side's field provides.
func (r *Registry) Gems(f *fight.Fight, side fight.Side) cost.Gem {
	var gems cost.Gem
	for _, pos := range f.FieldCards(side) {
		card := f.At(pos)
		if t, ok := r.Template(card.TemplateID); ok {
			gems |= t.Gems
		}
		for _, b := range r.behaviorsOf(card) {
			gems |= b.Gems
		}
	}
	return gems
}

func (r *Registry) view(f *fight.Fight) *view {
	return &view{f: f, reg: r}
}
