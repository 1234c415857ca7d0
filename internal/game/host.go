package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Waiting describes a resolution paused for one side's answer. Behavior names the
// sigil that raised the request; Event is the settled event it reacted to and Pos
// the card that carried it.
type Waiting struct {
	Side     fight.Side    `json:"side"`
	Request  rules.Request `json:"request"`
	Behavior string        `json:"behavior"`
	Event    rules.Event   `json:"event"`
	Pos      fight.Pos     `json:"pos"`
}

// Clone returns a deep copy.
func (w *Waiting) Clone() *Waiting {
	if w == nil {
		return nil
	}
	out := *w
	out.Request = w.Request.Clone()
	out.Event = w.Event.Clone()
	return &out
}

// Host is the entire resumable state of a battle. Initial is the fight as it was
// before the first settled event, so Log replayed against it reproduces Fight.
type Host struct {
	ID        string        `json:"id"`
	Ruleset   string        `json:"ruleset"`
	Seed      int64         `json:"seed"`
	Fight     *fight.Fight  `json:"fight"`
	Initial   *fight.Fight  `json:"initial"`
	Log       []rules.Event `json:"log"`
	Backlog   []rules.Event `json:"backlog,omitempty"`
	Waiting   *Waiting      `json:"waitingFor,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy. Initial is never mutated and is shared.
func (h *Host) Clone() *Host {
	out := *h
	out.Fight = h.Fight.Clone()
	out.Log = rules.CloneAll(h.Log)
	out.Backlog = rules.CloneAll(h.Backlog)
	out.Waiting = h.Waiting.Clone()
	return &out
}

// Suspended reports whether the battle waits for a response.
func (h *Host) Suspended() bool {
	return h.Waiting != nil
}

// ErrHostNotFound is returned by stores for unknown battle ids.
var ErrHostNotFound = errors.New("battle not found")

// HostStore persists host records by battle id.
type HostStore interface {
	Load(ctx context.Context, id string) (*Host, error)
	Save(ctx context.Context, h *Host) error
	Delete(ctx context.Context, id string) error
}

// Archive records finished battles.
type Archive interface {
	Record(ctx context.Context, h *Host) error
}

// MemoryStore is an in-process HostStore. Records are cloned on the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	hosts map[string]*Host
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hosts: make(map[string]*Host)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Host, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hosts[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, ErrHostNotFound)
	}
	return h.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, h *Host) error {
	if h == nil || h.ID == "" {
		return fmt.Errorf("host record needs an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[h.ID] = h.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hosts, id)
	return nil
}
