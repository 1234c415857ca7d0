package game

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Replay steps through a battle by settling its log against the initial state.
// Each settled event applied to the state before it yields the state after it.
type Replay struct {
	BattleID string
	Initial  *fight.Fight
	Events   []rules.Event

	mu    sync.Mutex
	index int
	state *fight.Fight
}

// NewReplay creates a replay positioned before the first event.
func NewReplay(battleID string, initial *fight.Fight, events []rules.Event) *Replay {
	return &Replay{
		BattleID: battleID,
		Initial:  initial.Clone(),
		Events:   rules.CloneAll(events),
		state:    initial.Clone(),
	}
}

// ReplayOf builds a replay of a host record.
func ReplayOf(h *Host) *Replay {
	return NewReplay(h.ID, h.Initial, h.Log)
}

// Start rewinds to the initial state.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
	r.state = r.Initial.Clone()
}

// Next settles the next event and returns it with the resulting state.
// ok is false once the log is exhausted.
func (r *Replay) Next() (e rules.Event, state *fight.Fight, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index >= len(r.Events) {
		return rules.Event{}, r.state.Clone(), false, nil
	}
	e = r.Events[r.index]
	if err := rules.Settle(r.state, e); err != nil {
		return e, nil, false, fmt.Errorf("replay event %d (%s): %w", r.index, e.Kind, err)
	}
	r.index++
	return e.Clone(), r.state.Clone(), true, nil
}

// Skip settles up to count events.
func (r *Replay) Skip(count int) error {
	for range count {
		if _, _, ok, err := r.Next(); err != nil || !ok {
			return err
		}
	}
	return nil
}

// Final settles every remaining event and returns the end state.
func (r *Replay) Final() (*fight.Fight, error) {
	if err := r.Skip(r.Size()); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

// Position returns how many events have been settled.
func (r *Replay) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Size returns the number of logged events.
func (r *Replay) Size() int {
	return len(r.Events)
}

// replayFile is the on-disk form of a replay.
type replayFile struct {
	Version  int           `json:"version"`
	BattleID string        `json:"battleId"`
	SavedAt  time.Time     `json:"savedAt"`
	Initial  *fight.Fight  `json:"initial"`
	Events   []rules.Event `json:"events"`
}

const replayVersion = 1

// SaveToFile writes the replay as gzipped JSON to <directory>/<battle id>.replay.
func (r *Replay) SaveToFile(directory string) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(directory, fmt.Sprintf("%s.replay", r.BattleID))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	if err := json.NewEncoder(zw).Encode(replayFile{
		Version:  replayVersion,
		BattleID: r.BattleID,
		SavedAt:  time.Now().UTC(),
		Initial:  r.Initial,
		Events:   r.Events,
	}); err != nil {
		zw.Close()
		return "", fmt.Errorf("failed to encode replay: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return path, nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(path string) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()

	var rf replayFile
	if err := json.NewDecoder(zr).Decode(&rf); err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}
	if rf.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", rf.Version)
	}
	if rf.Initial == nil {
		return nil, fmt.Errorf("replay %s has no initial state", rf.BattleID)
	}
	return NewReplay(rf.BattleID, rf.Initial, rf.Events), nil
}
