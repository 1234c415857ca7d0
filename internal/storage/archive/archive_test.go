package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

func openArchive(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// finishedHost plays a one-bell battle that side A wins.
func finishedHost(t *testing.T, id string) *game.Host {
	t.Helper()
	reg, catalog, err := content.Ruleset(content.StarterRuleset, zaptest.NewLogger(t))
	require.NoError(t, err)
	grizzly, ok := catalog.Template("grizzly")
	require.True(t, ok)

	f, err := fight.New(fight.DefaultOptions(), [2]fight.DeckList{}, nil)
	require.NoError(t, err)
	f.Turn = fight.Turn{Side: fight.SideA, Phase: fight.PhasePlay}
	f.Field[fight.SideA][0] = grizzly.Instance()
	f.Players[fight.SideB].Deaths = f.Options.Lives - 1
	f.Points = [2]int{3, 0}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h := &game.Host{ID: id, Ruleset: content.StarterRuleset, Seed: 1, Fight: f, Initial: f.Clone(), CreatedAt: now, UpdatedAt: now}
	_, err = game.NewResolver(reg, zaptest.NewLogger(t), 0).Apply(h, fight.SideA, game.Action{Type: game.ActionBellRing})
	require.NoError(t, err)
	require.True(t, h.Fight.Over())
	return h
}

func TestRecordAndReplay(t *testing.T) {
	store := openArchive(t)
	ctx := context.Background()
	h := finishedHost(t, "battle-won")

	require.NoError(t, store.Record(ctx, h))
	require.NoError(t, store.Record(ctx, h))

	sum, err := store.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, fight.SideA, sum.Winner)
	assert.Equal(t, len(h.Log), sum.Events)
	assert.Equal(t, game.ComputeChecksum(h.Fight).Hash, sum.FinalChecksum)
	assert.True(t, sum.FinishedAt.Equal(h.UpdatedAt))

	replay, err := store.Replay(ctx, h.ID)
	require.NoError(t, err)
	final, err := replay.Final()
	require.NoError(t, err)
	assert.Equal(t, sum.FinalChecksum, game.ComputeChecksum(final).Hash)

	n, err := store.CountKind(ctx, rules.KindPoints)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestListAndMissing(t *testing.T) {
	store := openArchive(t)
	ctx := context.Background()

	first := finishedHost(t, "first")
	second := finishedHost(t, "second")
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))

	list, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, "first", list[1].ID)

	_, err = store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Replay(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRejectsUnfinished(t *testing.T) {
	store := openArchive(t)
	f, err := fight.New(fight.DefaultOptions(), [2]fight.DeckList{}, nil)
	require.NoError(t, err)
	assert.Error(t, store.Record(context.Background(), &game.Host{ID: "live", Fight: f, Initial: f.Clone()}))
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}
