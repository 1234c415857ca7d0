package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// connect needs FIGHT_TEST_POSTGRES_DSN pointing at a scratch database.
func connect(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("FIGHT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FIGHT_TEST_POSTGRES_DSN not set")
	}
	store, err := Connect(context.Background(), dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := connect(t)
	ctx := context.Background()

	f, err := fight.New(fight.DefaultOptions(), [2]fight.DeckList{{Main: []string{"stoat"}}}, nil)
	require.NoError(t, err)
	h := &game.Host{ID: uuid.NewString(), Ruleset: "starter", Seed: 3, Fight: f, Initial: f.Clone()}
	h.Waiting = &game.Waiting{
		Side:    fight.SideA,
		Request: rules.Request{Kind: rules.RequestConfirm},
		Event:   rules.NewBones(fight.SideA, 1),
	}
	t.Cleanup(func() { _ = store.Delete(ctx, h.ID) })

	require.NoError(t, store.Save(ctx, h))
	loaded, err := store.Load(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ComputeChecksum(h.Fight), game.ComputeChecksum(loaded.Fight))
	require.NotNil(t, loaded.Waiting)

	ids, err := store.Suspended(ctx, 1000)
	require.NoError(t, err)
	assert.Contains(t, ids, h.ID)

	require.NoError(t, store.Delete(ctx, h.ID))
	_, err = store.Load(ctx, h.ID)
	assert.ErrorIs(t, err, game.ErrHostNotFound)
}
