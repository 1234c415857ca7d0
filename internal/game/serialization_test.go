package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

func TestChecksumTracksState(t *testing.T) {
	h := playedBattle(t, 5)
	sum := ComputeChecksum(h.Fight)
	assert.Len(t, sum.Hash, 64)
	assert.Equal(t, 1, sum.Version)
	assert.Equal(t, sum, ComputeChecksum(h.Fight.Clone()))

	changed := h.Fight.Clone()
	changed.Players[sideB].Bones++
	assert.NotEqual(t, sum, ComputeChecksum(changed))

	flipped := h.Fight.Clone()
	flipped.Field[sideA][0].State.Flipped = true
	assert.NotEqual(t, sum, ComputeChecksum(flipped))
}

// suspendedHost returns a host paused on a hoarder request.
func suspendedHost(t *testing.T) (*BattleHarness, *Host) {
	t.Helper()
	b := NewBattleHarness(t, [2]fight.DeckList{{Main: []string{"stoat", "wolf"}}})
	b.Turn(sideA, fight.PhasePlay)
	b.Place(sideA, 0, "squirrel")
	b.Place(sideA, 1, "squirrel")
	b.Give(sideA, "magpie")
	b.Apply(sideA, Action{Type: ActionPlay, Hand: 0, Lane: 3, Sacrifices: []int{0, 1}})
	require.NotNil(t, b.host.Waiting)
	return b, b.host
}

func TestHostRoundTripKeepsSuspension(t *testing.T) {
	b, h := suspendedHost(t)

	data, err := EncodeHost(h)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"waitingFor"`)

	back, err := DecodeHost(data)
	require.NoError(t, err)
	assert.Equal(t, h.ID, back.ID)
	assert.Equal(t, h.Seed, back.Seed)
	assert.Equal(t, len(h.Log), len(back.Log))
	require.NotNil(t, back.Waiting)
	assert.Equal(t, h.Waiting.Request, back.Waiting.Request)
	assert.Equal(t, h.Waiting.Pos, back.Waiting.Pos)
	assert.Equal(t, ComputeChecksum(h.Fight), ComputeChecksum(back.Fight))
	require.NoError(t, ValidateRoundtrip(h))

	// The decoded record resumes exactly like the live one.
	answer := rules.Response{Type: rules.RequestChooseCard, Index: 1}
	_, err = b.resolver.Respond(h, sideA, answer)
	require.NoError(t, err)
	_, err = b.resolver.Respond(back, sideA, answer)
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum(h.Fight), ComputeChecksum(back.Fight))
	assert.Equal(t, len(h.Log), len(back.Log))
}

func TestDecodeHostRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown field", `{"id":"x","mystery":1}`},
		{"missing fight", `{"id":"x","seed":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHost([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
