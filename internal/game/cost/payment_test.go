package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckBlood(t *testing.T) {
	t.Run("exact payment", func(t *testing.T) {
		res := CheckBlood(2, []int{1, 1})
		assert.True(t, res.Success)
	})

	t.Run("single large sacrifice", func(t *testing.T) {
		res := CheckBlood(2, []int{3})
		assert.True(t, res.Success)
	})

	t.Run("not enough blood", func(t *testing.T) {
		res := CheckBlood(2, []int{1})
		assert.False(t, res.Success)
		assert.False(t, res.Excessive)
		assert.Equal(t, ShortBlood, res.Short)
	})

	t.Run("overpayment with a spare sacrifice", func(t *testing.T) {
		res := CheckBlood(2, []int{1, 3})
		assert.False(t, res.Success)
		assert.True(t, res.Excessive)
	})

	t.Run("sacrifices for a card without blood cost", func(t *testing.T) {
		res := CheckBlood(0, []int{1})
		assert.False(t, res.Success)
		assert.True(t, res.Excessive)
	})

	t.Run("free", func(t *testing.T) {
		assert.True(t, CheckBlood(0, nil).Success)
	})
}

func TestCalculatePayment(t *testing.T) {
	pool := Pool{Bones: 3, Energy: 2, Gems: GemGreen}

	assert.True(t, CalculatePayment(Cost{Bones: 3}, pool).Success)
	assert.True(t, CalculatePayment(Cost{Energy: 2, Mox: GemGreen}, pool).Success)

	res := CalculatePayment(Cost{Bones: 4}, pool)
	assert.False(t, res.Success)
	assert.Equal(t, ShortBones, res.Short)

	res = CalculatePayment(Cost{Energy: 3}, pool)
	assert.Equal(t, ShortEnergy, res.Short)

	res = CalculatePayment(Cost{Mox: GemBlue}, pool)
	assert.Equal(t, ShortMox, res.Short)
	assert.Contains(t, res.Reason, "blue")
}
