package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLife_LoseFloorsAtZero(t *testing.T) {
	l := NewLife(100)
	require.NoError(t, l.Lose(150))
	assert.Equal(t, 0, l.Current)
	assert.False(t, l.Alive())
}

func TestLife_HealCapsAtMax(t *testing.T) {
	l := NewLife(100)
	require.NoError(t, l.Lose(90))
	require.NoError(t, l.Heal(50))
	assert.Equal(t, 100, l.Current)
}

func TestLife_NegativeAmountsAreErrors(t *testing.T) {
	l := NewLife(100)
	assert.Error(t, l.Lose(-1))
	assert.Error(t, l.Heal(-1))
}

func TestLife_SetMaxClampsCurrentDown(t *testing.T) {
	l := NewLife(100)
	l.SetMax(50)
	assert.Equal(t, 50, l.Current)
	assert.Equal(t, 50, l.Max)
}

func TestLife_SetMaxUpwardPreservesCurrent(t *testing.T) {
	l := NewLife(100)
	require.NoError(t, l.Lose(40))
	l.SetMax(200)
	assert.Equal(t, 60, l.Current)
}
