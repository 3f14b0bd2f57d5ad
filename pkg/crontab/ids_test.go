package crontab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorDeterministic(t *testing.T) {
	t.Parallel()
	a := NewAllocator(nil)
	b := NewAllocator(nil)
	assert.Equal(t, a.Next("backup.sh", "0 2 * * *"), b.Next("backup.sh", "0 2 * * *"))
}

func TestAllocatorSpacingInsensitive(t *testing.T) {
	t.Parallel()
	a := NewAllocator(nil)
	b := NewAllocator(nil)
	assert.Equal(t, a.Next("backup.sh", "0 2 * * *"), b.Next("backup.sh", "0  2  *  *  *"))
}

func TestAllocatorCollisionSuffix(t *testing.T) {
	t.Parallel()
	a := NewAllocator(nil)
	first := a.Next("backup.sh", "0 2 * * *")
	second := a.Next("backup.sh", "0 2 * * *")
	third := a.Next("backup.sh", "0 2 * * *")

	require.NotEqual(t, first, second)
	require.NotEqual(t, second, third)
	assert.Equal(t, first+"-2", second)
	assert.Equal(t, first+"-3", third)
}

func TestAllocatorRespectsExisting(t *testing.T) {
	t.Parallel()
	seed := NewAllocator(nil).Next("backup.sh", "0 2 * * *")

	a := NewAllocator([]string{seed})
	got := a.Next("backup.sh", "0 2 * * *")
	assert.NotEqual(t, seed, got)
}

func TestAllocatorReserve(t *testing.T) {
	t.Parallel()
	a := NewAllocator(nil)
	seed := NewAllocator(nil).Next("x", "* * * * *")
	a.Reserve(seed)
	assert.NotEqual(t, seed, a.Next("x", "* * * * *"))
}
