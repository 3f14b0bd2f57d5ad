package crontab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntryValidates(t *testing.T) {
	t.Parallel()

	_, err := NewEntry("", "* * * * *", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewEntry("echo hi\nrm -rf /", "* * * * *", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewEntry("echo hi", "bad", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewEntry("echo hi", "* * * * *", Metadata{"bad key": "v"})
	assert.ErrorIs(t, err, ErrValidation)

	e, err := NewEntry("echo hi", "0  2 * * *", Metadata{"comment": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", e.Interval)
	assert.Equal(t, "ok", e.Metadata["comment"])
}

func TestEntryMapRoundTrip(t *testing.T) {
	t.Parallel()
	e, err := NewEntry("backup.sh --full", "0 2 * * *", Metadata{"comment": "nightly"})
	require.NoError(t, err)
	e.ID = "abc123"

	got, err := FromMap(e.ToMap())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestFromMapMissingFields(t *testing.T) {
	t.Parallel()
	_, err := FromMap(map[string]any{"id": "x", "command": "echo hi"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = FromMap(map[string]any{"id": "x", "interval": "* * * * *"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = FromMap(map[string]any{"command": "echo hi", "interval": "* * * * *"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFromMapMetadataDefaultsEmpty(t *testing.T) {
	t.Parallel()
	e, err := FromMap(map[string]any{"id": "x", "command": "echo hi", "interval": "* * * * *"})
	require.NoError(t, err)
	assert.Empty(t, e.Metadata)
}

func TestFromMapGenericMetadata(t *testing.T) {
	t.Parallel()
	e, err := FromMap(map[string]any{
		"id":       "x",
		"command":  "echo hi",
		"interval": "* * * * *",
		"metadata": map[string]any{"comment": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", e.Metadata["comment"])

	_, err = FromMap(map[string]any{
		"id":       "x",
		"command":  "echo hi",
		"interval": "* * * * *",
		"metadata": map[string]any{"comment": 42},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestForeignEntry(t *testing.T) {
	t.Parallel()
	f := ForeignEntry("# some comment")
	assert.True(t, f.Foreign())
	assert.Equal(t, "# some comment", f.Raw())

	e, _ := NewEntry("echo hi", "* * * * *", nil)
	assert.False(t, e.Foreign())
	assert.Empty(t, e.Raw())
}
