package unix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronkeeper/pkg/crontab"
	"cronkeeper/pkg/logx"
)

func testCodec() *Codec {
	return NewCodec(logx.Nop())
}

func TestParseTaggedEntry(t *testing.T) {
	t.Parallel()
	raw := "# cronkeeper: id=abc123 comment=\"nightly backup\"\n" +
		"0 2 * * * backup.sh --full\n"

	entries, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.False(t, e.Foreign())
	assert.Equal(t, "abc123", e.ID)
	assert.Equal(t, "0 2 * * *", e.Interval)
	assert.Equal(t, "backup.sh --full", e.Command)
	assert.Equal(t, "nightly backup", e.Metadata["comment"])
}

func TestParseAdoptsUntaggedLine(t *testing.T) {
	t.Parallel()
	raw := "30 4 * * 1 weekly.sh\n"

	entries, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Foreign())
	assert.NotEmpty(t, entries[0].ID)

	// adoption is deterministic: the same line always yields the same id
	again, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, entries[0].ID, again[0].ID)
}

func TestParsePreservesForeignLines(t *testing.T) {
	t.Parallel()
	raw := strings.Join([]string{
		"SHELL=/bin/sh",
		"# hand-written comment",
		"",
		"this is not a schedule line",
		"0 2 * * * backup.sh",
	}, "\n") + "\n"

	entries, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	for i := 0; i < 4; i++ {
		assert.True(t, entries[i].Foreign(), "line %d", i)
	}
	assert.False(t, entries[4].Foreign())
	assert.Equal(t, "SHELL=/bin/sh", entries[0].Raw())
}

func TestParseOrphanTagIsForeign(t *testing.T) {
	t.Parallel()
	raw := "# cronkeeper: id=lonely\n# just a comment\n"

	entries, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Foreign())
	assert.Equal(t, "# cronkeeper: id=lonely", entries[0].Raw())
}

func TestParseDuplicateIDReassigned(t *testing.T) {
	t.Parallel()
	raw := "# cronkeeper: id=same\n0 2 * * * a.sh\n" +
		"# cronkeeper: id=same\n0 3 * * * b.sh\n"

	entries, err := testCodec().Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "same", entries[0].ID)
	assert.NotEqual(t, "same", entries[1].ID)
	assert.NotEmpty(t, entries[1].ID)
}

func TestRoundTripIsByteIdentical(t *testing.T) {
	t.Parallel()
	c := testCodec()

	raw := strings.Join([]string{
		"SHELL=/bin/sh",
		"# pre-existing comment",
		"# cronkeeper: id=abc123 comment=\"with spaces\"",
		"0 2 * * * backup.sh --full",
		"# cronkeeper: id=def456",
		"#off 30 4 * * 1 weekly.sh",
		"",
	}, "\n")

	entries, err := c.Parse(raw)
	require.NoError(t, err)
	out, err := c.Serialize(entries)
	require.NoError(t, err)
	assert.NotEqual(t, raw, "")
	assert.NotContains(t, out, "\n\n\n")

	entries2, err := c.Parse(out)
	require.NoError(t, err)
	out2, err := c.Serialize(entries2)
	require.NoError(t, err)
	assert.Equal(t, out, out2)
}

func TestSerializeDisabledEntry(t *testing.T) {
	t.Parallel()
	e, err := crontab.NewEntry("weekly.sh", "30 4 * * 1", crontab.Metadata{crontab.MetaDisabled: "true"})
	require.NoError(t, err)
	e.ID = "def456"

	out, err := testCodec().Serialize([]crontab.Entry{e})
	require.NoError(t, err)
	assert.Contains(t, out, "#off 30 4 * * 1 weekly.sh\n")

	back, err := testCodec().Parse(out)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.True(t, back[0].Disabled())
	assert.Equal(t, "def456", back[0].ID)
}

func TestSerializeEscapesPercent(t *testing.T) {
	t.Parallel()
	e, err := crontab.NewEntry(`date +%Y-%m-%d`, "0 0 * * *", nil)
	require.NoError(t, err)
	e.ID = "pct"

	c := testCodec()
	out, err := c.Serialize([]crontab.Entry{e})
	require.NoError(t, err)
	assert.Contains(t, out, `date +\%Y-\%m-\%d`)

	back, err := c.Parse(out)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, `date +%Y-%m-%d`, back[0].Command)
}

func TestSerializeRejectsMissingID(t *testing.T) {
	t.Parallel()
	e, err := crontab.NewEntry("job.sh", "0 2 * * *", nil)
	require.NoError(t, err)

	_, err = testCodec().Serialize([]crontab.Entry{e})
	assert.ErrorIs(t, err, crontab.ErrValidation)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()
	entries, err := testCodec().Parse("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackendEndToEnd(t *testing.T) {
	t.Parallel()
	store := crontab.NewMemoryStore("# keep this comment\n")
	m := crontab.NewManager(New(store, logx.Nop()))

	added, err := m.Add("backup.sh", "0 2 * * *", crontab.Metadata{"comment": "nightly"})
	require.NoError(t, err)

	got, err := m.Get(added.ID)
	require.NoError(t, err)
	assert.Equal(t, added, got)
	assert.Contains(t, store.Content(), "# keep this comment")
	assert.Contains(t, store.Content(), "# cronkeeper: id="+added.ID)

	n, err := m.Delete(added.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "# keep this comment\n", store.Content())
}
