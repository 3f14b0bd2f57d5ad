package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronkeeper/pkg/crontab"
	"cronkeeper/pkg/logx"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "audit.db")}, logx.Nop())
	require.NoError(t, err)
	require.NotNil(t, s)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err, "driver %q", driver)
		assert.Nil(t, s, "driver %q", driver)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "bogus"}, logx.Nop())
	assert.Error(t, err)
}

func TestOpenFileRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	assert.Error(t, err)
}

func TestFileStoreAppendsRecords(t *testing.T) {
	t.Parallel()
	s, dir := openTestStore(t)
	ctx := context.Background()

	r1 := Record{At: time.Now().UTC(), Platform: "unix", Op: "add", EntryID: "a1", Command: "x.sh", Interval: "0 2 * * *"}
	r2 := Record{At: time.Now().UTC(), Platform: "unix", Op: "delete", EntryID: "a1", Removed: 1}
	require.NoError(t, s.AppendRecord(ctx, r1))
	require.NoError(t, s.AppendRecord(ctx, r2))

	f, err := os.Open(filepath.Join(dir, "audit.audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "add", got[0].Op)
	assert.Equal(t, "x.sh", got[0].Command)
	assert.Equal(t, 1, got[1].Removed)
}

func TestFileStoreChecksumsSurviveReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")
	ctx := context.Background()

	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, s.PutChecksum(ctx, "unix", 12345))
	require.NoError(t, s.Close())

	s, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer s.Close()

	sum, ok, err := s.GetChecksum(ctx, "unix")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12345), sum)

	_, ok, err = s.GetChecksum(ctx, "windows")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecorderAdapter(t *testing.T) {
	t.Parallel()
	s, dir := openTestStore(t)

	rec := Recorder(s, logx.Nop())
	rec.Record(crontab.Mutation{At: time.Now(), Platform: "unix", Op: "add", EntryID: "x"})

	b, err := os.ReadFile(filepath.Join(dir, "audit.audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"op":"add"`)
	assert.Contains(t, string(b), `"entry_id":"x"`)
}

func TestChecksumsAdapter(t *testing.T) {
	t.Parallel()
	s, _ := openTestStore(t)

	cs := Checksums(s, logx.Nop())
	_, ok := cs.GetChecksum("unix")
	assert.False(t, ok)

	cs.PutChecksum("unix", 42)
	sum, ok := cs.GetChecksum("unix")
	require.True(t, ok)
	assert.Equal(t, uint64(42), sum)
}

func TestNilStoreAdaptersAreSafe(t *testing.T) {
	t.Parallel()
	rec := Recorder(nil, logx.Nop())
	rec.Record(crontab.Mutation{Op: "add"})

	cs := Checksums(nil, logx.Nop())
	cs.PutChecksum("unix", 1)
	_, ok := cs.GetChecksum("unix")
	assert.False(t, ok)
}
