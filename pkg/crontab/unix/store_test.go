package unix

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronkeeper/pkg/logx"
)

// stubCrontab builds a shell script that emulates the crontab binary over a
// spool file: -l prints it (exit 1 when absent), any other argument installs.
func stubCrontab(t *testing.T) (*CommandStore, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	dir := t.TempDir()
	spool := filepath.Join(dir, "spool")
	script := filepath.Join(dir, "crontab")

	body := `#!/bin/sh
if [ "$1" = "-l" ]; then
  cat "` + spool + `" 2>/dev/null || exit 1
else
  cp "$1" "` + spool + `"
fi
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	s := NewCommandStore(logx.Nop())
	s.Binary = script
	return s, spool
}

func TestCommandStoreMissingCrontabReadsEmpty(t *testing.T) {
	t.Parallel()
	s, _ := stubCrontab(t)

	raw, err := s.ReadRaw()
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCommandStoreInstallAndRead(t *testing.T) {
	t.Parallel()
	s, spool := stubCrontab(t)

	require.NoError(t, s.WriteRaw("0 2 * * * backup.sh\n"))

	b, err := os.ReadFile(spool)
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * * backup.sh\n", string(b))

	raw, err := s.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * * backup.sh\n", raw)
}

func TestCommandStoreMissingBinary(t *testing.T) {
	t.Parallel()
	s := NewCommandStore(logx.Nop())
	s.Binary = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := s.ReadRaw()
	assert.Error(t, err)
}
