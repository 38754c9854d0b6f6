package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ORDERS_CSV_PATH", filepath.Join(dir, "database.csv"))
	t.Setenv("OBS_AUDIT_LOG_PATH", filepath.Join(dir, "api_operations.log"))
	t.Setenv("OBS_ENABLE_METRICS", "false")
	t.Setenv("OBS_ENABLE_TRACING", "false")
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("MESSAGING_ENABLED", "false")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrdersCommands(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "orders", "count")
	require.NoError(t, err)
	assert.Equal(t, "0", strings.TrimSpace(out))

	_, err = run(t, "orders", "hash")
	require.Error(t, err, "hashing a missing file")

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "seeded 4 orders", strings.TrimSpace(out))

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "seeded 0 orders", strings.TrimSpace(out))

	out, err = run(t, "orders", "count")
	require.NoError(t, err)
	assert.Equal(t, "4", strings.TrimSpace(out))

	out, err = run(t, "orders", "hash")
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, strings.TrimSpace(out))

	target := filepath.Join(dir, "out.zip")
	out, err = run(t, "orders", "snapshot", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "out.zip")

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "database.csv", zr.File[0].Name)

	_, err = os.Stat(filepath.Join(dir, "api_operations.log"))
	assert.NoError(t, err, "operations are written to the audit log")
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "explode")
	assert.Error(t, err)
}
