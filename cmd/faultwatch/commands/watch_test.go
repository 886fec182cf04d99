package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	d, err := parseInterval("0")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseInterval("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseInterval("5m")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = parseInterval("-1s")
	require.Error(t, err)

	_, err = parseInterval("sometimes")
	require.Error(t, err)
}

func TestWatchRoots_FilesWatchedViaParent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(file, []byte("steps: []\n"), 0o600))

	roots := watchRoots([]string{file, dir})
	assert.Equal(t, []string{dir}, roots, "file and its directory collapse to one watch root")
}

func TestWatchRoots_DeduplicatesDirectories(t *testing.T) {
	dir := t.TempDir()
	roots := watchRoots([]string{dir, dir})
	assert.Equal(t, []string{dir}, roots)
}
