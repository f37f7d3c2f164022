package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readExport(t *testing.T, path string) LeaderboardExport {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		r = gz
	}
	var doc LeaderboardExport
	require.NoError(t, json.NewDecoder(r).Decode(&doc))
	return doc
}

func TestExportName(t *testing.T) {
	assert.Equal(t, "leaderboard_20260314_150926.json", exportName(fixedClock(), false))
	assert.Equal(t, "leaderboard_20260314_150926.json.gz", exportName(fixedClock(), true))
}

func TestExport_BestScoreFirst(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	b.now = fixedClock
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "low", Score: 900}))
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "high", Score: 1900}))

	path, err := b.Export()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "leaderboard_20260314_150926.json"), path)
	assert.Equal(t, path, b.GetExportedFilePath())

	doc := readExport(t, path)
	require.Equal(t, 2, doc.Count)
	assert.Equal(t, "high", doc.Entries[0].ID)
	assert.True(t, doc.ExportedAt.Equal(fixedClock()))

	// stored order is untouched
	assert.Equal(t, "low", b.Entries()[0].ID)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "temporary file left behind")
}

func TestClose_ExportsCompressed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	b.now = fixedClock
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "only", Score: 1000}))

	require.NoError(t, b.Close())

	path := b.GetExportedFilePath()
	require.Equal(t, ".gz", filepath.Ext(path))
	doc := readExport(t, path)
	if doc.Count != 1 || doc.Entries[0].ID != "only" {
		t.Errorf("unexpected export %+v", doc)
	}
}

func TestExport_EmptyLeaderboard(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	path, err := b.Export()
	require.NoError(t, err)
	doc := readExport(t, path)
	assert.Zero(t, doc.Count)
	assert.Empty(t, doc.Entries)
}

func TestWriteFileAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	err := writeFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("{\"partial\":"))
		return errors.New("encoder stopped")
	})
	require.ErrorContains(t, err, "encoder stopped")

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}
