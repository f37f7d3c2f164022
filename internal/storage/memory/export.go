package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

const exportStamp = "20060102_150405"

// LeaderboardExport is the document written by Export.
type LeaderboardExport struct {
	ExportedAt time.Time               `json:"exportedAt"`
	Count      int                     `json:"count"`
	Entries    []core.LeaderboardEntry `json:"entries"`
}

func exportName(at time.Time, compress bool) string {
	name := "leaderboard_" + at.Format(exportStamp) + ".json"
	if compress {
		name += ".gz"
	}
	return name
}

// Export writes the leaderboard, best score first, to the output directory
// and returns the file path. The file appears under its final name only
// once it is complete.
func (b *Backend) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc := LeaderboardExport{
		ExportedAt: b.now().UTC(),
		Entries:    slices.Clone(b.entries),
	}
	leaderboard.Sort(doc.Entries, core.SortScore)
	doc.Count = len(doc.Entries)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, exportName(doc.ExportedAt, b.cfg.CompressOutput))
	if err := writeFileAtomic(path, func(w io.Writer) error {
		return encodeExport(w, doc, b.cfg.CompressOutput)
	}); err != nil {
		return "", err
	}

	b.lastExportPath = path
	return path, nil
}

// GetExportedFilePath returns the path of the most recent export, or "".
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func encodeExport(w io.Writer, doc LeaderboardExport, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(doc)
	}
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(doc); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// writeFileAtomic fills a temporary file next to path and renames it into
// place when fill succeeds.
func writeFileAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
