package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/kudos4me/internal/config"
)

// Snapshots writes page dumps for offline inspection with `k4m scan`.
type Snapshots struct {
	dir string
	now func() time.Time
}

// DefaultSnapshotDir returns the snapshot directory in the cache dir.
func DefaultSnapshotDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "snapshots"), nil
}

// NewSnapshots stores snapshots under dir.
func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir, now: time.Now}
}

// generateFilename creates a timestamped filename with the given extension.
func (s *Snapshots) generateFilename(ext string) string {
	return s.now().Format("2006-01-02T15-04-05.000") + ext
}

// Save writes html to a new timestamped file and returns its path.
func (s *Snapshots) Save(ctx context.Context, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := filepath.Join(s.dir, s.generateFilename(".html"))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// Latest returns the path to the most recent snapshot.
func (s *Snapshots) Latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no snapshots in %s", s.dir)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no snapshots in %s", s.dir)
	}
	return filepath.Join(s.dir, files[len(files)-1]), nil
}
