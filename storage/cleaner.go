package storage

import (
	"Painter/lib/sl"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cleaner removes generated images older than ttl from the output directory
type Cleaner struct {
	dir string
	ttl time.Duration
	log *slog.Logger
}

func NewCleaner(dir string, ttl time.Duration, log *slog.Logger) *Cleaner {
	return &Cleaner{
		dir: dir,
		ttl: ttl,
		log: log.With(sl.Module("cleaner")),
	}
}

// Clean returns the number of removed files; ttl <= 0 keeps everything
func (c *Cleaner) Clean(now time.Time) int {
	if c.ttl <= 0 || c.dir == "" {
		return 0
	}
	deadline := now.Add(-c.ttl)

	removed := 0
	var dirs []string
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == c.dir {
				return nil
			}
			// a fresh directory may be about to receive files
			if info, err := d.Info(); err == nil && info.ModTime().Before(deadline) {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".png") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			c.log.With(slog.String("path", path)).Warn("file info", sl.Err(err))
			return nil
		}
		if info.ModTime().Before(deadline) {
			if err := os.Remove(path); err != nil {
				c.log.With(slog.String("path", path)).Warn("removing file", sl.Err(err))
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.log.With(slog.String("dir", c.dir)).Warn("walking output dir", sl.Err(err))
	}

	// deepest first; os.Remove fails on non-empty directories
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}

	if removed > 0 {
		c.log.With(slog.Int("removed", removed)).Debug("old images removed")
	}
	return removed
}
