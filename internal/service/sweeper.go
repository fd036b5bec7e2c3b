package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/snatch/internal/infrastructure/logger"
)

// Sweeper deletes downloaded files once they outlive the retention window.
// Jobs expire separately through the registry; this only touches the disk.
type Sweeper struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stop      chan struct{}
	done      chan struct{}
}

func NewSweeper(dir string, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		dir:       dir,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start sweeps once right away, then on every tick until Stop is called.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)

		s.sweep()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweep() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", s.dir).Msg("cannot read download directory")
		return 0
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot stat download")
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("cannot remove expired download")
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("cleaned up expired downloads")
	}
	return removed
}
