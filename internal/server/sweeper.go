package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// stagedFilePattern prefixes every staged upload so the sweeper
	// only ever touches files this package created.
	stagedFilePattern = "upload-*"
	stagedFilePrefix  = "upload-"

	// SweepInterval is the time between sweeps of the staging directory.
	SweepInterval = 15 * time.Minute

	// StagedFileMaxAge is how old a staged file must be before the
	// sweeper removes it. Files this old were orphaned by a crashed or
	// killed request.
	StagedFileMaxAge = time.Hour
)

// Sweeper removes orphaned staged uploads. Requests delete their own
// staged file on completion; the sweeper catches whatever they missed.
type Sweeper struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
}

// NewSweeper creates a sweeper for the given staging directory.
func NewSweeper(dir string) *Sweeper {
	return &Sweeper{dir: dir, interval: SweepInterval, maxAge: StagedFileMaxAge}
}

// Run sweeps periodically until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Str("dir", s.dir).Dur("interval", s.interval).Msg("starting staging sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping staging sweeper")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("failed to read staging directory")
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), stagedFilePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove orphaned staged file")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("removed orphaned staged files")
	}
}
