package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"analysis-suite/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedAnalyzer wraps a VideoAnalyzer with SQLite-backed caching.
// Cache hits skip the upload and inference entirely.
type CachedAnalyzer struct {
	inner VideoAnalyzer
	store storage.CacheStore
}

// NewCachedAnalyzer creates a caching wrapper around inner.
func NewCachedAnalyzer(inner VideoAnalyzer, store storage.CacheStore) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashRequest hashes the file content together with the prompt. The
// prompt is length-prefixed to prevent boundary collisions.
func hashRequest(path string, prompt string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open media file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash media file: %w", err)
	}
	binary.Write(h, binary.LittleEndian, int64(len(prompt)))
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Analyze implements the VideoAnalyzer interface with caching.
func (c *CachedAnalyzer) Analyze(ctx context.Context, path string, prompt string) (*Result, error) {
	hash, err := hashRequest(path, prompt)
	if err != nil {
		// Hashing failed; let the inner analyzer produce the proper
		// validation error for the caller.
		return c.inner.Analyze(ctx, path, prompt)
	}

	if c.store != nil {
		content, ok, err := c.store.GetCachedAnalysis(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check analysis cache")
		} else if ok {
			log.Debug().Str("hash", hash[:16]).Msg("analysis cache hit")
			return &Result{Content: content, Cached: true}, nil
		}
	}

	result, err := c.inner.Analyze(ctx, path, prompt)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if err := c.store.SetCachedAnalysis(hash, result.Content); err != nil {
			log.Warn().Err(err).Msg("failed to cache analysis result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached analysis result")
		}
	}

	return result, nil
}
