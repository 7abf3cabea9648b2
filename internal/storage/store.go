package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AnalysisRecord is one completed analysis, persisted for the history
// endpoint.
type AnalysisRecord struct {
	ID        int64
	Kind      string // "video" or "stock"
	Subject   string // file name or ticker symbol
	Query     string
	Content   string
	Success   bool
	Attempts  int
	Duration  time.Duration
	CreatedAt time.Time
}

// CacheStore is the subset of Store used by the analysis cache.
type CacheStore interface {
	GetCachedAnalysis(hash string) (string, bool, error)
	SetCachedAnalysis(hash string, content string) error
}

// Store persists analysis history and cached model responses.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	analyses := `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		query TEXT NOT NULL,
		content TEXT NOT NULL,
		success INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(analyses); err != nil {
		return fmt.Errorf("failed to create analyses table: %w", err)
	}

	cache := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		hash TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(cache); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}

	return nil
}

// RecordAnalysis appends a completed analysis to the history.
func (s *Store) RecordAnalysis(rec *AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO analyses (kind, subject, query, content, success, attempts, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Subject, rec.Query, rec.Content, rec.Success, rec.Attempts,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// RecentAnalyses returns up to limit records, newest first.
func (s *Store) RecentAnalyses(limit int) ([]AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, kind, subject, query, content, success, attempts, duration_ms, created_at
		 FROM analyses ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var durationMs int64
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.Subject, &rec.Query, &rec.Content,
			&rec.Success, &rec.Attempts, &durationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetCachedAnalysis looks up a cached model response by content hash.
// The second return value reports whether an entry was found.
func (s *Store) GetCachedAnalysis(hash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content string
	err := s.db.QueryRow(
		"SELECT content FROM analysis_cache WHERE hash = ?", hash,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query analysis cache: %w", err)
	}
	return content, true, nil
}

// SetCachedAnalysis stores or replaces a cached model response.
func (s *Store) SetCachedAnalysis(hash string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO analysis_cache (hash, content) VALUES (?, ?)
		 ON CONFLICT(hash) DO UPDATE SET content = excluded.content, created_at = CURRENT_TIMESTAMP`,
		hash, content,
	)
	if err != nil {
		return fmt.Errorf("failed to write analysis cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
