package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Record is one persisted resolution decision.
type Record struct {
	ResolvedAt time.Time
	Path       string
	Language   string
	Grammar    string
	Root       string
	Injections int
	Duration   time.Duration
}

// LanguageCount aggregates resolutions per language for the stats report.
type LanguageCount struct {
	Language string
	Count    int
}

// Store persists resolution decisions so watch sessions can report which
// languages a workspace actually exercises.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ResolvedAt.IsZero() {
		record.ResolvedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO resolutions (resolved_at, path, language, grammar, root, injections, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ResolvedAt, record.Path, record.Language, record.Grammar, record.Root,
		record.Injections, record.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("save resolution for %q: %w", record.Path, err)
	}
	return nil
}

// LanguageCounts returns per-language resolution totals since the cutoff,
// most used first.
func (s *Store) LanguageCounts(since time.Time) ([]LanguageCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT language, COUNT(*) FROM resolutions
		 WHERE resolved_at >= ?
		 GROUP BY language ORDER BY COUNT(*) DESC, language ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query language counts: %w", err)
	}
	defer rows.Close()

	var counts []LanguageCount
	for rows.Next() {
		var c LanguageCount
		if err := rows.Scan(&c.Language, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Recent returns the most recent resolutions, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT resolved_at, path, language, grammar, root, injections, duration_us
		 FROM resolutions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent resolutions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var durationUS int64
		if err := rows.Scan(&r.ResolvedAt, &r.Path, &r.Language, &r.Grammar, &r.Root, &r.Injections, &durationUS); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationUS) * time.Microsecond
		records = append(records, r)
	}
	return records, rows.Err()
}
