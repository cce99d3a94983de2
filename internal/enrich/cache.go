package enrich

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CacheFile is the database file name inside the cache directory.
const CacheFile = "enrichment.db"

// Cache persists annotations keyed by row hash, backed by SQLite.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// CacheStats summarises the cache content. Latest is zero for an empty
// cache.
type CacheStats struct {
	Entries int
	Latest  time.Time
}

// OpenCache opens (or creates) the cache database in dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dsn := filepath.Join(dir, CacheFile) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open enrichment cache: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate enrichment cache: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hash is the cache key of a row: the md5 hex digest of
// "category|subcategory|topic|description".
func Hash(category, subcategory, topic, description string) string {
	sum := md5.Sum([]byte(category + "|" + subcategory + "|" + topic + "|" + description))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached annotation for hash, if any.
func (c *Cache) Get(ctx context.Context, hash string) (Annotation, bool, error) {
	var a Annotation
	err := c.db.QueryRowContext(ctx,
		`SELECT tldr, challenge FROM enrichment_cache WHERE row_hash = ?`, hash,
	).Scan(&a.TLDR, &a.Challenge)
	if errors.Is(err, sql.ErrNoRows) {
		return Annotation{}, false, nil
	}
	if err != nil {
		return Annotation{}, false, fmt.Errorf("read cache: %w", err)
	}
	return a, true, nil
}

// Put stores or replaces the annotation for hash.
func (c *Cache) Put(ctx context.Context, hash string, a Annotation) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO enrichment_cache (row_hash, tldr, challenge, created_at)
		 VALUES (?, ?, ?, ?)`,
		hash, a.TLDR, a.Challenge, c.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Stats returns the number of entries and the latest write time.
func (c *Cache) Stats(ctx context.Context) (CacheStats, error) {
	var (
		st     CacheStats
		latest sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM enrichment_cache`,
	).Scan(&st.Entries, &latest)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	if latest.Valid && latest.String != "" {
		t, err := time.Parse(time.RFC3339Nano, latest.String)
		if err != nil {
			return CacheStats{}, fmt.Errorf("parse cache timestamp: %w", err)
		}
		st.Latest = t
	}
	return st, nil
}
