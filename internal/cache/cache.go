// Package cache persists fetched feed items to SQLite so the app can show
// a last-known timeline before the first network round trip completes.
//
// # Thread Safety
//
// Cache is safe for concurrent use. The underlying sql.DB handles connection
// pooling and serialization. Individual operations are atomic; SaveItems
// wraps its writes in a transaction.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/infblueocean/flock/internal/feed"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxAge bounds how stale a cached page may be before Load discards it.
const maxAge = 7 * 24 * time.Hour

// Cache is the offline item cache for one viewer.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, applying migrations.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// WAL lets the notifier's writes overlap UI reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	// Keyed on (subject, id): the same item may appear in several subjects'
	// snapshots, and saving one subject must not touch another's rows.
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		subject INTEGER NOT NULL,
		id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		payload BLOB NOT NULL,
		cached_at DATETIME NOT NULL,
		PRIMARY KEY (subject, id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_items_subject_position ON items(subject, position);
	`
	_, err := c.db.Exec(schema)
	return err
}

// SaveItems replaces the cached snapshot for subject with items, in display
// order. The full item, comments and repost included, rides in one JSON
// payload; the cache never needs to query inside it.
func (c *Cache) SaveItems(subject feed.Subject, items []feed.Item) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items WHERE subject = ?", int64(subject)); err != nil {
		return err
	}

	// The subject's rows were just deleted, so a plain insert suffices; an
	// upsert here could reach across into another subject's snapshot.
	stmt, err := tx.Prepare(`
		INSERT INTO items (subject, id, position, payload, cached_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(int64(subject), it.ID, i, payload, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load returns the cached snapshot for subject in display order, or nil if
// the cache is empty or everything cached is older than a week.
func (c *Cache) Load(subject feed.Subject) ([]feed.Item, error) {
	rows, err := c.db.Query(`
		SELECT payload FROM items
		WHERE subject = ? AND cached_at > ?
		ORDER BY position ASC
	`, int64(subject), time.Now().Add(-maxAge))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var it feed.Item
		if err := json.Unmarshal(payload, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Remove drops one item from every cached subject, e.g. after a confirmed
// delete.
func (c *Cache) Remove(itemID int64) error {
	_, err := c.db.Exec("DELETE FROM items WHERE id = ?", itemID)
	return err
}

// Prune discards entries older than the freshness window.
func (c *Cache) Prune() error {
	_, err := c.db.Exec("DELETE FROM items WHERE cached_at <= ?", time.Now().Add(-maxAge))
	return err
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
