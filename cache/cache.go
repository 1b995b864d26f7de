// Package cache is the process-wide solution cache: a sqlite-backed
// key→value store keyed on geometry + device fingerprint, rooted at
// MIOGEMM_CACHE_DIR (§6, §9 global-state design note).
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/miogemm/geometry"
	"github.com/sarchlab/miogemm/solution"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS solutions (
	key  TEXT PRIMARY KEY,
	body BLOB NOT NULL
);`

// Cache wraps one sqlite database file of cached Solutions.
type Cache struct {
	db *sql.DB
}

// Key builds the cache key for (g, dev): the original MIOpenGEMM
// source hashes (geometry_string, device_fingerprint) rather than
// geometry alone, since the same geometry tunes differently per
// device.
func Key(g geometry.Geometry, dev geometry.DeviceInfo) string {
	return g.String() + "@" + dev.Fingerprint()
}

// Open opens (creating if necessary) the sqlite database under dir,
// named solutions.db, and ensures its schema exists. dir is normally
// the value of MIOGEMM_CACHE_DIR.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating cache dir: %w", err)
	}

	path := filepath.Join(dir, "solutions.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ErrMiss is returned by Get when key is not present.
var ErrMiss = errors.New("cache: miss")

// Get looks up the Solution cached for (g, dev), returning ErrMiss if
// absent.
func (c *Cache) Get(g geometry.Geometry, dev geometry.DeviceInfo) (solution.Solution, error) {
	var body []byte
	row := c.db.QueryRow(`SELECT body FROM solutions WHERE key = ?`, Key(g, dev))
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return solution.Solution{}, ErrMiss
		}
		return solution.Solution{}, fmt.Errorf("cache: reading: %w", err)
	}

	sol, err := solution.Parse(string(body))
	if err != nil {
		return solution.Solution{}, fmt.Errorf("cache: parsing cached solution: %w", err)
	}
	return sol, nil
}

// Put writes sol into the cache under (g, dev)'s key, overwriting any
// existing entry.
func (c *Cache) Put(g geometry.Geometry, dev geometry.DeviceInfo, sol solution.Solution) error {
	_, err := c.db.Exec(
		`INSERT INTO solutions (key, body) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body`,
		Key(g, dev), []byte(sol.Emit()),
	)
	if err != nil {
		return fmt.Errorf("cache: writing: %w", err)
	}
	return nil
}
