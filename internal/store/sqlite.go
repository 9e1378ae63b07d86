package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when no cached data exists for a city.
var ErrNotFound = errors.New("no cached weather data for city")

// Store is the weather cache: a city-name keyed blob table with
// last-write-wins semantics on writes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the cache schema if it does not exist yet.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS weather_cache (
			city_name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		)
	`)
	return err
}

// Put stores a weather blob for a city, replacing any previous entry.
func (s *Store) Put(cityName string, data []byte, ts time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO weather_cache (city_name, data, timestamp)
		VALUES (?, ?, ?)
		ON CONFLICT(city_name) DO UPDATE SET
			data = excluded.data,
			timestamp = excluded.timestamp
	`, cityName, string(data), ts.UTC())
	return err
}

// Get returns the cached blob for a city, or ErrNotFound.
func (s *Store) Get(cityName string) ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM weather_cache WHERE city_name = ?`, cityName).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Prune deletes cache entries older than maxAge and reports how many rows
// were removed. A maxAge of zero or less disables pruning.
func (s *Store) Prune(maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	result, err := s.db.Exec(`DELETE FROM weather_cache WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
