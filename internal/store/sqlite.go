package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

const unitsKey = "units"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_cities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// SQLiteStore keeps tracked cities and settings in SQLite.
type SQLiteStore struct {
	db           *sql.DB
	defaultUnits weather.Units
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string, defaultUnits weather.Units) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps readers from blocking on the occasional write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warnf("could not set WAL mode: %v", err)
	}

	s, err := NewSQLiteFromDB(db, defaultUnits)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteFromDB wraps an open database and applies the schema.
func NewSQLiteFromDB(db *sql.DB, defaultUnits weather.Units) (*SQLiteStore, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	if !defaultUnits.Valid() {
		defaultUnits = weather.UnitsMetric
	}
	return &SQLiteStore{db: db, defaultUnits: defaultUnits}, nil
}

func (s *SQLiteStore) ListCities(ctx context.Context) ([]weather.TrackedCity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, country FROM tracked_cities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.TrackedCity, 0)
	for rows.Next() {
		var c weather.TrackedCity
		if err := rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetCity(ctx context.Context, id int64) (weather.TrackedCity, error) {
	var c weather.TrackedCity
	err := s.db.QueryRowContext(ctx, `SELECT id, name, country FROM tracked_cities WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.TrackedCity{}, fmt.Errorf("city %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return weather.TrackedCity{}, err
	}
	return c, nil
}

func (s *SQLiteStore) AddCity(ctx context.Context, name, country string) (weather.TrackedCity, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tracked_cities(name, country, created_at) VALUES(?,?,?)`,
		name, country, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return weather.TrackedCity{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return weather.TrackedCity{}, err
	}
	return weather.TrackedCity{ID: id, Name: name, Country: country}, nil
}

func (s *SQLiteStore) UpdateCity(ctx context.Context, city weather.TrackedCity) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tracked_cities SET name = ?, country = ? WHERE id = ?`,
		city.Name, city.Country, city.ID)
	if err != nil {
		return err
	}
	return requireRow(res, city.ID)
}

func (s *SQLiteStore) DeleteCity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_cities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) DeleteAllCities(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_cities`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Units returns the stored unit preference, or the default if none is set.
func (s *SQLiteStore) Units(ctx context.Context) (weather.Units, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, unitsKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultUnits, nil
	}
	if err != nil {
		return "", err
	}
	return weather.ParseUnits(v)
}

func (s *SQLiteStore) SetUnits(ctx context.Context, u weather.Units) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings(key, value) VALUES(?,?)`, unitsKey, string(u))
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("city %d: %w", id, ErrNotFound)
	}
	return nil
}

var (
	_ weather.CityStore     = (*SQLiteStore)(nil)
	_ weather.SettingsStore = (*SQLiteStore)(nil)
)
