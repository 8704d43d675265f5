package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"posrecon/internal/model"
)

// ErrConfigNotFound the key has never been set.
var ErrConfigNotFound = errors.New("config key not found")

const keyLastRunDate = "last_run_date"

// GetConfig returns a config value.
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// SetConfig upserts a config value.
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetAllConfig returns every config entry.
func (s *Store) GetAllConfig() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM config")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		config[key] = value
	}
	return config, rows.Err()
}

// GetLastRunDate report date of the last successful run.
func (s *Store) GetLastRunDate() (time.Time, error) {
	v, err := s.GetConfig(keyLastRunDate)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(model.DateLayout, v)
}

// SetLastRunDate records the report date of a successful run.
func (s *Store) SetLastRunDate(date time.Time) error {
	return s.SetConfig(keyLastRunDate, date.Format(model.DateLayout))
}
