package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/model"
	"github.com/goccy/go-json"
)

// Cache keys
const (
	KeyTasks         = "tasks"
	KeyHistoryPast   = "history_past"
	KeyHistoryFuture = "history_future"
	KeyTheme         = "theme"
)

// State is everything the application restores at startup
type State struct {
	Tasks  model.Collection
	Past   []model.Collection
	Future []model.Collection
	Theme  string
}

// Get returns the raw value stored under key. ok is false when the key is absent.
func (db *DB) Get(key string) (value string, ok bool, err error) {
	err = db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value
func (db *DB) Put(key, value string) error {
	return put(db.DB, key, value)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func put(e execer, key, value string) error {
	_, err := e.Exec(`
		INSERT INTO cache (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// SaveTheme persists the theme name on its own
func (db *DB) SaveTheme(name string) error {
	return db.Put(KeyTheme, name)
}

// SaveState writes tasks and both history stacks in one transaction.
// The theme is stored separately by SaveTheme.
func (db *DB) SaveState(s State) error {
	values := make(map[string]string, 3)
	for key, v := range map[string]any{
		KeyTasks:         nonNil(s.Tasks),
		KeyHistoryPast:   nonNilStack(s.Past),
		KeyHistoryFuture: nonNilStack(s.Future),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		values[key] = string(b)
	}

	return db.Transaction(func(tx *sql.Tx) error {
		for key, v := range values {
			if err := put(tx, key, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadState reads the saved state. Missing keys give empty values; a value
// that cannot be decoded is logged and treated as missing.
func (db *DB) LoadState() (State, error) {
	var s State

	if err := db.loadJSON(KeyTasks, &s.Tasks); err != nil {
		return State{}, err
	}
	if err := db.loadJSON(KeyHistoryPast, &s.Past); err != nil {
		return State{}, err
	}
	if err := db.loadJSON(KeyHistoryFuture, &s.Future); err != nil {
		return State{}, err
	}

	theme, _, err := db.Get(KeyTheme)
	if err != nil {
		return State{}, err
	}
	s.Theme = theme

	s.Tasks = s.Tasks.Normalized()
	for i := range s.Past {
		s.Past[i] = s.Past[i].Normalized()
	}
	for i := range s.Future {
		s.Future[i] = s.Future[i].Normalized()
	}
	return s, nil
}

func (db *DB) loadJSON(key string, dst any) error {
	raw, ok, err := db.Get(key)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		debug.Log("cache: discarding corrupt %s: %v", key, err)
		return resetTo(dst)
	}
	return nil
}

func resetTo(dst any) error {
	switch v := dst.(type) {
	case *model.Collection:
		*v = nil
	case *[]model.Collection:
		*v = nil
	}
	return nil
}

func nonNil(c model.Collection) model.Collection {
	if c == nil {
		return model.Collection{}
	}
	return c
}

func nonNilStack(s []model.Collection) []model.Collection {
	if s == nil {
		return []model.Collection{}
	}
	return s
}
