package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const settingsTable = "feed_settings"

// SettingsRepository persists feed settings as scoped key/value rows.
type SettingsRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewSettingsRepository creates a repository for the given driver; the driver
// decides the placeholder style.
func NewSettingsRepository(db *sql.DB, driver string) *SettingsRepository {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SettingsRepository{db: db, builder: builder}
}

// Get returns the value stored for scope/key. A missing row is reported with
// ok == false and a nil error.
func (r *SettingsRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	query, args, err := r.builder.
		Select("value").
		From(settingsTable).
		Where(sq.Eq{"scope": scope, "key": key}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("failed to build settings query: %w", err)
	}

	var value string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value for scope/key.
func (r *SettingsRepository) Set(ctx context.Context, scope, key, value string) error {
	query, args, err := r.builder.
		Insert(settingsTable).
		Columns("scope", "key", "value", "updated_at").
		Values(scope, key, value, time.Now().UTC()).
		Suffix("ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build settings upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set setting %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete removes every key of a scope.
func (r *SettingsRepository) Delete(ctx context.Context, scope string) error {
	query, args, err := r.builder.
		Delete(settingsTable).
		Where(sq.Eq{"scope": scope}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build settings delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete settings for %s: %w", scope, err)
	}
	return nil
}

// Scoped returns a key-value view bound to one scope.
func (r *SettingsRepository) Scoped(scope string) *ScopedSettings {
	return &ScopedSettings{repo: r, scope: scope}
}

// ScopedSettings is a key-value store over one scope of a SettingsRepository.
type ScopedSettings struct {
	repo  *SettingsRepository
	scope string
}

func (s *ScopedSettings) Get(ctx context.Context, key string) (string, bool, error) {
	return s.repo.Get(ctx, s.scope, key)
}

func (s *ScopedSettings) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, s.scope, key, value)
}

// MemoryKeyValueStore keeps settings in process memory. Values do not
// survive a restart.
type MemoryKeyValueStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{values: make(map[string]string)}
}

func (m *MemoryKeyValueStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKeyValueStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
