package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/sqldb"
	"panterabot/internal/bot/timeutil"
)

// SQL keeps settings blobs in a bot_settings table, one row per profile.
type SQL struct {
	db      *sql.DB
	dialect sqldb.Dialect
	profile string
}

// NewSQL creates a SQL-backed store for a profile.
func NewSQL(db *sql.DB, dialect sqldb.Dialect, profile string) *SQL {
	return &SQL{db: db, dialect: dialect, profile: Key(profile)}
}

// Migrate creates the bot_settings table when it does not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS bot_settings (
		profile VARCHAR(128) NOT NULL PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate bot_settings: %w", err)
	}
	return nil
}

// Load reads the stored settings.
func (s *SQL) Load(ctx context.Context) (settings.Config, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT payload FROM bot_settings WHERE profile = ?`), s.profile).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Config{}, ErrNotFound
	}
	if err != nil {
		return settings.Config{}, err
	}
	return decode([]byte(payload))
}

// Save upserts the settings row.
func (s *SQL) Save(ctx context.Context, cfg settings.Config) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(s.upsertQuery()), s.profile, string(data), timeutil.Now().UnixMilli())
	return err
}

func (s *SQL) upsertQuery() string {
	if s.dialect == sqldb.DialectMySQL {
		return `INSERT INTO bot_settings (profile, payload, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`
	}
	return `INSERT INTO bot_settings (profile, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
}
