package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"panterabot/internal/bot/sqldb"
)

// TokensRepo keeps the push registration tokens of the driver's devices.
type TokensRepo struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

// NewTokensRepo constructs a TokensRepo.
func NewTokensRepo(db *sql.DB, dialect sqldb.Dialect) *TokensRepo {
	return &TokensRepo{db: db, dialect: dialect}
}

// Migrate creates the bot_push_tokens table when it does not exist.
func (r *TokensRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS bot_push_tokens (
		token VARCHAR(255) NOT NULL PRIMARY KEY,
		device_id VARCHAR(128) NOT NULL,
		created_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate bot_push_tokens: %w", err)
	}
	return nil
}

// Insert registers a token. Registering a known token is a no-op.
func (r *TokensRepo) Insert(ctx context.Context, deviceID, token string) error {
	query := `INSERT INTO bot_push_tokens (token, device_id, created_at) VALUES (?, ?, ?) ON CONFLICT (token) DO NOTHING`
	if r.dialect == sqldb.DialectMySQL {
		query = `INSERT IGNORE INTO bot_push_tokens (token, device_id, created_at) VALUES (?, ?, ?)`
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), token, deviceID, time.Now().UnixMilli())
	return err
}

// Delete removes a token.
func (r *TokensRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM bot_push_tokens WHERE token = ?`), token)
	return err
}

// Tokens lists all registered tokens.
func (r *TokensRepo) Tokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM bot_push_tokens ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
