package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"panterabot/internal/bot/sqldb"
)

// Bid statuses.
const (
	BidStatusPlaced = "placed"
	BidStatusFailed = "failed"
)

// BidRecord is one journaled bid attempt.
type BidRecord struct {
	ID          int64     `json:"id"`
	TripID      string    `json:"trip_id"`
	Pickup      string    `json:"pickup"`
	Destination string    `json:"destination"`
	DistanceKM  float64   `json:"distance_km"`
	Price       float64   `json:"price"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BidsRepo stores the bid journal.
type BidsRepo struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

// NewBidsRepo constructs a BidsRepo.
func NewBidsRepo(db *sql.DB, dialect sqldb.Dialect) *BidsRepo {
	return &BidsRepo{db: db, dialect: dialect}
}

// Migrate creates the bot_bids table when it does not exist.
func (r *BidsRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS bot_bids (
		id `+r.dialect.AutoIncrementKey()+`,
		trip_id VARCHAR(128) NOT NULL,
		pickup VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		status VARCHAR(16) NOT NULL,
		error TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate bot_bids: %w", err)
	}
	return nil
}

// Record appends a bid attempt.
func (r *BidsRepo) Record(ctx context.Context, b BidRecord) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO bot_bids
		(trip_id, pickup, destination, distance_km, price, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		b.TripID, b.Pickup, b.Destination, b.DistanceKM, b.Price, b.Status, b.Error, b.CreatedAt.UnixMilli(),
	)
	return err
}

// Recent returns the latest bid attempts, newest first.
func (r *BidsRepo) Recent(ctx context.Context, limit int) ([]BidRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT
		id, trip_id, pickup, destination, distance_km, price, status, error, created_at
		FROM bot_bids ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BidRecord
	for rows.Next() {
		var (
			b         BidRecord
			createdAt int64
		)
		if err := rows.Scan(&b.ID, &b.TripID, &b.Pickup, &b.Destination, &b.DistanceKM, &b.Price, &b.Status, &b.Error, &createdAt); err != nil {
			return nil, err
		}
		b.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Prune deletes attempts recorded before cutoff and returns how many were removed.
func (r *BidsRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM bot_bids WHERE created_at < ?`), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
