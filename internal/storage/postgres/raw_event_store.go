package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prediction-pnl-lab/internal/domain"
	"prediction-pnl-lab/internal/storage"
)

// RawEventStore implements storage.RawEventStore using PostgreSQL.
type RawEventStore struct {
	pool *Pool
}

// NewRawEventStore creates a new RawEventStore.
func NewRawEventStore(pool *Pool) *RawEventStore {
	return &RawEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawEventStore = (*RawEventStore)(nil)

const insertRawEventQuery = `
	INSERT INTO raw_events (
		wallet, seq, token_id, kind, token_qty, currency_amount,
		timestamp, external_id, tx_group_id, role
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert adds a raw event. Returns ErrDuplicateKey if (wallet, seq) exists.
func (s *RawEventStore) Insert(ctx context.Context, e *domain.RawEvent) error {
	_, err := s.pool.Exec(ctx, insertRawEventQuery,
		e.Wallet,
		e.Seq,
		e.TokenID,
		string(e.Kind),
		e.TokenQty,
		e.CurrencyAmount,
		e.Timestamp,
		e.ExternalID,
		e.TxGroupID,
		string(e.Role),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert raw event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *RawEventStore) InsertBulk(ctx context.Context, events []*domain.RawEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		_, err := tx.Exec(ctx, insertRawEventQuery,
			e.Wallet,
			e.Seq,
			e.TokenID,
			string(e.Kind),
			e.TokenQty,
			e.CurrencyAmount,
			e.Timestamp,
			e.ExternalID,
			e.TxGroupID,
			string(e.Role),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert raw event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by (timestamp, seq) ASC.
func (s *RawEventStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.RawEvent, error) {
	query := `
		SELECT wallet, seq, token_id, kind, token_qty, currency_amount,
		       timestamp, external_id, tx_group_id, role
		FROM raw_events
		WHERE wallet = $1
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get raw events by wallet: %w", err)
	}
	defer rows.Close()

	return scanRawEvents(rows)
}

// GetByWalletTimeRange retrieves events for a wallet within [start, end] (inclusive).
func (s *RawEventStore) GetByWalletTimeRange(ctx context.Context, wallet string, start, end int64) ([]*domain.RawEvent, error) {
	query := `
		SELECT wallet, seq, token_id, kind, token_qty, currency_amount,
		       timestamp, external_id, tx_group_id, role
		FROM raw_events
		WHERE wallet = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, start, end)
	if err != nil {
		return nil, fmt.Errorf("get raw events by time range: %w", err)
	}
	defer rows.Close()

	return scanRawEvents(rows)
}

// ListWallets returns all distinct wallets with at least one event, sorted ASC.
func (s *RawEventStore) ListWallets(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT wallet FROM raw_events ORDER BY wallet ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return wallets, nil
}

// scanRawEvents scans multiple rows into a slice of RawEvent.
func scanRawEvents(rows pgx.Rows) ([]*domain.RawEvent, error) {
	var events []*domain.RawEvent

	for rows.Next() {
		var (
			e    domain.RawEvent
			kind string
			role string
		)

		err := rows.Scan(
			&e.Wallet,
			&e.Seq,
			&e.TokenID,
			&kind,
			&e.TokenQty,
			&e.CurrencyAmount,
			&e.Timestamp,
			&e.ExternalID,
			&e.TxGroupID,
			&role,
		)
		if err != nil {
			return nil, fmt.Errorf("scan raw event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)
		e.Role = domain.Role(role)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw event rows: %w", err)
	}

	return events, nil
}
