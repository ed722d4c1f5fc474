package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// OrderJournal implements domain.OrderJournal using PostgreSQL.
type OrderJournal struct {
	pool *pgxpool.Pool
}

var _ domain.OrderJournal = (*OrderJournal)(nil)

// NewOrderJournal creates an OrderJournal backed by the given connection pool
// and ensures its table exists.
func NewOrderJournal(ctx context.Context, pool *pgxpool.Pool) (*OrderJournal, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS order_commands (
			id             TEXT PRIMARY KEY,
			exchange       TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			kind           TEXT NOT NULL,
			side           TEXT NOT NULL DEFAULT '',
			size           DOUBLE PRECISION NOT NULL DEFAULT 0,
			price          DOUBLE PRECISION NOT NULL DEFAULT 0,
			venue_order_id TEXT NOT NULL DEFAULT '',
			accepted       BOOLEAN NOT NULL,
			error          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS order_commands_created_at_idx
			ON order_commands (created_at DESC);`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: create order_commands table: %w", err)
	}
	return &OrderJournal{pool: pool}, nil
}

// Record inserts one submitted command.
func (j *OrderJournal) Record(ctx context.Context, cmd domain.OrderCommand) error {
	const query = `
		INSERT INTO order_commands (
			id, exchange, symbol, kind, side, size, price,
			venue_order_id, accepted, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := j.pool.Exec(ctx, query,
		cmd.ID, cmd.Exchange, cmd.Symbol, string(cmd.Kind), string(cmd.Side),
		cmd.Size, cmd.Price, cmd.VenueOrderID, cmd.Accepted, cmd.Error,
		cmd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order command %s: %w", cmd.ID, err)
	}
	return nil
}

// Recent returns the newest commands, newest first.
func (j *OrderJournal) Recent(ctx context.Context, limit int) ([]domain.OrderCommand, error) {
	const query = `
		SELECT id, exchange, symbol, kind, side, size, price,
			venue_order_id, accepted, error, created_at
		FROM order_commands
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := j.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order commands: %w", err)
	}
	defer rows.Close()

	var cmds []domain.OrderCommand
	for rows.Next() {
		var cmd domain.OrderCommand
		var kind, side string
		if err := rows.Scan(
			&cmd.ID, &cmd.Exchange, &cmd.Symbol, &kind, &side,
			&cmd.Size, &cmd.Price, &cmd.VenueOrderID, &cmd.Accepted,
			&cmd.Error, &cmd.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan order command: %w", err)
		}
		cmd.Kind = domain.OrderCommandKind(kind)
		cmd.Side = domain.Side(side)
		cmds = append(cmds, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate order commands: %w", err)
	}
	return cmds, nil
}
