package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"degen-autotrader/internal/domain"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
    id            UUID PRIMARY KEY,
    executed_at   TIMESTAMPTZ NOT NULL,
    mode          TEXT NOT NULL,
    side          TEXT NOT NULL,
    asset         TEXT NOT NULL,
    backend       TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    state         TEXT NOT NULL,
    input_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
    output_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
    price         DOUBLE PRECISION NOT NULL DEFAULT 0,
    profit_ratio  DOUBLE PRECISION NOT NULL DEFAULT 0,
    tx_id         TEXT NOT NULL DEFAULT '',
    message       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS trades_executed_at_idx ON trades (executed_at DESC);
CREATE INDEX IF NOT EXISTS trades_asset_idx ON trades (asset, executed_at DESC);
`

type TradeFilter struct {
	Asset  string
	Status domain.SwapStatus
	Limit  int
}

// TradeRepository journals every executed swap.
type TradeRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer}
}

func (r *TradeRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "trade-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, tradesSchema); err != nil {
		return fmt.Errorf("create trades schema: %w", err)
	}
	return nil
}

func (r *TradeRepository) InsertTrade(ctx context.Context, t domain.SwapResult) error {
	_, span := r.tracer.Start(ctx, "trade-repo.insert-trade")
	defer span.End()

	if t.ID == "" {
		return fmt.Errorf("insert trade: missing id")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO trades (id, executed_at, mode, side, asset, backend, status, state,
		                     input_amount, output_amount, price, profit_ratio, tx_id, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID,
		t.ExecutedAt.UTC(),
		string(t.Mode),
		string(t.Side),
		t.Asset,
		t.Backend,
		string(t.Status),
		string(t.State),
		t.InputAmount,
		t.OutputAmount,
		t.Price,
		t.ProfitRatio,
		t.TxID,
		t.Message,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (r *TradeRepository) ListTrades(ctx context.Context, filter TradeFilter) ([]domain.SwapResult, error) {
	_, span := r.tracer.Start(ctx, "trade-repo.list-trades")
	defer span.End()

	args := make([]any, 0, 3)
	var sb strings.Builder
	sb.WriteString(`SELECT id::text, executed_at, mode, side, asset, backend, status, state,
	       input_amount, output_amount, price, profit_ratio, tx_id, message
	FROM trades
	WHERE 1=1`)

	if filter.Asset != "" {
		args = append(args, filter.Asset)
		sb.WriteString(fmt.Sprintf(" AND asset = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		sb.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY executed_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.SwapResult, 0, limit)
	for rows.Next() {
		var t domain.SwapResult
		var mode, side, status, state string
		var executedAt time.Time
		if err := rows.Scan(
			&t.ID, &executedAt, &mode, &side, &t.Asset, &t.Backend, &status, &state,
			&t.InputAmount, &t.OutputAmount, &t.Price, &t.ProfitRatio, &t.TxID, &t.Message,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.ExecutedAt = executedAt.UTC()
		t.Mode = domain.Mode(mode)
		t.Side = domain.Side(side)
		t.Status = domain.SwapStatus(status)
		t.State = domain.SwapState(state)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}
