package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetPosition(ctx context.Context, userID, symbol string, asset model.AssetType) (*model.Position, error) {
	var p model.Position
	var qty, avg, invested string

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, symbol, asset_type,
		        quantity::TEXT, avg_price::TEXT, total_invested::TEXT,
		        last_updated
		 FROM positions
		 WHERE user_id = $1 AND symbol = $2 AND asset_type = $3`,
		userID, symbol, asset).
		Scan(&p.UserID, &p.Symbol, &p.AssetType, &qty, &avg, &invested, &p.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", userID, symbol, err)
	}

	p.Quantity, _ = decimal.NewFromString(qty)
	p.AvgPrice, _ = decimal.NewFromString(avg)
	p.TotalInvested, _ = decimal.NewFromString(invested)

	return &p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, symbol, asset_type,
		        quantity::TEXT, avg_price::TEXT, total_invested::TEXT,
		        last_updated
		 FROM positions WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var qty, avg, invested string
		if err := rows.Scan(&p.UserID, &p.Symbol, &p.AssetType,
			&qty, &avg, &invested, &p.LastUpdated); err != nil {
			return nil, err
		}
		p.Quantity, _ = decimal.NewFromString(qty)
		p.AvgPrice, _ = decimal.NewFromString(avg)
		p.TotalInvested, _ = decimal.NewFromString(invested)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) UpsertPosition(ctx context.Context, p *model.Position) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (user_id, symbol, asset_type, quantity, avg_price, total_invested, last_updated)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (user_id, symbol, asset_type) DO UPDATE
		 SET quantity = EXCLUDED.quantity,
		     avg_price = EXCLUDED.avg_price,
		     total_invested = EXCLUDED.total_invested,
		     last_updated = EXCLUDED.last_updated`,
		p.UserID, p.Symbol, p.AssetType,
		p.Quantity.String(), p.AvgPrice.String(), p.TotalInvested.String(),
		p.LastUpdated,
	)
	return err
}

func (s *PostgresStore) DeletePosition(ctx context.Context, userID, symbol string, asset model.AssetType) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM positions WHERE user_id = $1 AND symbol = $2 AND asset_type = $3`,
		userID, symbol, asset)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (*model.AccountBalance, error) {
	var b model.AccountBalance
	var cash, winRate, totalPnL string

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, cash_balance::TEXT, total_trades, successful_trades,
		        win_rate::TEXT, total_pnl::TEXT, last_trade_date
		 FROM account_balances WHERE user_id = $1`, userID).
		Scan(&b.UserID, &cash, &b.TotalTrades, &b.SuccessfulTrades,
			&winRate, &totalPnL, &b.LastTradeDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", userID, err)
	}

	b.CashBalance, _ = decimal.NewFromString(cash)
	b.WinRate, _ = decimal.NewFromString(winRate)
	b.TotalPnL, _ = decimal.NewFromString(totalPnL)

	return &b, nil
}

func (s *PostgresStore) UpsertBalance(ctx context.Context, b *model.AccountBalance) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account_balances (user_id, cash_balance, total_trades, successful_trades, win_rate, total_pnl, last_trade_date)
		 VALUES ($1, $2::NUMERIC, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (user_id) DO UPDATE
		 SET cash_balance = EXCLUDED.cash_balance,
		     total_trades = EXCLUDED.total_trades,
		     successful_trades = EXCLUDED.successful_trades,
		     win_rate = EXCLUDED.win_rate,
		     total_pnl = EXCLUDED.total_pnl,
		     last_trade_date = EXCLUDED.last_trade_date`,
		b.UserID, b.CashBalance.String(), b.TotalTrades, b.SuccessfulTrades,
		b.WinRate.String(), b.TotalPnL.String(), b.LastTradeDate,
	)
	return err
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, tx *model.TransactionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, user_id, symbol, asset_type, action, quantity, price, total, fee, timestamp, status)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10, $11)`,
		tx.ID, tx.UserID, tx.Symbol, tx.AssetType, tx.Action,
		tx.Quantity.String(), tx.Price.String(), tx.Total.String(), tx.Fee.String(),
		tx.Timestamp, tx.Status,
	)
	return err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, limit int) ([]model.TransactionRecord, error) {
	q := `SELECT id, user_id, symbol, asset_type, action,
	             quantity::TEXT, price::TEXT, total::TEXT, fee::TEXT,
	             timestamp, status
	      FROM transactions WHERE user_id = $1 ORDER BY timestamp DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.TransactionRecord
	for rows.Next() {
		var r model.TransactionRecord
		var qty, price, total, fee string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Symbol, &r.AssetType, &r.Action,
			&qty, &price, &total, &fee, &r.Timestamp, &r.Status); err != nil {
			return nil, err
		}
		r.Quantity, _ = decimal.NewFromString(qty)
		r.Price, _ = decimal.NewFromString(price)
		r.Total, _ = decimal.NewFromString(total)
		r.Fee, _ = decimal.NewFromString(fee)
		records = append(records, r)
	}
	return records, rows.Err()
}
