// Package store defines the persistence interface for the trading
// ledger. Implementations include PostgreSQL (source of truth) and
// in-memory (for testing and development).
package store

import (
	"context"
	"errors"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
)

// ErrNotFound is returned when a position or balance does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Positions are keyed by
// (userID, symbol, assetType), balances by userID, and transaction
// records are append-only.
type Store interface {
	// --- Positions ---

	// GetPosition retrieves one position, or ErrNotFound.
	GetPosition(ctx context.Context, userID, symbol string, asset model.AssetType) (*model.Position, error)

	// ListPositions returns all of a user's open positions.
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)

	// UpsertPosition creates or replaces a position.
	UpsertPosition(ctx context.Context, p *model.Position) error

	// DeletePosition removes a fully liquidated position.
	DeletePosition(ctx context.Context, userID, symbol string, asset model.AssetType) error

	// --- Balances ---

	// GetBalance retrieves a user's account balance, or ErrNotFound.
	GetBalance(ctx context.Context, userID string) (*model.AccountBalance, error)

	// UpsertBalance creates or replaces an account balance.
	UpsertBalance(ctx context.Context, b *model.AccountBalance) error

	// --- Immutable transaction log ---

	// InsertTransaction appends an immutable trade record.
	InsertTransaction(ctx context.Context, tx *model.TransactionRecord) error

	// ListTransactions returns a user's trade records, newest first.
	// limit <= 0 means no limit.
	ListTransactions(ctx context.Context, userID string, limit int) ([]model.TransactionRecord, error)
}
