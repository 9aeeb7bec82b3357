// Package ledger implements the account ledger core: deposits, withdrawals
// and transfers that mutate balances and append transaction records as a
// single atomic unit.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, record *domain.TransactionRecord) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionRecord, error)
}

type userRepo interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, record *domain.TransactionRecord) error
}

type Service struct {
	accounts     accountRepo
	transactions transactionRepo
	users        userRepo
	events       eventPublisher
	db           *sql.DB
}

func NewService(
	accounts accountRepo,
	transactions transactionRepo,
	users userRepo,
	events eventPublisher,
	db *sql.DB,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		users:        users,
		events:       events,
		db:           db,
	}
}

// Balance reports the caller's current balance in minor units.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("Balance: %w", err)
	}
	return acct.Balance, nil
}

// Transactions returns every record where the caller's account is source or
// destination, oldest first. Repeated calls with no intervening mutation
// return identical results.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID) ([]domain.TransactionRecord, error) {
	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}

	records, err := s.transactions.ListByAccount(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return records, nil
}

// publishCommitted emits the post-commit event. The mutation has already
// committed, so a publish failure is logged and never surfaced to the
// caller.
func (s *Service) publishCommitted(ctx context.Context, record *domain.TransactionRecord) {
	if err := s.events.Publish(ctx, record); err != nil {
		logging.FromContext(ctx).Warn("failed to publish transaction event",
			"transaction_id", record.ID,
			"kind", record.Kind,
			"error", err,
		)
	}
}
