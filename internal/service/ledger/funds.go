package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

// Deposit credits the caller's account and appends a deposit record.
// Returns the record and the new balance.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.TransactionRecord, int64, error) {
	if amount <= 0 {
		return nil, 0, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("Deposit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("Deposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.accounts.GetForUpdate(ctx, tx, acct.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("Deposit: %w", err)
	}

	record := &domain.TransactionRecord{
		ID:          uuid.New(),
		Kind:        domain.TransactionKindDeposit,
		DestAccount: &locked.ID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.transactions.Create(ctx, tx, record); err != nil {
		return nil, 0, fmt.Errorf("Deposit: create record: %w", err)
	}

	newBalance := locked.Balance + amount
	if err := s.accounts.UpdateBalance(ctx, tx, locked.ID, newBalance, locked.Version+1); err != nil {
		return nil, 0, fmt.Errorf("Deposit: update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("Deposit: commit: %w", err)
	}

	s.publishCommitted(ctx, record)

	logging.FromContext(ctx).Info("deposit committed",
		"transaction_id", record.ID,
		"account_id", locked.ID,
		"amount", amount,
		"balance", newBalance,
	)

	return record, newBalance, nil
}

// Withdraw debits the caller's account and appends a withdrawal record.
// The balance check runs on the locked row, so the balance can never go
// negative under concurrent withdrawals.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (*domain.TransactionRecord, int64, error) {
	if amount <= 0 {
		return nil, 0, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	acct, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("Withdraw: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("Withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.accounts.GetForUpdate(ctx, tx, acct.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("Withdraw: %w", err)
	}

	if locked.Balance < amount {
		return nil, 0, fmt.Errorf("Withdraw: %w", domain.ErrInsufficientFunds)
	}

	record := &domain.TransactionRecord{
		ID:            uuid.New(),
		Kind:          domain.TransactionKindWithdrawal,
		SourceAccount: &locked.ID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.transactions.Create(ctx, tx, record); err != nil {
		return nil, 0, fmt.Errorf("Withdraw: create record: %w", err)
	}

	newBalance := locked.Balance - amount
	if err := s.accounts.UpdateBalance(ctx, tx, locked.ID, newBalance, locked.Version+1); err != nil {
		return nil, 0, fmt.Errorf("Withdraw: update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("Withdraw: commit: %w", err)
	}

	s.publishCommitted(ctx, record)

	logging.FromContext(ctx).Info("withdrawal committed",
		"transaction_id", record.ID,
		"account_id", locked.ID,
		"amount", amount,
		"balance", newBalance,
	)

	return record, newBalance, nil
}
