package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

// Transfer moves amount from the caller's account to the recipient's,
// debiting and crediting atomically and appending a single transfer record
// referencing both accounts.
func (s *Service) Transfer(ctx context.Context, userID uuid.UUID, toUsername string, amount int64) (*domain.TransactionRecord, error) {
	source, dest, err := s.resolveTransferAccounts(ctx, userID, toUsername)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if err := validateTransfer(amount, source, dest); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	record, err := s.executeTransfer(ctx, source.ID, dest.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	s.publishCommitted(ctx, record)

	logging.FromContext(ctx).Info("transfer committed",
		"transaction_id", record.ID,
		"source_account", source.ID,
		"dest_account", dest.ID,
		"amount", amount,
	)

	return record, nil
}

func (s *Service) resolveTransferAccounts(ctx context.Context, userID uuid.UUID, toUsername string) (*domain.Account, *domain.Account, error) {
	recipient, err := s.users.GetByUsername(ctx, toUsername)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", domain.ErrRecipientNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	dest, err := s.accounts.GetByUserID(ctx, recipient.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", domain.ErrRecipientNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	source, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	return source, dest, nil
}

func validateTransfer(amount int64, source, dest *domain.Account) error {
	if amount <= 0 {
		return fmt.Errorf("validateTransfer: %w", domain.ErrInvalidAmount)
	}
	if source.ID == dest.ID {
		return fmt.Errorf("validateTransfer: %w", domain.ErrSelfTransfer)
	}
	return nil
}

func (s *Service) executeTransfer(ctx context.Context, sourceID, destID uuid.UUID, amount int64) (*domain.TransactionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockAccountsInOrder(ctx, tx, sourceID, destID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	source, dest := locked[sourceID], locked[destID]

	if source.Balance < amount {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrInsufficientFunds)
	}

	record := &domain.TransactionRecord{
		ID:            uuid.New(),
		Kind:          domain.TransactionKindTransfer,
		SourceAccount: &source.ID,
		DestAccount:   &dest.ID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.transactions.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("executeTransfer: create record: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, source.ID, source.Balance-amount, source.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update source: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, dest.ID, dest.Balance+amount, dest.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update dest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	return record, nil
}

// lockAccountsInOrder takes the row locks in ascending UUID order so two
// opposite-direction transfers cannot deadlock.
func (s *Service) lockAccountsInOrder(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := s.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}
