package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
)

const transactionColumns = `id, seq, kind, source_account_id, dest_account_id, amount, created_at`

// TransactionRepository is the append-only transaction log. Records are
// inserted inside the ledger transaction that mutates the balances they
// describe; there are no update or delete paths.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a record and fills in its database-assigned sequence
// number.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, record *domain.TransactionRecord) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO transactions (id, kind, source_account_id, dest_account_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq`,
		record.ID, record.Kind, record.SourceAccount, record.DestAccount,
		record.Amount, record.CreatedAt,
	).Scan(&record.Seq)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ListByAccount returns every record touching the account, oldest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE source_account_id = $1 OR dest_account_id = $1
		ORDER BY seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return records, nil
}

func scanTransaction(s scanner) (*domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	err := s.Scan(
		&rec.ID, &rec.Seq, &rec.Kind, &rec.SourceAccount, &rec.DestAccount,
		&rec.Amount, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
