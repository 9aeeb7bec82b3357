package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
	TransactionKindTransfer   TransactionKind = "transfer"
)

// TransactionRecord is an immutable fact describing one committed balance
// mutation. Deposits have no source account, withdrawals no destination,
// transfers reference both. Seq is assigned by the database and gives the
// canonical ascending order of the log.
type TransactionRecord struct {
	ID            uuid.UUID
	Seq           int64
	Kind          TransactionKind
	SourceAccount *uuid.UUID
	DestAccount   *uuid.UUID
	Amount        int64
	CreatedAt     time.Time
}
