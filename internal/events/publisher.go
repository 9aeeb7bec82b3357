package events

import (
	"context"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
)

// Publisher emits a notification for every committed transaction record.
// Publishing happens after commit and is best-effort: the ledger operation
// has already succeeded by the time Publish runs.
type Publisher interface {
	Publish(ctx context.Context, record *domain.TransactionRecord) error
}

// Noop is installed when no brokers are configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, record *domain.TransactionRecord) error {
	return nil
}
