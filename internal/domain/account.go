package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account holds a single balance in minor units. Balances are only
// mutated by the ledger service inside a database transaction and can
// never go negative.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Balance   int64
	Version   int64
	CreatedAt time.Time
}
