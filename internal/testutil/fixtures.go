package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
)

const TestPassword = "password123"

// SeedUser inserts a user with a bcrypt-hashed TestPassword and an account
// holding the given balance.
func SeedUser(t *testing.T, db *sql.DB, username string, balance int64) (*domain.User, *domain.Account) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	a := &domain.Account{
		ID:        uuid.New(),
		UserID:    u.ID,
		Balance:   balance,
		Version:   1,
		CreatedAt: now,
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}

	_, err = db.Exec(
		`INSERT INTO accounts (id, user_id, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.UserID, a.Balance, a.Version, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account for %s: %v", username, err)
	}

	return u, a
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance for %s: %v", accountID, err)
	}
	return balance
}

func SumBalances(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	var sum int64
	err := db.QueryRow(`SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&sum)
	if err != nil {
		t.Fatalf("sum balances: %v", err)
	}
	return sum
}

func CountTransactions(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE source_account_id = $1 OR dest_account_id = $1`,
		accountID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", accountID, err)
	}
	return count
}
