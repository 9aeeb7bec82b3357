package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

type userRepo interface {
	Create(ctx context.Context, tx *sql.Tx, user *domain.User) error
}

type accountRepo interface {
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
}

// RegistrationService creates a user and their account as one unit. Every
// new account starts with a fixed balance, matching the product's demo
// behavior.
type RegistrationService struct {
	users           userRepo
	accounts        accountRepo
	db              *sql.DB
	startingBalance int64
}

func NewRegistrationService(users userRepo, accounts accountRepo, db *sql.DB, startingBalance int64) *RegistrationService {
	return &RegistrationService{
		users:           users,
		accounts:        accounts,
		db:              db,
		startingBalance: startingBalance,
	}
}

func (s *RegistrationService) Register(ctx context.Context, username, password string) (*domain.User, *domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	account := &domain.Account{
		ID:        uuid.New(),
		UserID:    user.ID,
		Balance:   s.startingBalance,
		Version:   1,
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}
	if err := s.accounts.Create(ctx, tx, account); err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("Register: commit: %w", err)
	}

	logging.FromContext(ctx).Info("user registered",
		"user_id", user.ID,
		"account_id", account.ID,
		"starting_balance", account.Balance,
	)

	return user, account, nil
}
