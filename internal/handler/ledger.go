package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/custodial-ledger/internal/auth"
	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

type ledgerService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.TransactionRecord, int64, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (*domain.TransactionRecord, int64, error)
	Transfer(ctx context.Context, userID uuid.UUID, toUsername string, amount int64) (*domain.TransactionRecord, error)
	Transactions(ctx context.Context, userID uuid.UUID) ([]domain.TransactionRecord, error)
}

type LedgerHandler struct {
	ledger ledgerService
}

func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type transferRequest struct {
	ToUsername string `json:"to_username"`
	Amount     string `json:"amount"`
}

func (r transferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ToUsername == "" {
		errs = append(errs, FieldError{Field: "to_username", Message: "required"})
	}
	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}
	return errs
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

type mutationResponse struct {
	Balance     string         `json:"balance"`
	Transaction transactionDTO `json:"transaction"`
}

type transactionDTO struct {
	ID            uuid.UUID  `json:"id"`
	Seq           int64      `json:"seq"`
	Kind          string     `json:"kind"`
	SourceAccount *uuid.UUID `json:"source_account,omitempty"`
	DestAccount   *uuid.UUID `json:"dest_account,omitempty"`
	Amount        string     `json:"amount"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toTransactionDTO(rec *domain.TransactionRecord) transactionDTO {
	return transactionDTO{
		ID:            rec.ID,
		Seq:           rec.Seq,
		Kind:          string(rec.Kind),
		SourceAccount: rec.SourceAccount,
		DestAccount:   rec.DestAccount,
		Amount:        formatAmount(rec.Amount),
		CreatedAt:     rec.CreatedAt,
	}
}

func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceResponse{Balance: formatAmount(balance)})
}

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutateFunds(w, r, h.ledger.Deposit)
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutateFunds(w, r, h.ledger.Withdraw)
}

func (h *LedgerHandler) mutateFunds(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID uuid.UUID, amount int64) (*domain.TransactionRecord, int64, error),
) {
	userID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	rec, balance, err := op(r.Context(), userID, amount)
	if err != nil {
		logging.FromContext(r.Context()).Error("funds mutation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, mutationResponse{
		Balance:     formatAmount(balance),
		Transaction: toTransactionDTO(rec),
	})
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	rec, err := h.ledger.Transfer(r.Context(), userID, req.ToUsername, amount)
	if err != nil {
		logging.FromContext(r.Context()).Error("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(rec))
}

func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	records, err := h.ledger.Transactions(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(records))
	for i := range records {
		dtos[i] = toTransactionDTO(&records[i])
	}

	RespondSuccess(w, http.StatusOK, dtos)
}
