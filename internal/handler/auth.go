package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/custodial-ledger/internal/auth"
	"github.com/josh-kwaku/custodial-ledger/internal/domain"
	"github.com/josh-kwaku/custodial-ledger/internal/logging"
)

type registrar interface {
	Register(ctx context.Context, username, password string) (*domain.User, *domain.Account, error)
}

type userReader interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type AuthHandler struct {
	registrations registrar
	users         userReader
	jwtSecret     string
	jwtExpiry     time.Duration
}

func NewAuthHandler(registrations registrar, users userReader, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		registrations: registrations,
		users:         users,
		jwtSecret:     jwtSecret,
		jwtExpiry:     jwtExpiry,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r credentialsRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type userDTO struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type registerResponse struct {
	User    userDTO `json:"user"`
	Balance string  `json:"balance"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, account, err := h.registrations.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to register user", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, registerResponse{
		User:    userDTO{ID: user.ID, Username: user.Username},
		Balance: formatAmount(account.Balance),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userDTO{ID: user.ID, Username: user.Username},
	})
}
