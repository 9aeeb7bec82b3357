package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("username already taken")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSelfTransfer      = errors.New("cannot transfer to own account")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrInvalidRequest    = errors.New("invalid request")
)
