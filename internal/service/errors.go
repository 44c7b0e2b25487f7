package service

import (
	"errors"

	"ajosave/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrConflict          = store.ErrConflict
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPlanNotMatured    = errors.New("plan has not matured")
	ErrPlanClosed        = errors.New("plan is closed")
	ErrPlanEmpty         = errors.New("plan has no balance")
	ErrLoanOpen          = errors.New("an open loan already exists")
	ErrLoanNotActive     = errors.New("loan is not disbursed")
	ErrKYCRequired       = errors.New("kyc approval required")
	ErrKYCApproved       = errors.New("kyc already approved")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrSuspended         = errors.New("account suspended")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
)
