package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors, mapped to HTTP statuses by the api package
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyPurchased    = errors.New("note already purchased")
	ErrOwnNote             = errors.New("cannot buy your own note")
	ErrNotPurchased        = errors.New("note not purchased")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoWithdrawalsLeft   = errors.New("no withdrawal requests left")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPaymentGateway      = errors.New("payment gateway unavailable")
	ErrStorage             = errors.New("file storage unavailable")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound maps gorm's missing-row error to ErrNotFound and wraps anything else
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
