package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateIdentity   = errors.New("username or email already registered")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrStockConflict       = errors.New("stock changed")
	ErrEmptyUpload         = errors.New("no file selected")
	ErrInvalidFilename     = errors.New("invalid file name")
	ErrExternalPayment     = errors.New("payment provider error")
	ErrPermissionDenied    = errors.New("permission denied")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound translates gorm's missing-record error and passes everything else through.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
