package models

import "errors"

// Domain failures returned by the services and the storage boundary.
// Callers match them with errors.Is.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrMissingSourceSelection = errors.New("payment source not selected")
	ErrSourceNotFound         = errors.New("payment source not found")
	ErrExpenseNotFound        = errors.New("expense not found")
	ErrObligationNotFound     = errors.New("obligation not found")
	ErrTransactionFailed      = errors.New("transaction failed")
	ErrInvalidDraft           = errors.New("invalid input")
	ErrUnrecognizedValue      = errors.New("unrecognized value")

	ErrPINNotSet              = errors.New("savings PIN not set")
	ErrPINAlreadySet          = errors.New("savings PIN already set")
	ErrIncorrectPIN           = errors.New("incorrect savings PIN")
	ErrSavingsLocked          = errors.New("savings locked after repeated wrong PINs")
	ErrSavingsAccountNotFound = errors.New("savings account not found")
	ErrNoteNotFound           = errors.New("note not found")
)

var domainErrors = []error{
	ErrInsufficientFunds,
	ErrMissingSourceSelection,
	ErrSourceNotFound,
	ErrExpenseNotFound,
	ErrObligationNotFound,
	ErrInvalidDraft,
	ErrPINNotSet,
	ErrPINAlreadySet,
	ErrIncorrectPIN,
	ErrSavingsLocked,
	ErrSavingsAccountNotFound,
	ErrNoteNotFound,
}

// IsDomainError reports whether err is an expected business failure rather
// than a storage or infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
