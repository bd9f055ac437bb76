package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func NewIndexedValidationError(index int, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("Validation error at row %d: %s", index, msg)}
}

var (
	ErrInvalidTransactionType = NewValidationError("Type must be 'income' or 'expense'")
	ErrInvalidAmount          = NewValidationError("Amount must be a positive number")
	ErrUnsupportedFileFormat  = NewValidationError("Unsupported file format, expected .csv or .xlsx")
	ErrFileTooLarge           = NewValidationError("File exceeds the maximum import size")
	ErrEmptyFile              = NewValidationError("File contains no data rows")
)

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}

// DuplicateError marks an imported row whose fingerprint is already known for the owner.
type DuplicateError struct {
	Hash       string
	ExternalID string
}

func (e *DuplicateError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("duplicate transaction (external id %s)", e.ExternalID)
	}
	return fmt.Sprintf("duplicate transaction (hash %s)", e.Hash)
}

func IsDuplicateError(err error) bool {
	var duplicateError *DuplicateError
	return errors.As(err, &duplicateError)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func IsNotFoundError(err error) bool {
	var notFoundError *NotFoundError
	return errors.As(err, &notFoundError)
}

// PersistenceError wraps a storage failure. The operation it belongs to is rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var persistenceError *PersistenceError
	if errors.As(err, &persistenceError) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistenceError(err error) bool {
	var persistenceError *PersistenceError
	return errors.As(err, &persistenceError)
}

type NotificationError struct {
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("could not notify %s: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func IsNotificationError(err error) bool {
	var notificationError *NotificationError
	return errors.As(err, &notificationError)
}
