package domain

import (
	"errors"
	"fmt"
)

// Domain rejections. None of them are retryable.
var (
	ErrAlreadyInitialized = errors.New("catalog already initialized")
	ErrFieldTooLong       = errors.New("field too long")
	ErrEventNotActive     = errors.New("event is not active")
	ErrEventFull          = errors.New("event is full")
	ErrDuplicatePurchase  = errors.New("ticket already purchased")
	ErrNotTicketOwner     = errors.New("not ticket owner")
	ErrTicketAlreadyUsed  = errors.New("ticket already used")
	ErrCatalogExhausted   = errors.New("catalog event counter exhausted")
)

// Rejections raised while resolving records or signers for an operation.
var (
	ErrNotInitialized    = errors.New("catalog not initialized")
	ErrEventNotFound     = errors.New("event not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrSignatureRequired = errors.New("signature required")
	ErrMalformedRecord   = errors.New("malformed record")
)

type FieldTooLongError struct {
	Field  string
	Length int
	Max    int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("%s is %d bytes, max %d", e.Field, e.Length, e.Max)
}

func (e *FieldTooLongError) Unwrap() error {
	return ErrFieldTooLong
}
