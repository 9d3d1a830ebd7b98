package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeIdentity          Code = "IDENTITY_REQUIRED"
	CodeEmptyCart         Code = "EMPTY_CART"
	CodeProductNotFound   Code = "PRODUCT_NOT_FOUND"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidPromo      Code = "INVALID_PROMO"
)

// Metadata is how a code surfaces over HTTP. PublicMessage replaces the
// caller's message whenever the status is 5xx.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final       = false
	retryable   = true
	noDetails   = false
	showDetails = true
)

var metadataByCode = map[Code]Metadata{
	// generic
	CodeValidation:    {http.StatusBadRequest, final, "validation failed", showDetails},
	CodeUnauthorized:  {http.StatusUnauthorized, final, "authentication required", noDetails},
	CodeForbidden:     {http.StatusForbidden, final, "access denied", noDetails},
	CodeNotFound:      {http.StatusNotFound, final, "resource not found", noDetails},
	CodeConflict:      {http.StatusConflict, final, "conflict detected", noDetails},
	CodeStateConflict: {http.StatusUnprocessableEntity, final, "state transition disallowed", showDetails},
	CodeIdempotency:   {http.StatusConflict, final, "idempotency key reused", showDetails},
	CodeRateLimit:     {http.StatusTooManyRequests, final, "rate limit exceeded", noDetails},
	CodeInternal:      {http.StatusInternalServerError, retryable, "internal server error", noDetails},
	CodeDependency:    {http.StatusServiceUnavailable, retryable, "dependency unavailable", showDetails},

	// cart and checkout
	CodeIdentity:          {http.StatusUnauthorized, final, "customer identity required", noDetails},
	CodeEmptyCart:         {http.StatusUnprocessableEntity, final, "cart is empty", noDetails},
	CodeProductNotFound:   {http.StatusNotFound, final, "product not found", showDetails},
	CodeOutOfStock:        {http.StatusConflict, final, "product is out of stock", showDetails},
	CodeInsufficientStock: {http.StatusConflict, final, "insufficient stock", showDetails},
	CodeInvalidPromo:      {http.StatusUnprocessableEntity, final, "promo code rejected", showDetails},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Error includes the cause so logs keep the full story; clients only ever see
// Message.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Retryable reports whether a caller may retry the failed operation. Untyped
// errors are treated as infrastructure faults.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.Code()).Retryable
}
