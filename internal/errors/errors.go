package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrCode = "BAD_REQUEST"
	ErrCodeConflict     ErrCode = "CONFLICT"
	ErrCodeInvalidRange ErrCode = "INVALID_RANGE"
	ErrCodeInvalidRate  ErrCode = "INVALID_RATE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// NewInvalidRangeError is returned when a custom period ends before it starts
func NewInvalidRangeError(start, end string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidRange,
		Message: fmt.Sprintf("start date %s is after end date %s", start, end),
	}
}

// NewInvalidRateError is returned for negative or non-finite hourly rates
func NewInvalidRateError(rate float64) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidRate,
		Message: fmt.Sprintf("hourly rate must be a finite non-negative number, got %g", rate),
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsInvalidRange checks if the error is an invalid range error
func IsInvalidRange(err error) bool {
	return CodeOf(err) == ErrCodeInvalidRange
}

// IsInvalidRate checks if the error is an invalid rate error
func IsInvalidRate(err error) bool {
	return CodeOf(err) == ErrCodeInvalidRate
}
