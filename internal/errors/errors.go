// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData     = errors.New("insufficient data")
	ErrBenchmarkUnavailable = errors.New("benchmark unavailable")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrDataNotFound         = errors.New("data not found")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrProviderUnavailable  = errors.New("data provider unavailable")
	ErrUnknownChart         = errors.New("unknown chart view")
	ErrUnknownAnalyzer      = errors.New("unknown analyzer")
	ErrInputValidation      = errors.New("input validation failed")
	ErrZeroBase             = errors.New("zero base value")
)

// InsufficientDataError reports that a derived metric could not be computed
// because too few observations were available.
type InsufficientDataError struct {
	Metric string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: have %d, need %d", e.Metric, e.Have, e.Need)
}

// Is matches ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(metric string, have, need int) *InsufficientDataError {
	return &InsufficientDataError{
		Metric: metric,
		Have:   have,
		Need:   need,
	}
}

// ProviderError represents an error from a market data provider.
type ProviderError struct {
	Provider string
	Symbol   string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s] %s: %s: %v", e.Provider, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error [%s] %s: %s", e.Provider, e.Symbol, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, symbol, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match ErrInputValidation.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsReportable reports whether err is an explanatory condition the caller
// should display as text rather than as a failure.
func IsReportable(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrBenchmarkUnavailable) ||
		errors.Is(err, ErrZeroBase)
}
