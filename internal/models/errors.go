package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-booking/internal/clock"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrVehicleOnRoute  = errors.New("vehicle is already on route")
	ErrDuplicatePlate  = errors.New("license plate number already exists")
)

// ValidationError reports missing or invalid input. No state was changed.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError is returned when reserving a vehicle that is already on route.
type ConflictError struct {
	LicensePlate  string
	AvailableFrom time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("vehicle %s is already on route until %s", e.LicensePlate, clock.Format(e.AvailableFrom))
}

func (e *ConflictError) Unwrap() error { return ErrVehicleOnRoute }
