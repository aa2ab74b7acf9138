package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDate           = errors.New("invalid date")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrConflict              = errors.New("conflict")
	ErrValidation            = errors.New("validation failed")
	ErrInstallmentOutOfOrder = errors.New("installment must be greater than the previous one")
	ErrInstallmentOutOfRange = errors.New("installment exceeds total installments")
	ErrCommitmentFullyPaid   = errors.New("all installments already paid")
	ErrCommitmentNotPayable  = errors.New("commitment is canceled")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Param string `json:"param,omitempty"`
	Msg   string `json:"msg"`
}

// ValidationErrors collects every invalid field of an input. It matches
// ErrValidation with errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		if fe.Param != "" {
			msgs[i] = fe.Param + ": " + fe.Msg
		} else {
			msgs[i] = fe.Msg
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

// Add appends a field error.
func (v *ValidationErrors) Add(param, msg string) {
	*v = append(*v, FieldError{Param: param, Msg: msg})
}

// Err returns nil when no field error was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
