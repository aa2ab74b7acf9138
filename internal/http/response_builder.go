// Package http exposes the finboard REST API.
//
// This file implements the Builder Pattern for the JSON envelope every
// endpoint answers with:
//
//	{status, code, data, totalPages, totalItems, message}
//
// and the validation shape {status:"error", code:400, errors:[{msg, param}]}.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/services"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the wire form of every response.
type envelope struct {
	Status     string            `json:"status"`
	Code       int               `json:"code"`
	Data       any               `json:"data,omitempty"`
	TotalPages *int              `json:"totalPages,omitempty"`
	TotalItems *int              `json:"totalItems,omitempty"`
	Message    string            `json:"message,omitempty"`
	Errors     []core.FieldError `json:"errors,omitempty"`
	Token      string            `json:"token,omitempty"`
	UserID     string            `json:"userId,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building envelopes.
type JSONResponseBuilder struct {
	body    envelope
	headers map[string]string
}

// NewJSONResponse creates a success response with status 200.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		body:    envelope{Status: statusSuccess, Code: http.StatusOK},
		headers: make(map[string]string),
	}
}

// Status sets the HTTP status code. Codes of 400 and above mark the
// envelope as an error.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.body.Code = code
	if code >= http.StatusBadRequest {
		b.body.Status = statusError
	}
	return b
}

func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.body.Data = data
	return b
}

// Page sets the pagination totals.
func (b *JSONResponseBuilder) Page(info core.PageInfo) *JSONResponseBuilder {
	pages, items := info.TotalPages, info.TotalItems
	b.body.TotalPages = &pages
	b.body.TotalItems = &items
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.body.Message = msg
	return b
}

// FieldErrors attaches individual field errors.
func (b *JSONResponseBuilder) FieldErrors(errs []core.FieldError) *JSONResponseBuilder {
	b.body.Errors = errs
	return b
}

// Session sets the login fields.
func (b *JSONResponseBuilder) Session(token, userID string) *JSONResponseBuilder {
	b.body.Token = token
	b.body.UserID = userID
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.body.Code)
	_ = json.NewEncoder(w).Encode(b.body)
}

// PageResponse wraps one page of results.
func PageResponse[T any](page core.Page[T]) *JSONResponseBuilder {
	return NewJSONResponse().Data(page.Items).Page(page.Info)
}

// ErrorResponse creates an error envelope with a message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// ValidationResponse creates the 400 shape with field errors.
func ValidationResponse(errs []core.FieldError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusBadRequest).
		Message("Validation failed").
		FieldErrors(errs)
}

// BadRequestError reports one error that is not tied to a field.
func BadRequestError(message string) *JSONResponseBuilder {
	return ValidationResponse([]core.FieldError{{Msg: message}})
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 response.
func MethodNotAllowedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed")
}

// ErrorFor maps a service error to its response. Unknown errors become a
// generic 500 so internals never leak to clients.
func ErrorFor(err error) *JSONResponseBuilder {
	var ve core.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return ValidationResponse(ve)
	case installmentError(err) != nil:
		return ValidationResponse([]core.FieldError{{Param: "currentEmi", Msg: capitalize(installmentError(err))}})
	case errors.Is(err, core.ErrInvalidAmount):
		return ValidationResponse([]core.FieldError{{Param: "amount", Msg: "Invalid amount"}})
	case errors.Is(err, core.ErrInvalidDate):
		return ValidationResponse([]core.FieldError{{Msg: "Invalid date"}})
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return ErrorResponse(http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, core.ErrUnauthorized):
		return ErrorResponse(http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, core.ErrForbidden):
		return ErrorResponse(http.StatusForbidden, "Access denied")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Record not found")
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, "Record already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "Request timed out")
	default:
		return InternalServerError("Internal server error")
	}
}

var installmentErrors = []error{
	core.ErrInstallmentOutOfOrder,
	core.ErrInstallmentOutOfRange,
	core.ErrCommitmentFullyPaid,
	core.ErrCommitmentNotPayable,
}

// installmentError returns the installment sentinel err wraps, if any.
func installmentError(err error) error {
	for _, target := range installmentErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

func capitalize(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	if c := msg[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + msg[1:]
	}
	return msg
}
