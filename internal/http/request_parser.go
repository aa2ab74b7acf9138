// Package http exposes the finboard REST API.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON, url-encoded or multipart; handlers read fields through
// one parser and collect every malformed field before answering.

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finboard/internal/core"
)

const (
	maxJSONBody     = 1 << 20
	maxMultipartMem = 10 << 20
)

// ParsePageRequest reads page and limit from the query string. Missing or
// invalid values fall back to the first page of the default size.
func ParsePageRequest(query url.Values) core.PageRequest {
	page, _ := strconv.Atoi(strings.TrimSpace(query.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	return core.NewPageRequest(page, limit)
}

// ParseDateRange reads startDate and endDate from the query string.
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var (
		r    core.DateRange
		errs core.ValidationErrors
	)
	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			errs.Add("startDate", "Start date must be YYYY-MM-DD")
		}
		r.Start = d
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			errs.Add("endDate", "End date must be YYYY-MM-DD")
		}
		r.End = d
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start.Time) {
		errs.Add("endDate", "End date must not be before start date")
	}
	return r, errs.Err()
}

// ParseQueryInt reads an optional integer query parameter.
func ParseQueryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.ValidationErrors{{Param: key, Msg: "Must be a whole number"}}
	}
	return n, nil
}

// RequestBodyParser reads a request body once and exposes its fields
// regardless of encoding. Conversion problems are collected and reported
// together by Err.
type RequestBodyParser struct {
	r           *http.Request
	contentType string
	jsonData    map[string]json.RawMessage
	formData    url.Values
	files       map[string][]*multipart.FileHeader
	parsed      bool
	err         error
	errs        core.ValidationErrors
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return &RequestBodyParser{r: r, contentType: mediaType}
}

// Parse decodes the body. Malformed bodies are a validation error.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	switch p.contentType {
	case "multipart/form-data":
		if err := p.r.ParseMultipartForm(maxMultipartMem); err != nil {
			p.err = core.ValidationErrors{{Msg: "Invalid multipart body"}}
			return p.err
		}
		p.formData = p.r.MultipartForm.Value
		p.files = p.r.MultipartForm.File
	case "application/x-www-form-urlencoded":
		if err := p.r.ParseForm(); err != nil {
			p.err = core.ValidationErrors{{Msg: "Invalid form body"}}
			return p.err
		}
		p.formData = p.r.PostForm
	default:
		body, err := io.ReadAll(io.LimitReader(p.r.Body, maxJSONBody))
		if err != nil {
			p.err = err
			return err
		}
		body = bytes.TrimSpace(body)
		p.jsonData = make(map[string]json.RawMessage)
		if len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, &p.jsonData); err != nil {
			p.err = core.ValidationErrors{{Msg: "Request body must be a JSON object"}}
			return p.err
		}
	}
	return nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Has reports whether the field was sent, even if empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a trimmed, sanitized string value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if raw, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(raw))
		}
		return ""
	}
	if p.formData != nil {
		if vals := p.formData[key]; len(vals) > 0 {
			return sanitizeInput(vals[0])
		}
	}
	return ""
}

// Int returns an integer field; an absent or empty field is 0.
func (p *RequestBodyParser) Int(key string) int {
	v := p.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if f, ferr := strconv.ParseFloat(v, 64); ferr == nil && f == float64(int(f)) {
			return int(f)
		}
		p.errs.Add(key, "Must be a whole number")
		return 0
	}
	return n
}

// Int64 returns a 64-bit integer field; an absent or empty field is 0.
func (p *RequestBodyParser) Int64(key string) int64 {
	v := p.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs.Add(key, "Must be a whole number")
		return 0
	}
	return n
}

// Bool returns a boolean field; anything unparseable is false.
func (p *RequestBodyParser) Bool(key string) bool {
	b, _ := strconv.ParseBool(p.Get(key))
	return b
}

// Amount returns a money field. JSON accepts all decimal wire shapes, form
// values go through the user-input parser.
func (p *RequestBodyParser) Amount(key string) core.Decimal {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return core.Zero
		}
		d, err := core.ParseDecimalJSON(raw)
		if err != nil {
			p.errs.Add(key, "Must be a valid amount")
			return core.Zero
		}
		return d
	}
	v := p.Get(key)
	if v == "" {
		return core.Zero
	}
	d, err := core.ParseAmount(v)
	if err != nil {
		p.errs.Add(key, "Must be a valid amount")
		return core.Zero
	}
	return d
}

// Date returns a date field; an absent or empty field is the zero date.
func (p *RequestBodyParser) Date(key string) core.Date {
	v := p.Get(key)
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.errs.Add(key, "Must be a date in YYYY-MM-DD format")
		return core.Date{}
	}
	return d
}

// Strings returns a list field. JSON accepts an array or a single string.
func (p *RequestBodyParser) Strings(key string) []string {
	var out []string
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			if s := sanitizeInput(stringValue(raw)); s != "" {
				return []string{s}
			}
			return nil
		}
	} else if p.formData != nil {
		out = p.formData[key]
	}
	cleaned := make([]string, 0, len(out))
	for _, s := range out {
		if s = sanitizeInput(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// Files returns the uploaded files of a multipart field.
func (p *RequestBodyParser) Files(key string) []*multipart.FileHeader {
	if p.files == nil {
		return nil
	}
	return p.files[key]
}

// Err returns the collected field errors, or nil.
func (p *RequestBodyParser) Err() error {
	return p.errs.Err()
}

// AddError records a field error found by the caller.
func (p *RequestBodyParser) AddError(key, msg string) {
	p.errs.Add(key, msg)
}

// stringValue renders a raw JSON value as text.
func stringValue(raw json.RawMessage) string {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		if s, ok := val["$numberDecimal"].(string); ok {
			return s
		}
		return ""
	default:
		return ""
	}
}
