package http

import (
	"context"
	"strings"

	"finboard/internal/core"
)

type contextKey string

const subjectKey contextKey = "subject"

// withSubject stores the authenticated user id.
func withSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, subjectKey, userID)
}

// SubjectFrom returns the authenticated user id of the request.
func SubjectFrom(ctx context.Context) string {
	if id, ok := ctx.Value(subjectKey).(string); ok {
		return id
	}
	return ""
}

// resolveOwner picks the owner a request acts for. An empty requested id
// means the caller; any other id must equal the caller.
func resolveOwner(ctx context.Context, requested ...string) (string, error) {
	subject := SubjectFrom(ctx)
	if subject == "" {
		return "", core.ErrUnauthorized
	}
	for _, id := range requested {
		if id = strings.TrimSpace(id); id != "" && id != subject {
			return "", core.ErrForbidden
		}
	}
	return subject, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
