package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finboard/internal/core"
)

const testSecret = "0123456789abcdef"

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newStore(), testSecret, time.Hour, nil)

	u, err := svc.Register(ctx, core.User{Name: "Asha", Email: " Asha@Example.com "}, "s3cretpass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.Email != "asha@example.com" || u.PasswordHash == "" || u.PasswordHash == "s3cretpass" {
		t.Errorf("Register() = %+v", u)
	}

	_, err = svc.Register(ctx, core.User{Name: "Asha", Email: "asha@example.com"}, "s3cretpass")
	var ve core.ValidationErrors
	if !errors.As(err, &ve) || ve[0].Param != "email" {
		t.Errorf("Register() duplicate error = %v", err)
	}

	_, err = svc.Register(ctx, core.User{Name: "", Email: "nope"}, "short")
	if !errors.As(err, &ve) || len(ve) != 3 {
		t.Errorf("Register() invalid error = %v, want name, email and password errors", err)
	}

	token, user, err := svc.Login(ctx, "asha@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != u.ID {
		t.Errorf("Login() user = %s, want %s", user.ID, u.ID)
	}
	subject, err := svc.ParseToken(token)
	if err != nil || subject != u.ID {
		t.Errorf("ParseToken() = %q, %v", subject, err)
	}

	if _, _, err := svc.Login(ctx, "asha@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() wrong password error = %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() unknown email error = %v", err)
	}
}

func TestAuthService_ParseToken(t *testing.T) {
	svc := NewAuthService(newStore(), testSecret, time.Hour, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	token, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	other := NewAuthService(newStore(), "another-secret-0000", time.Hour, nil)
	other.now = svc.now

	tests := []struct {
		name    string
		svc     *AuthService
		token   string
		advance time.Duration
		wantErr bool
	}{
		{name: "valid", svc: svc, token: token},
		{name: "expired", svc: svc, token: token, advance: 2 * time.Hour, wantErr: true},
		{name: "wrong secret", svc: other, token: token, wantErr: true},
		{name: "garbage", svc: svc, token: "not.a.token", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := now.Add(tt.advance)
			tt.svc.now = func() time.Time { return at }
			subject, err := tt.svc.ParseToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnauthorized) {
					t.Errorf("ParseToken() error = %v, want ErrUnauthorized", err)
				}
				return
			}
			if err != nil || subject != "u1" {
				t.Errorf("ParseToken() = %q, %v", subject, err)
			}
		})
	}
}
