package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/storage"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

// AuthService registers users and issues HS256 tokens whose subject is the
// user id.
type AuthService struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

func NewAuthService(users storage.UserStore, secret string, ttl time.Duration, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, u core.User, password string) (core.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	errs := core.ValidationErrors{}
	if err := u.Validate(); err != nil {
		var ve core.ValidationErrors
		if errors.As(err, &ve) {
			errs = append(errs, ve...)
		}
	}
	if len(password) < minPasswordLength {
		errs.Add("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if err := errs.Err(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.ID = ""

	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, core.ValidationErrors{{Param: "email", Msg: "Email is already registered"}}
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldOwnerID, created.ID)
	return created, nil
}

// Login checks the password and returns a signed token with the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, core.User, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.User{}, ErrInvalidCredentials
		}
		return "", core.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldOwnerID, u.ID)
		return "", core.User{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return "", core.User{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldOwnerID, u.ID, log.FieldOperation, log.OpLogin)
	return token, u, nil
}

// IssueToken signs a token for userID valid for the configured TTL.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its subject.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token without subject", core.ErrUnauthorized)
	}
	return claims.Subject, nil
}
