// Package session holds the authentication gate: the one place session
// state is written, persisted and observed.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"finboard/internal/log"
)

// ErrInvalidToken is returned by a Validator that rejects the stored token.
var ErrInvalidToken = errors.New("session token rejected")

// State of the gate.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decision is what a route should do for the current state.
type Decision int

const (
	Placeholder Decision = iota
	RedirectLogin
	Render
)

func (d Decision) String() string {
	switch d {
	case Placeholder:
		return "placeholder"
	case RedirectLogin:
		return "redirect-login"
	default:
		return "render"
	}
}

// Session is an immutable snapshot of the gate.
type Session struct {
	State  State
	Token  string
	UserID string
}

func (s Session) Authenticated() bool { return s.State == Authenticated }

// Validator checks a persisted token with the server. Returning an error
// wrapping ErrInvalidToken logs the session out; any other error keeps it.
type Validator interface {
	ValidateToken(ctx context.Context, token string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, token string) error

func (f ValidatorFunc) ValidateToken(ctx context.Context, token string) error { return f(ctx, token) }

// Option configures a Gate.
type Option func(*Gate)

// WithValidator re-checks the token on Resolve.
func WithValidator(v Validator) Option {
	return func(g *Gate) { g.validator = v }
}

// WithLogger sets the gate's logger.
func WithLogger(logger *log.Logger) Option {
	return func(g *Gate) { g.logger = logger.WithComponent(log.ComponentSession) }
}

// Gate tracks whether a user is signed in.
type Gate struct {
	store     Store
	validator Validator
	logger    *log.Logger

	mu      sync.RWMutex
	current Session
	subs    map[int]func(Session)
	nextSub int
}

// NewGate returns a gate in the Loading state.
func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		current: Session{State: Loading},
		subs:    make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentSession)
	}
	return g
}

// Resolve reads the persisted evidence and leaves Loading. A stored token
// means Authenticated unless the validator rejects it.
func (g *Gate) Resolve(ctx context.Context) (Session, error) {
	token, ok, err := g.store.Get(KeyAuthToken)
	if err != nil {
		g.set(Session{State: Unauthenticated})
		return g.Session(), fmt.Errorf("read session: %w", err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		g.set(Session{State: Unauthenticated})
		return g.Session(), nil
	}
	userID, _, err := g.store.Get(KeyUserID)
	if err != nil {
		g.set(Session{State: Unauthenticated})
		return g.Session(), fmt.Errorf("read session: %w", err)
	}

	if g.validator != nil {
		if err := g.validator.ValidateToken(ctx, token); err != nil {
			if errors.Is(err, ErrInvalidToken) {
				g.logger.InfoContext(ctx, "Stored session rejected by server, signing out")
				return g.Session(), g.Logout()
			}
			g.logger.WarnContext(ctx, "Session validation failed, keeping stored session", log.FieldError, err)
		}
	}

	g.set(Session{State: Authenticated, Token: token, UserID: userID})
	return g.Session(), nil
}

// Login persists the token and user id and moves to Authenticated.
func (g *Gate) Login(token, userID string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is required")
	}
	values := map[string]string{KeyAuthToken: token}
	if userID != "" {
		values[KeyUserID] = userID
	}
	if err := g.store.Set(values); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if userID == "" {
		// A token without a user id replaces any id left from before.
		if err := g.store.Delete(KeyUserID); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	g.set(Session{State: Authenticated, Token: token, UserID: userID})
	g.logger.Info("Signed in", log.FieldOwnerID, userID)
	return nil
}

// Logout clears the persisted session and moves to Unauthenticated. The
// state changes even if the store fails.
func (g *Gate) Logout() error {
	err := g.store.Delete(KeyAuthToken, KeyUserID)
	g.set(Session{State: Unauthenticated})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Guard decides how a route renders in the current state.
func (g *Gate) Guard(protected bool) Decision {
	s := g.Session()
	switch {
	case s.State == Loading:
		return Placeholder
	case protected && !s.Authenticated():
		return RedirectLogin
	default:
		return Render
	}
}

// Session returns the current snapshot.
func (g *Gate) Session() Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// Token returns the bearer token, empty unless authenticated.
func (g *Gate) Token() string {
	s := g.Session()
	if !s.Authenticated() {
		return ""
	}
	return s.Token
}

// UserID returns the signed in user's id, empty unless authenticated.
func (g *Gate) UserID() string {
	s := g.Session()
	if !s.Authenticated() {
		return ""
	}
	return s.UserID
}

// Subscribe registers fn for every state change and returns a function
// that removes it. fn runs synchronously after the change.
func (g *Gate) Subscribe(fn func(Session)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

// Preference reads a UI preference (theme or bgColor).
func (g *Gate) Preference(key string) (string, error) {
	if !isPreference(key) {
		return "", fmt.Errorf("unknown preference %q", key)
	}
	v, _, err := g.store.Get(key)
	return v, err
}

// SetPreference stores a UI preference. Preferences survive Logout.
func (g *Gate) SetPreference(key, value string) error {
	if !isPreference(key) {
		return fmt.Errorf("unknown preference %q", key)
	}
	if value == "" {
		return g.store.Delete(key)
	}
	return g.store.Set(map[string]string{key: value})
}

func isPreference(key string) bool {
	return key == KeyTheme || key == KeyBgColor
}

func (g *Gate) set(s Session) {
	g.mu.Lock()
	g.current = s
	subs := make([]func(Session), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
