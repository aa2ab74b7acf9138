package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"finboard/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestGateLifecycle(t *testing.T) {
	store := NewMemoryStore()
	g := NewGate(store, WithLogger(quietLogger()))

	if s := g.Session(); s.State != Loading {
		t.Fatalf("initial state = %s, want loading", s.State)
	}
	if d := g.Guard(true); d != Placeholder {
		t.Errorf("Guard while loading = %s, want placeholder", d)
	}

	s, err := g.Resolve(context.Background())
	if err != nil || s.State != Unauthenticated {
		t.Fatalf("Resolve() = %+v, %v", s, err)
	}
	if d := g.Guard(true); d != RedirectLogin {
		t.Errorf("Guard(protected) = %s, want redirect-login", d)
	}
	if d := g.Guard(false); d != Render {
		t.Errorf("Guard(public) = %s, want render", d)
	}

	if err := g.Login("tok", "u1"); err != nil {
		t.Fatal(err)
	}
	s = g.Session()
	if !s.Authenticated() || s.UserID != "u1" || g.Token() != "tok" {
		t.Errorf("after Login session = %+v", s)
	}
	for key, want := range map[string]string{KeyAuthToken: "tok", KeyUserID: "u1"} {
		if got, ok, _ := store.Get(key); !ok || got != want {
			t.Errorf("store[%s] = %q, %v", key, got, ok)
		}
	}

	if err := g.Logout(); err != nil {
		t.Fatal(err)
	}
	if g.Session().State != Unauthenticated || g.Token() != "" || g.UserID() != "" {
		t.Errorf("after Logout session = %+v", g.Session())
	}
	for _, key := range []string{KeyAuthToken, KeyUserID} {
		if _, ok, _ := store.Get(key); ok {
			t.Errorf("store still has %s", key)
		}
	}
}

func TestGateResolveFromPersistedSession(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(map[string]string{KeyAuthToken: "tok", KeyUserID: "u9"})

	s, err := NewGate(store, WithLogger(quietLogger())).Resolve(context.Background())
	if err != nil || !s.Authenticated() || s.UserID != "u9" {
		t.Errorf("Resolve() = %+v, %v", s, err)
	}
}

func TestGateValidator(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantState State
		wantKept  bool
	}{
		{name: "accepted", err: nil, wantState: Authenticated, wantKept: true},
		{name: "rejected", err: fmt.Errorf("401: %w", ErrInvalidToken), wantState: Unauthenticated, wantKept: false},
		{name: "server unreachable", err: errors.New("dial tcp: refused"), wantState: Authenticated, wantKept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			_ = store.Set(map[string]string{KeyAuthToken: "tok", KeyUserID: "u1"})
			var seen string
			g := NewGate(store, WithLogger(quietLogger()), WithValidator(ValidatorFunc(func(_ context.Context, token string) error {
				seen = token
				return tt.err
			})))

			s, _ := g.Resolve(context.Background())
			if s.State != tt.wantState {
				t.Errorf("state = %s, want %s", s.State, tt.wantState)
			}
			if seen != "tok" {
				t.Errorf("validator saw %q", seen)
			}
			if _, ok, _ := store.Get(KeyAuthToken); ok != tt.wantKept {
				t.Errorf("token kept = %v, want %v", ok, tt.wantKept)
			}
		})
	}
}

func TestGateSubscribe(t *testing.T) {
	g := NewGate(NewMemoryStore(), WithLogger(quietLogger()))

	var states []State
	unsubscribe := g.Subscribe(func(s Session) { states = append(states, s.State) })

	_, _ = g.Resolve(context.Background())
	_ = g.Login("tok", "u1")
	unsubscribe()
	_ = g.Logout()

	want := []State{Unauthenticated, Authenticated}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, states[i], want[i])
		}
	}
}

func TestGateLoginRequiresToken(t *testing.T) {
	g := NewGate(NewMemoryStore(), WithLogger(quietLogger()))
	if err := g.Login("  ", "u1"); err == nil {
		t.Error("Login with empty token should fail")
	}
	if g.Session().State != Loading {
		t.Errorf("failed Login changed state to %s", g.Session().State)
	}
}

func TestGatePreferencesSurviveLogout(t *testing.T) {
	g := NewGate(NewMemoryStore(), WithLogger(quietLogger()))
	_ = g.Login("tok", "u1")

	if err := g.SetPreference(KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}
	if err := g.SetPreference(KeyAuthToken, "x"); err == nil {
		t.Error("SetPreference should reject session keys")
	}
	_ = g.Logout()

	if theme, _ := g.Preference(KeyTheme); theme != "dark" {
		t.Errorf("theme = %q after logout", theme)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := fs.Get(KeyAuthToken); ok || err != nil {
		t.Fatalf("Get on missing file = %v, %v", ok, err)
	}

	g := NewGate(fs, WithLogger(quietLogger()))
	if err := g.Login("tok", "u1"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	// A second gate over the same file sees the session.
	reopened, _ := NewFileStore(path)
	s, err := NewGate(reopened, WithLogger(quietLogger())).Resolve(context.Background())
	if err != nil || s.UserID != "u1" {
		t.Errorf("Resolve() after reopen = %+v, %v", s, err)
	}

	_ = g.Logout()
	if _, ok, _ := reopened.Get(KeyAuthToken); ok {
		t.Error("token still on disk after Logout")
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs, _ := NewFileStore(path)

	s, err := NewGate(fs, WithLogger(quietLogger())).Resolve(context.Background())
	if err == nil || s.State != Unauthenticated {
		t.Errorf("Resolve() on corrupt file = %+v, %v", s, err)
	}
}
