package sessioncore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platemarket/sessioncore/store"
)

func testToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": role,
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token failed: %v", err)
	}
	return signed
}

func testUser(role Role) UserRecord {
	return UserRecord{
		ID:          "u-1",
		DisplayName: "Hiwot Kitchen",
		Phone:       "+2519110000",
		Role:        role,
		Approved:    true,
	}
}

// fakeTransport is a scriptable Transport. Refresh can be made to block on
// a gate channel so tests can hold a refresh in flight.
type fakeTransport struct {
	mu sync.Mutex

	loginRes *LoginResult
	loginErr error

	refreshRes  *RefreshResult
	refreshErr  error
	refreshGate chan struct{}

	profile    *UserRecord
	profileErr error

	logoutErr error

	loginCalls   int
	refreshCalls int
	logoutCalls  int
	profileCalls int
}

func (f *fakeTransport) Login(context.Context, Credentials) (*LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	res := *f.loginRes
	return &res, nil
}

func (f *fakeTransport) Refresh(context.Context, string) (*RefreshResult, error) {
	f.mu.Lock()
	f.refreshCalls++
	gate := f.refreshGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	res := *f.refreshRes
	return &res, nil
}

func (f *fakeTransport) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeTransport) FetchProfile(context.Context) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	user := *f.profile
	return &user, nil
}

func (f *fakeTransport) calls() (login, refresh, logout, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.logoutCalls, f.profileCalls
}

func newTestMachine(t *testing.T, tr Transport, kv store.KeyValue) *Machine {
	t.Helper()

	m, err := New().
		WithKeyValue(kv).
		WithTransport(tr).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// seedSession persists a credential pair and user record the way a previous
// process would have left them.
func seedSession(t *testing.T, kv store.KeyValue, access, refresh string, user UserRecord) {
	t.Helper()

	ctx := context.Background()
	s := store.New(kv, "session")
	if err := s.Put(ctx, access); err != nil {
		t.Fatalf("seed access failed: %v", err)
	}
	if err := s.PutRefresh(ctx, refresh); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
