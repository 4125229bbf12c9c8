package sessioncore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/platemarket/sessioncore/credential"
	"github.com/platemarket/sessioncore/permission"
	"github.com/platemarket/sessioncore/store"
)

// Machine is the session state machine. It owns the authoritative session
// state, composes the credential store, validity checker, and permission
// table, and exposes the current [SessionSnapshot] to the rest of the
// application.
//
// Machine instances are built through [Builder.Build] and are safe for
// concurrent use afterwards.
type Machine struct {
	config    Config
	store     *store.Store
	checker   *credential.Checker
	table     *permission.Table
	transport Transport
	notify    *notifyDispatcher
	logger    zerolog.Logger
	clock     func() time.Time

	mu        sync.Mutex
	state     SessionState
	epoch     uint64
	sessionID string
	role      permission.Role
	user      *store.UserRecord
	lastErr   error
	inflight  chan struct{}

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]func(SessionSnapshot)
}

// Snapshot returns a copy of the externally visible session state.
func (m *Machine) Snapshot() SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		State:           m.state,
		IsLoading:       m.state == StateUninitialized || m.state == StateInitializing,
		IsAuthenticated: m.state == StateAuthenticated || m.state == StateRefreshing,
		SessionID:       m.sessionID,
		Role:            m.role,
		LastError:       m.lastErr,
	}
	if m.user != nil {
		user := *m.user
		snap.User = &user
	}
	return snap
}

// Subscribe registers an observer invoked with a fresh snapshot after every
// transition, in registration order. The returned function cancels the
// registration. Reactivity is push-based; observers never poll.
func (m *Machine) Subscribe(fn func(SessionSnapshot)) func() {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// publish pushes the current snapshot to every observer. Callbacks run
// outside the state lock so an observer may call back into the machine.
func (m *Machine) publish() {
	snap := m.Snapshot()

	m.obsMu.Lock()
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(SessionSnapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.observers[id])
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Initialize replays any persisted session at process start. Outcomes:
//
//   - no stored credential → Unauthenticated
//   - structurally invalid credential → store cleared, Unauthenticated
//   - usable (or silently refreshable) credential → profile hydrated from
//     cache or transport, Authenticated
//   - anything else → store cleared, Unauthenticated
//
// Initialize never surfaces a parsing failure to the caller; local
// credential trouble fails closed into "no session".
func (m *Machine) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.state = StateInitializing
	epoch := m.epoch
	m.mu.Unlock()
	m.publish()

	token, ok := m.store.Get(ctx)
	if !ok {
		return m.settleUnauthenticated(ctx, false)
	}

	claims, err := credential.Parse(token)
	if err != nil {
		m.logger.Warn().Msg("stored credential is malformed, clearing session")
		return m.settleUnauthenticated(ctx, true)
	}

	if m.checker.WillExpireSoon(token) {
		refreshed, err := m.silentRefresh(ctx, epoch)
		if err != nil {
			m.logger.Info().Err(err).Msg("silent refresh at startup failed")
			return m.settleUnauthenticated(ctx, true)
		}
		token = refreshed
		claims, err = credential.Parse(token)
		if err != nil {
			return m.settleUnauthenticated(ctx, true)
		}
	}

	role, err := permission.ParseRole(claims.RoleName)
	if err != nil {
		m.logger.Warn().Str("role", claims.RoleName).Msg("credential carries an unknown role, clearing session")
		return m.settleUnauthenticated(ctx, true)
	}

	user, ok := m.store.GetUser(ctx)
	if !ok {
		profile, err := m.transport.FetchProfile(ctx)
		if err != nil {
			m.logger.Info().Err(err).Msg("profile fetch at startup failed")
			return m.settleUnauthenticated(ctx, true)
		}
		if err := m.store.PutUser(ctx, *profile); err != nil {
			m.logger.Warn().Err(err).Msg("caching fetched profile failed")
		}
		user = profile
	}

	m.mu.Lock()
	if m.epoch != epoch {
		// A logout raced the startup path; it already settled the state.
		m.mu.Unlock()
		return nil
	}
	m.state = StateAuthenticated
	m.sessionID = uuid.NewString()
	m.role = role
	m.user = user
	m.lastErr = nil
	m.mu.Unlock()
	m.publish()

	SessionsRestoredTotal.Inc()
	m.logger.Info().Str("session_id", m.sessionID).Str("role", role.String()).Msg("session restored")
	return nil
}

// settleUnauthenticated finishes an initialize attempt without a session.
// clear removes any partially usable persisted state first; partial clears
// are a defect, so the store does it atomically.
func (m *Machine) settleUnauthenticated(ctx context.Context, clear bool) error {
	if clear {
		if err := m.store.ClearAll(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("clearing credential store failed")
		}
	}

	m.mu.Lock()
	m.state = StateUnauthenticated
	m.sessionID = ""
	m.role = permission.RoleNone
	m.user = nil
	m.mu.Unlock()
	m.publish()
	return nil
}

// Login authenticates against the transport. On success the new credential
// pair and profile are persisted and the session becomes Authenticated. On
// failure the persisted state is untouched, the snapshot records the error
// for form display, and the state stays Unauthenticated.
func (m *Machine) Login(ctx context.Context, creds Credentials) error {
	res, err := m.transport.Login(ctx, creds)
	if err != nil {
		m.mu.Lock()
		if m.state == StateUninitialized || m.state == StateInitializing {
			m.state = StateUnauthenticated
		}
		m.lastErr = err
		m.mu.Unlock()
		m.publish()

		if ClassOf(err) == ClassClient {
			LoginsTotal.WithLabelValues("rejected").Inc()
		} else {
			LoginsTotal.WithLabelValues("error").Inc()
		}
		m.notifyf(ctx, NoticeError, "sign-in failed")
		return fmt.Errorf("login: %w", err)
	}

	claims, err := credential.Parse(res.AccessToken)
	if err != nil {
		// The server handed back a token the client cannot read. Treat it
		// as a failed login rather than persisting garbage.
		m.mu.Lock()
		m.lastErr = ErrCredentialMalformed
		m.mu.Unlock()
		m.publish()
		LoginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("login: %w", ErrCredentialMalformed)
	}

	role, err := permission.ParseRole(claims.RoleName)
	if err != nil {
		m.mu.Lock()
		m.lastErr = ErrCredentialMalformed
		m.mu.Unlock()
		m.publish()
		LoginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("login: %w", ErrCredentialMalformed)
	}

	if err := m.store.Put(ctx, res.AccessToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting access credential failed")
	}
	if err := m.store.PutRefresh(ctx, res.RefreshToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting refresh credential failed")
	}
	if err := m.store.PutUser(ctx, res.User); err != nil {
		m.logger.Warn().Err(err).Msg("persisting user record failed")
	}

	user := res.User

	m.mu.Lock()
	m.epoch++
	m.state = StateAuthenticated
	m.sessionID = uuid.NewString()
	m.role = role
	m.user = &user
	m.lastErr = nil
	sessionID := m.sessionID
	m.mu.Unlock()
	m.publish()

	LoginsTotal.WithLabelValues("success").Inc()
	m.notifyf(ctx, NoticeInfo, "signed in")
	m.logger.Info().Str("session_id", sessionID).Str("role", role.String()).Msg("login succeeded")
	return nil
}

// Logout tears the session down unconditionally. The transport's logout
// endpoint is called best-effort first; failure to reach it never blocks
// local teardown. Calling Logout on an already unauthenticated session is a
// no-op that still yields an Unauthenticated snapshot.
func (m *Machine) Logout(ctx context.Context) error {
	if err := m.transport.Logout(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("logout request failed, clearing session locally")
		m.notifyf(ctx, NoticeWarning, "could not reach the server, signed out locally")
	}

	m.mu.Lock()
	m.epoch++
	m.state = StateUnauthenticated
	m.sessionID = ""
	m.role = permission.RoleNone
	m.user = nil
	m.lastErr = nil
	m.mu.Unlock()

	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("clearing credential store failed")
	}

	m.publish()
	LogoutsTotal.Inc()
	return nil
}

// Can reports whether the current session's role may exercise any of the
// required capabilities, using the credential's role claim as the
// authority. It is a pure read for in-page conditional rendering; it does
// not trigger a refresh. Use [Machine.Authorize] before performing a
// gated action.
func (m *Machine) Can(caps ...Capability) bool {
	m.mu.Lock()
	role := m.role
	state := m.state
	m.mu.Unlock()

	if state != StateAuthenticated && state != StateRefreshing {
		return false
	}
	return m.table.Allowed(role, caps...)
}

// Authorize ensures the credential is fresh (refreshing it if needed) and
// then decides the capability check. A deny is [ErrUnauthorized]; it is a
// decision, not an exceptional condition.
func (m *Machine) Authorize(ctx context.Context, caps ...Capability) error {
	if err := m.EnsureFresh(ctx); err != nil {
		return err
	}
	if !m.Can(caps...) {
		return ErrUnauthorized
	}
	return nil
}

// Table exposes the permission table for in-page decisions independent of
// routing.
func (m *Machine) Table() *permission.Table {
	return m.table
}

// NotifyDropped reports notices dropped by the dispatcher under
// backpressure.
func (m *Machine) NotifyDropped() uint64 {
	return m.notify.Dropped()
}

// Close stops the notification dispatcher, draining queued notices. The
// machine must not be used afterwards.
func (m *Machine) Close() {
	if m == nil {
		return
	}
	m.notify.Close()
}

func (m *Machine) notifyf(ctx context.Context, kind NoticeKind, format string, args ...any) {
	m.notify.Notify(ctx, kind, fmt.Sprintf(format, args...), m.clock())
}
