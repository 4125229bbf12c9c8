package sessioncore

import (
	"context"
	"fmt"

	"github.com/platemarket/sessioncore/credential"
	"github.com/platemarket/sessioncore/permission"
)

// EnsureFresh guarantees the access credential is outside the expiry buffer
// before a capability-gated action runs. When the credential is about to
// expire it performs a single-flight refresh: concurrent callers that
// observe the Refreshing state wait for the in-flight attempt instead of
// racing a second request against the single-use refresh token.
//
// A refresh failure is the only path by which an active session is dropped
// without explicit user action; it forces a silent logout and returns
// [ErrRefreshFailed]. Results that resolve after an intervening logout are
// discarded by comparing session epochs.
func (m *Machine) EnsureFresh(ctx context.Context) error {
	for {
		m.mu.Lock()

		switch m.state {
		case StateUninitialized, StateInitializing, StateUnauthenticated:
			m.mu.Unlock()
			return ErrNotAuthenticated
		case StateRefreshing:
			wait := m.inflight
			m.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		token, ok := m.store.Get(ctx)
		if !ok {
			// The persisted credential vanished underneath an authenticated
			// session. Fail closed.
			m.dropSessionLocked()
			m.mu.Unlock()
			m.afterForcedLogout(ctx)
			return ErrNotAuthenticated
		}

		if !m.checker.WillExpireSoon(token) {
			m.mu.Unlock()
			return nil
		}

		refreshToken, ok := m.store.GetRefresh(ctx)
		if !ok {
			m.dropSessionLocked()
			m.mu.Unlock()
			m.afterForcedLogout(ctx)
			return ErrRefreshFailed
		}

		epoch := m.epoch
		m.state = StateRefreshing
		wait := make(chan struct{})
		m.inflight = wait
		m.mu.Unlock()
		m.publish()

		res, err := m.transport.Refresh(ctx, refreshToken)

		m.mu.Lock()
		m.inflight = nil
		close(wait)

		if m.epoch != epoch {
			// A logout (or a new login) happened while the refresh was in
			// flight. Whatever came back must not resurrect the old
			// session.
			m.mu.Unlock()
			RefreshesTotal.WithLabelValues("discarded").Inc()
			m.logger.Info().Msg("refresh result discarded, session epoch moved on")
			return ErrNotAuthenticated
		}

		if err != nil {
			m.dropSessionLocked()
			m.mu.Unlock()
			m.afterForcedLogout(ctx)
			RefreshesTotal.WithLabelValues("failure").Inc()
			m.logger.Warn().Err(err).Msg("credential refresh failed, session dropped")
			return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		if err := m.adoptRefreshedLocked(ctx, res); err != nil {
			m.dropSessionLocked()
			m.mu.Unlock()
			m.afterForcedLogout(ctx)
			RefreshesTotal.WithLabelValues("failure").Inc()
			return err
		}

		m.mu.Unlock()
		m.publish()
		RefreshesTotal.WithLabelValues("success").Inc()
		return nil
	}
}

// adoptRefreshedLocked persists the replacement token pair and returns the
// machine to Authenticated. Caller holds m.mu.
func (m *Machine) adoptRefreshedLocked(ctx context.Context, res *RefreshResult) error {
	claims, err := credential.Parse(res.AccessToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, ErrCredentialMalformed)
	}
	role, err := permission.ParseRole(claims.RoleName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, ErrCredentialMalformed)
	}

	if err := m.store.Put(ctx, res.AccessToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting refreshed access credential failed")
	}
	if err := m.store.PutRefresh(ctx, res.RefreshToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting rotated refresh credential failed")
	}

	m.state = StateAuthenticated
	m.role = role
	return nil
}

// dropSessionLocked is the forced-logout transition. Caller holds m.mu;
// store cleanup and notifications happen in afterForcedLogout once the lock
// is released.
func (m *Machine) dropSessionLocked() {
	m.epoch++
	m.state = StateUnauthenticated
	m.sessionID = ""
	m.role = permission.RoleNone
	m.user = nil
}

func (m *Machine) afterForcedLogout(ctx context.Context) {
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("clearing credential store failed")
	}
	m.publish()
	ForcedLogoutsTotal.Inc()
	m.notifyf(ctx, NoticeWarning, "your session has expired, please sign in again")
}

// silentRefresh runs the startup variant of the refresh flow: the machine is
// still Initializing, so no Refreshing state is published and no forced
// logout fires; the caller settles the outcome. Returns the new access
// token.
func (m *Machine) silentRefresh(ctx context.Context, epoch uint64) (string, error) {
	refreshToken, ok := m.store.GetRefresh(ctx)
	if !ok {
		return "", ErrRefreshFailed
	}

	res, err := m.transport.Refresh(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	stale := m.epoch != epoch
	m.mu.Unlock()
	if stale {
		RefreshesTotal.WithLabelValues("discarded").Inc()
		return "", ErrNotAuthenticated
	}

	if err := m.store.Put(ctx, res.AccessToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting refreshed access credential failed")
	}
	if err := m.store.PutRefresh(ctx, res.RefreshToken); err != nil {
		m.logger.Warn().Err(err).Msg("persisting rotated refresh credential failed")
	}

	RefreshesTotal.WithLabelValues("success").Inc()
	return res.AccessToken, nil
}
