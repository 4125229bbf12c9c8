package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platemarket/sessioncore/permission"
)

// KeyValue is the scoped persistence collaborator consumed by the store.
// Implementations must survive process restarts to be useful in production;
// Get reports absence through its second return rather than an error.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes all given keys in one atomic operation.
	Delete(ctx context.Context, keys ...string) error
}

// UserRecord is the cached profile of the signed-in user. It is a display
// cache, not a source of truth for authorization: the credential's own role
// claim is authoritative for every decision.
type UserRecord struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Phone       string          `json:"phone"`
	Role        permission.Role `json:"role"`
	Approved    bool            `json:"approved"`
	Suspended   bool            `json:"suspended"`
}

const (
	keyAccess  = "access"
	keyRefresh = "refresh"
	keyUser    = "user"
)

// Store holds the current access credential, refresh credential, and cached
// user record. All operations are synchronous and side-effect-free beyond
// the store's own persisted state.
type Store struct {
	kv     KeyValue
	prefix string
}

// New creates a Store over the given persistence facility. A nil KeyValue is
// allowed: getters answer absent, writers succeed without persisting.
// The prefix scopes this store's keys within a shared facility; empty means
// "session".
func New(kv KeyValue, prefix string) *Store {
	if prefix == "" {
		prefix = "session"
	}
	return &Store{kv: kv, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

// Put stores the access credential, replacing any previous one wholesale.
func (s *Store) Put(ctx context.Context, token string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, s.key(keyAccess), token); err != nil {
		return fmt.Errorf("store access credential: %w", err)
	}
	return nil
}

// Get returns the current access credential, or absent. Persistence errors
// degrade to absent: the caller treats "cannot read" and "never written"
// identically.
func (s *Store) Get(ctx context.Context) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	value, ok, err := s.kv.Get(ctx, s.key(keyAccess))
	if err != nil || !ok {
		return "", false
	}
	return value, true
}

// PutRefresh stores the refresh credential.
func (s *Store) PutRefresh(ctx context.Context, token string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(ctx, s.key(keyRefresh), token); err != nil {
		return fmt.Errorf("store refresh credential: %w", err)
	}
	return nil
}

// GetRefresh returns the current refresh credential, or absent.
func (s *Store) GetRefresh(ctx context.Context) (string, bool) {
	if s.kv == nil {
		return "", false
	}
	value, ok, err := s.kv.Get(ctx, s.key(keyRefresh))
	if err != nil || !ok {
		return "", false
	}
	return value, true
}

// PutUser stores the cached user record as JSON.
func (s *Store) PutUser(ctx context.Context, record UserRecord) error {
	if s.kv == nil {
		return nil
	}
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(keyUser), string(blob)); err != nil {
		return fmt.Errorf("store user record: %w", err)
	}
	return nil
}

// GetUser returns the cached user record, or absent. A corrupt blob degrades
// to absent; the profile will be re-fetched on the next initialize.
func (s *Store) GetUser(ctx context.Context) (*UserRecord, bool) {
	if s.kv == nil {
		return nil, false
	}
	value, ok, err := s.kv.Get(ctx, s.key(keyUser))
	if err != nil || !ok {
		return nil, false
	}

	var record UserRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, false
	}
	return &record, true
}

// ClearAll removes credential, refresh credential, and user record in one
// atomic operation.
func (s *Store) ClearAll(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	err := s.kv.Delete(ctx, s.key(keyAccess), s.key(keyRefresh), s.key(keyUser))
	if err != nil {
		return fmt.Errorf("clear credential store: %w", err)
	}
	return nil
}
