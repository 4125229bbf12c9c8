package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/platemarket/sessioncore/permission"
)

func newRedisKV(t *testing.T) (*Redis, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(rdb), rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func testUser() UserRecord {
	return UserRecord{
		ID:          "u-1",
		DisplayName: "Amara Restaurant Group",
		Phone:       "+2519110000",
		Role:        permission.RoleRestaurantOwner,
		Approved:    true,
	}
}

func TestRoundTripMemory(t *testing.T) {
	runRoundTrip(t, New(NewMemory(), "session"))
}

func TestRoundTripRedis(t *testing.T) {
	kv, _, done := newRedisKV(t)
	defer done()
	runRoundTrip(t, New(kv, "session"))
}

func runRoundTrip(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok := s.Get(ctx); ok {
		t.Fatalf("fresh store must report access credential absent")
	}
	if _, ok := s.GetRefresh(ctx); ok {
		t.Fatalf("fresh store must report refresh credential absent")
	}
	if _, ok := s.GetUser(ctx); ok {
		t.Fatalf("fresh store must report user record absent")
	}

	if err := s.Put(ctx, "access-token"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.PutRefresh(ctx, "refresh-token"); err != nil {
		t.Fatalf("put refresh failed: %v", err)
	}
	if err := s.PutUser(ctx, testUser()); err != nil {
		t.Fatalf("put user failed: %v", err)
	}

	if got, ok := s.Get(ctx); !ok || got != "access-token" {
		t.Fatalf("get = %q, %v", got, ok)
	}
	if got, ok := s.GetRefresh(ctx); !ok || got != "refresh-token" {
		t.Fatalf("get refresh = %q, %v", got, ok)
	}
	user, ok := s.GetUser(ctx)
	if !ok {
		t.Fatalf("user record missing")
	}
	if user.Role != permission.RoleRestaurantOwner || user.ID != "u-1" {
		t.Fatalf("unexpected user record %+v", user)
	}
}

func TestClearAllRemovesEverything(t *testing.T) {
	kv, rdb, done := newRedisKV(t)
	defer done()

	ctx := context.Background()
	s := New(kv, "session")

	if err := s.Put(ctx, "a"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.PutRefresh(ctx, "r"); err != nil {
		t.Fatalf("put refresh failed: %v", err)
	}
	if err := s.PutUser(ctx, testUser()); err != nil {
		t.Fatalf("put user failed: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok := s.Get(ctx); ok {
		t.Fatalf("access credential survived clear")
	}
	if _, ok := s.GetRefresh(ctx); ok {
		t.Fatalf("refresh credential survived clear")
	}
	if _, ok := s.GetUser(ctx); ok {
		t.Fatalf("user record survived clear")
	}
	if keys := rdb.DBSize(ctx).Val(); keys != 0 {
		t.Fatalf("expected empty redis db after clear, got %d keys", keys)
	}
}

func TestPersistenceSurvivesRestart(t *testing.T) {
	kv, _, done := newRedisKV(t)
	defer done()

	ctx := context.Background()
	if err := New(kv, "session").Put(ctx, "survivor"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// A new Store over the same facility models a process restart.
	if got, ok := New(kv, "session").Get(ctx); !ok || got != "survivor" {
		t.Fatalf("credential did not survive restart: %q, %v", got, ok)
	}
}

func TestPrefixScopesKeys(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	a := New(kv, "alpha")
	b := New(kv, "beta")

	if err := a.Put(ctx, "token-a"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, ok := b.Get(ctx); ok {
		t.Fatalf("prefixes must isolate stores")
	}
}

func TestNilPersistenceDegradesToAbsent(t *testing.T) {
	ctx := context.Background()
	s := New(nil, "")

	if err := s.Put(ctx, "x"); err != nil {
		t.Fatalf("put on absent persistence must not fail: %v", err)
	}
	if _, ok := s.Get(ctx); ok {
		t.Fatalf("absent persistence must answer absent")
	}
	if _, ok := s.GetRefresh(ctx); ok {
		t.Fatalf("absent persistence must answer absent")
	}
	if _, ok := s.GetUser(ctx); ok {
		t.Fatalf("absent persistence must answer absent")
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("clear on absent persistence must not fail: %v", err)
	}
}

func TestCorruptUserRecordDegradesToAbsent(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()
	s := New(kv, "session")

	if err := kv.Set(ctx, "session:user", "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, ok := s.GetUser(ctx); ok {
		t.Fatalf("corrupt user record must read as absent")
	}
}

func TestRedisDownDegradesToAbsent(t *testing.T) {
	kv, _, done := newRedisKV(t)
	done() // kill the backend before use

	s := New(kv, "session")
	if _, ok := s.Get(context.Background()); ok {
		t.Fatalf("unreachable persistence must answer absent")
	}
}
