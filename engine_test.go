package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shopapi/authcore/password"
)

type mockUserProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string
	updateErr    error
	createErr    error
	statusErr    error

	getByIdentifierCalls int
	getByIDCalls         int
	updatePasswordCalls  int
	createCalls          int
	updateStatusCalls    int
}

func (m *mockUserProvider) GetUserByIdentifier(identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIdentifierCalls++

	userID, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}
	return m.users[userID], nil
}

func (m *mockUserProvider) GetUserByID(userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls++

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}
	return user, nil
}

func (m *mockUserProvider) UpdatePasswordHash(userID string, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}

	user, ok := m.users[userID]
	if !ok {
		return errors.New("not found")
	}
	user.PasswordHash = newHash
	m.users[userID] = user
	return nil
}

func (m *mockUserProvider) CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}

	if m.users == nil {
		m.users = make(map[string]UserRecord)
	}
	if m.byIdentifier == nil {
		m.byIdentifier = make(map[string]string)
	}
	if _, exists := m.byIdentifier[input.Identifier]; exists {
		return UserRecord{}, ErrProviderDuplicateIdentifier
	}

	user := UserRecord{
		UserID:       fmt.Sprintf("u%d", len(m.users)+1),
		Identifier:   input.Identifier,
		PasswordHash: input.PasswordHash,
		Status:       input.Status,
	}
	m.users[user.UserID] = user
	m.byIdentifier[input.Identifier] = user.UserID
	return user, nil
}

func (m *mockUserProvider) UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateStatusCalls++

	if m.statusErr != nil {
		return UserRecord{}, m.statusErr
	}

	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}
	user.Status = status
	m.users[userID] = user
	return user, nil
}

func (m *mockUserProvider) addUser(user UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.users == nil {
		m.users = make(map[string]UserRecord)
	}
	if m.byIdentifier == nil {
		m.byIdentifier = make(map[string]string)
	}
	m.users[user.UserID] = user
	m.byIdentifier[user.Identifier] = user.UserID
}

func (m *mockUserProvider) user(userID string) (UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	return user, ok
}

func (m *mockUserProvider) setStatus(userID string, status AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[userID]
	user.Status = status
	m.users[userID] = user
}

func (m *mockUserProvider) removeUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.users[userID]
	delete(m.users, userID)
	delete(m.byIdentifier, user.Identifier)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	// Low argon2 cost keeps the suite fast, still above the engine floor.
	cfg.Password = PasswordConfig{
		Memory:      8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = time.Minute
	return cfg
}

type testEnv struct {
	engine *Engine
	up     *mockUserProvider
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	up := &mockUserProvider{}
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithTimeFunc(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, up: up, mr: mr, rdb: rdb, clock: clock}
}

func (env *testEnv) seedUser(t *testing.T, identifier, password string) string {
	t.Helper()

	hash, err := env.engine.passwordHash.Hash(password)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}

	userID := "u-" + identifier
	env.up.addUser(UserRecord{
		UserID:       userID,
		Identifier:   identifier,
		PasswordHash: hash,
		Status:       AccountActive,
	})
	return userID
}

func hashWithCost(t *testing.T, cfg PasswordConfig, plaintext string) string {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return hash
}

func TestBuildRequiresRedis(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithUserProvider(&mockUserProvider{}).
		Build()
	if err == nil {
		t.Fatal("expected build error without redis client")
	}
}

func TestBuildRequiresUserProvider(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	_, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		Build()
	if err == nil {
		t.Fatal("expected build error without user provider")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	cfg := testConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(&mockUserProvider{}).
		Build()
	if err == nil {
		t.Fatal("expected build error for identical secrets")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(&mockUserProvider{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestUnbuiltEngineReportsNotReady(t *testing.T) {
	ctx := context.Background()
	var engine Engine

	if _, err := engine.Login(ctx, "alice", "some-password"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Login: expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.Refresh(ctx, "token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Refresh: expected ErrEngineNotReady, got %v", err)
	}
	if err := engine.Logout(ctx, "token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Logout: expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.ValidateAccess(ctx, "token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("ValidateAccess: expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.ValidateRefresh(ctx, "token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("ValidateRefresh: expected ErrEngineNotReady, got %v", err)
	}
}

func TestEngineConfigIsIsolatedFromCaller(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	cfg := testConfig()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(&mockUserProvider{}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	// Mutating the caller's secret after Build must not reach the engine.
	cfg.JWT.AccessSecret[0] ^= 0xff

	if engine.config.JWT.AccessSecret[0] == cfg.JWT.AccessSecret[0] {
		t.Fatal("engine config shares secret backing array with caller")
	}
}
