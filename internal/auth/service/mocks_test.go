package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/auth/service"
	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockUserRepo struct {
	createFunc         func(ctx context.Context, account userdomain.Account) error
	findByUsernameFunc func(ctx context.Context, username string) (userdomain.Account, error)
	findByIDFunc       func(ctx context.Context, id userdomain.ID) (userdomain.Account, error)
	deleteFunc         func(ctx context.Context, id userdomain.ID) error
}

func (m *mockUserRepo) Create(ctx context.Context, account userdomain.Account) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	return nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (userdomain.Account, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return userdomain.Account{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id userdomain.ID) (userdomain.Account, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return userdomain.Account{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) Delete(ctx context.Context, id userdomain.ID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockRevocations struct {
	isRevokedFunc func(ctx context.Context, jti string) (bool, error)
	revokeFunc    func(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

func (m *mockRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.isRevokedFunc != nil {
		return m.isRevokedFunc(ctx, jti)
	}
	return false, nil
}

func (m *mockRevocations) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, jti, userID, expiresAt)
	}
	return nil
}

type mockHasher struct{}

func (mockHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (mockHasher) Compare(hash string, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type sequenceIDGenerator struct {
	n atomic.Int64
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("id-%d", g.n.Add(1)), nil
}

// memoryRefreshTokens keeps refresh tokens in a map. WithTx holds the lock for the whole
// callback and restores the snapshot when the callback fails.
type memoryRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]authdomain.RefreshToken
}

func newMemoryRefreshTokens() *memoryRefreshTokens {
	return &memoryRefreshTokens{tokens: make(map[string]authdomain.RefreshToken)}
}

func (m *memoryRefreshTokens) DeleteByTokenHash(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (*memoryTx)(m).DeleteByTokenHash(ctx, hash)
}

func (m *memoryRefreshTokens) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *memoryRefreshTokens) TxManager() authrepo.RefreshTokenTxManagerInterface {
	return m
}

func (m *memoryRefreshTokens) WithTx(ctx context.Context, fn func(context.Context, authrepo.RefreshTokenTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]authdomain.RefreshToken, len(m.tokens))
	for k, v := range m.tokens {
		snapshot[k] = v
	}
	if err := fn(ctx, (*memoryTx)(m)); err != nil {
		m.tokens = snapshot
		return err
	}
	return nil
}

func (m *memoryRefreshTokens) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type memoryTx memoryRefreshTokens

func (t *memoryTx) FindByTokenHashForUpdate(ctx context.Context, hash string) (authdomain.RefreshToken, error) {
	token, ok := t.tokens[hash]
	if !ok {
		return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (t *memoryTx) DeleteByTokenHash(ctx context.Context, hash string) error {
	delete(t.tokens, hash)
	return nil
}

func (t *memoryTx) Create(ctx context.Context, token authdomain.RefreshToken) error {
	token.RawToken = ""
	t.tokens[token.TokenHash] = token
	return nil
}

func (t *memoryTx) DeleteExcessByUserID(ctx context.Context, userID string, keep int) error {
	var owned []authdomain.RefreshToken
	for _, token := range t.tokens {
		if token.UserID == userID {
			owned = append(owned, token)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	for i := keep; i < len(owned); i++ {
		delete(t.tokens, owned[i].TokenHash)
	}
	return nil
}

type authFixture struct {
	clock       *clock.MockClock
	users       *mockUserRepo
	refresh     *memoryRefreshTokens
	revocations *mockRevocations
	issuer      *service.TokenIssuer
	rotator     *service.RefreshTokenRotator
	verifier    *service.Verifier
	auth        *service.AuthService
}

var testAccount = userdomain.Account{
	ID:          "u1",
	Username:    "alice",
	Avatar:      "https://example.com/a.png",
	Communities: []string{},
}

func newAuthFixture() *authFixture {
	log := logger.NewWithWriter(io.Discard, "test", "error")
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ids := &sequenceIDGenerator{}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  5,
		Timeout:    time.Second,
		ResetAfter: time.Second,
		Name:       "test",
		Clock:      mockClock,
	})

	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id userdomain.ID) (userdomain.Account, error) {
			if id == testAccount.ID {
				return testAccount, nil
			}
			return userdomain.Account{}, commonerrors.ErrUserNotFound
		},
	}
	refresh := newMemoryRefreshTokens()
	revocations := &mockRevocations{}

	issuer := service.NewTokenIssuer(testSecret, ids, 15*time.Minute, mockClock)
	rotator := service.NewRefreshTokenRotator(refresh, users, issuer, cb, ids, 7*24*time.Hour, 3, mockClock, log)
	verifier := service.NewVerifier(issuer, rotator, revocations, users, cb, log)
	auth := service.NewAuthService(users, refresh, rotator, issuer, revocations, mockHasher{}, ids, cb, mockClock, log)

	return &authFixture{
		clock:       mockClock,
		users:       users,
		refresh:     refresh,
		revocations: revocations,
		issuer:      issuer,
		rotator:     rotator,
		verifier:    verifier,
		auth:        auth,
	}
}
