package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veduta/accounts-api/internal/data"
	"github.com/veduta/accounts-api/internal/domain/model"
	"github.com/veduta/accounts-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.UserRepository    = (*MemoryUserRepo)(nil)
	_ ports.FederatedProvider = (*MockFederatedProvider)(nil)
	_ ports.Mailer            = (*RecorderMailer)(nil)
	_ ports.Limiter           = (*MemoryLimiter)(nil)
)

// MemoryUserRepo is an in-memory user repository for unit tests. It applies
// the same uniqueness rules as the Postgres implementation so service tests
// exercise the duplicate-account paths.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

// NewMemoryUserRepo creates an empty in-memory repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*model.User)}
}

// Seed inserts a user directly, bypassing uniqueness checks. Panics on a
// missing ID so broken fixtures fail loudly.
func (m *MemoryUserRepo) Seed(u *model.User) {
	if u.ID == "" {
		panic("seed user requires an ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *MemoryUserRepo) Create(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, data.ErrEmailTaken
		}
		if strings.EqualFold(existing.Username, user.Username) {
			return nil, data.ErrUsernameTaken
		}
	}
	cp := *user
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, data.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *MemoryUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *MemoryUserRepo) GetByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, data.ErrUserNotFound
	}
	return m.find(func(u *model.User) bool { return u.Google.ID == googleID })
}

func (m *MemoryUserRepo) GetByResetToken(_ context.Context, token string, now time.Time) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.HasValidResetToken(token, now) })
}

func (m *MemoryUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.update(id, func(u *model.User) {
		u.PasswordHash = passwordHash
		u.ClearResetToken()
	})
}

func (m *MemoryUserRepo) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	return m.update(id, func(u *model.User) {
		u.ResetPasswordToken = &token
		u.ResetPasswordExpires = &expires
	})
}

func (m *MemoryUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(u *model.User) { u.LastLoginAt = &at })
}

func (m *MemoryUserRepo) LinkGoogle(_ context.Context, id string, link model.GoogleLink, pictureURL string) (*model.User, error) {
	if err := m.update(id, func(u *model.User) {
		u.Google = link
		if pictureURL != "" {
			u.PictureURL = pictureURL
		}
	}); err != nil {
		return nil, err
	}
	return m.GetByID(context.Background(), id)
}

func (m *MemoryUserRepo) SetActive(_ context.Context, id string, active bool) error {
	return m.update(id, func(u *model.User) { u.Active = active })
}

func (m *MemoryUserRepo) List(_ context.Context, limit, offset int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		all = append(all, &cp)
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, data.ErrUserNotFound
}

func (m *MemoryUserRepo) update(id string, apply func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return data.ErrUserNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// MockFederatedProvider simulates an external IdP with deterministic
// state/nonce handling.
type MockFederatedProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (ports.FederatedProfile, error)

	AuthURL        string
	DefaultProfile ports.FederatedProfile

	callCount int
}

// NewMockFederatedProvider creates a MockFederatedProvider with sensible defaults.
func NewMockFederatedProvider() *MockFederatedProvider {
	return &MockFederatedProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultProfile: ports.FederatedProfile{
			ID:          "google-sub-1",
			Email:       "mock.user@example.com",
			FullName:    "Mock User",
			PictureURL:  "https://mock-idp/picture.png",
			AccessToken: "mock-access-token",
		},
	}
}

func (m *MockFederatedProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.callCount++
	state := fmt.Sprintf("state-%d", m.callCount)
	nonce := fmt.Sprintf("nonce-%d", m.callCount)
	return m.AuthURL, state, nonce, nil
}

func (m *MockFederatedProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (ports.FederatedProfile, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	if in.Code == "" {
		return ports.FederatedProfile{}, errors.New("authorization code is required")
	}
	return m.DefaultProfile, nil
}

// RecorderMailer records password-reset sends for assertion.
type RecorderMailer struct {
	mu    sync.Mutex
	Err   error
	sends []RecordedSend
}

// RecordedSend captures a single SendPasswordReset invocation.
type RecordedSend struct {
	Recipient string
	Token     string
}

func (m *RecorderMailer) SendPasswordReset(_ context.Context, recipient, resetToken string) (ports.DeliveryReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return ports.DeliveryReceipt{}, m.Err
	}
	m.sends = append(m.sends, RecordedSend{Recipient: recipient, Token: resetToken})
	return ports.DeliveryReceipt{ID: fmt.Sprintf("tx-%d", len(m.sends)), Accepted: 1}, nil
}

// Sends returns a copy of the recorded invocations.
func (m *RecorderMailer) Sends() []RecordedSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedSend, len(m.sends))
	copy(out, m.sends)
	return out
}

// MemoryLimiter is a fixed-window counter without expiry, good enough for
// single-window unit tests.
type MemoryLimiter struct {
	mu     sync.Mutex
	Err    error
	counts map[string]int
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counts: make(map[string]int)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, max int, _ time.Duration) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, 0, m.Err
	}
	m.counts[key]++
	count := m.counts[key]
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= max, remaining, nil
}
