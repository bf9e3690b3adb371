package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/assistiva/internal/mailer"
	"github.com/BradenHooton/assistiva/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	CreateFunc  func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByIDFunc func(ctx context.Context, id int64) (*models.Account, error)
	FindOneFunc func(ctx context.Context, filter models.AccountFilter) (*models.Account, error)
	ListFunc    func(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	UpdateFunc  func(ctx context.Context, account *models.Account) (*models.Account, error)
	DeleteFunc  func(ctx context.Context, id int64) error
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, &models.PersistenceError{Op: "create account", Err: io.ErrUnexpectedEOF}
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) FindOne(ctx context.Context, filter models.AccountFilter) (*models.Account, error) {
	if m.FindOneFunc != nil {
		return m.FindOneFunc(ctx, filter)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, account)
	}
	return account, nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockNotifier records every message and optionally fails
type MockNotifier struct {
	mu       sync.Mutex
	Messages []mailer.Message
	SendFunc func(ctx context.Context, msg mailer.Message) error
}

func (m *MockNotifier) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	m.Messages = append(m.Messages, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

// Last returns the most recently sent message
func (m *MockNotifier) Last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return mailer.Message{}
	}
	return m.Messages[len(m.Messages)-1]
}

// memoryAccountStore is an AccountRepository backed by a map. It applies the
// same filter, uniqueness and version semantics as the PostgreSQL repository.
type memoryAccountStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*models.Account
	updates  int
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{nextID: 1, accounts: make(map[int64]*models.Account)}
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.Salt = append([]byte(nil), a.Salt...)
	c.PasswordHash = append([]byte(nil), a.PasswordHash...)
	if a.RecoveryCode != nil {
		code := *a.RecoveryCode
		c.RecoveryCode = &code
	}
	if a.RecoveryExpiresAt != nil {
		t := *a.RecoveryExpiresAt
		c.RecoveryExpiresAt = &t
	}
	return &c
}

func (s *memoryAccountStore) uniqueViolation(a *models.Account) bool {
	for id, other := range s.accounts {
		if id != a.ID && (other.Username == a.Username || other.Email == a.Email) {
			return true
		}
	}
	return false
}

func (s *memoryAccountStore) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneAccount(a)
	stored.ID = s.nextID
	if s.uniqueViolation(stored) {
		return nil, &models.PersistenceError{Op: "create account", Err: models.ErrConflict}
	}
	s.nextID++
	stored.Version = 1
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.accounts[stored.ID] = stored
	return cloneAccount(stored), nil
}

func (s *memoryAccountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *memoryAccountStore) FindOne(_ context.Context, f models.AccountFilter) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.Account
	for _, a := range s.accounts {
		if f.Matches(a) && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return nil, models.ErrNotFound
	}
	return cloneAccount(found), nil
}

func (s *memoryAccountStore) List(_ context.Context, f models.AccountFilter) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for id := int64(1); id < s.nextID; id++ {
		if a, ok := s.accounts[id]; ok && f.Matches(a) {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func (s *memoryAccountStore) Update(_ context.Context, a *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[a.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if current.Version != a.Version {
		return nil, &models.PersistenceError{Op: "update account", Err: models.ErrStaleAccount}
	}
	if s.uniqueViolation(a) {
		return nil, &models.PersistenceError{Op: "update account", Err: models.ErrConflict}
	}

	stored := cloneAccount(a)
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.accounts[a.ID] = stored
	s.updates++
	return cloneAccount(stored), nil
}

func (s *memoryAccountStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memoryAccountStore) get(id int64) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return cloneAccount(a)
	}
	return nil
}

// testClock is a settable clock for lifecycle tests
type testClock struct {
	mu  sync.Mutex
	now time.Time
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestCredentialService wires a service over the in-memory store
func NewTestCredentialService() (*CredentialService, *memoryAccountStore, *MockNotifier, *testClock) {
	store := newMemoryAccountStore()
	notifier := &MockNotifier{}
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	cfg := DefaultCredentialConfig()
	cfg.Now = clock.Now
	cfg.ResetURLBase = "https://app.example.com/sign-in/reset-password"

	return NewCredentialService(store, notifier, cfg, testLogger()), store, notifier, clock
}
