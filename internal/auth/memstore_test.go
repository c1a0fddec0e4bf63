package auth

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-saas-starter/internal/user"
)

// memStorage is an in-memory Storage. WithTx restores a snapshot when fn
// fails, which is enough to observe rollbacks.
type memStorage struct {
	mu            sync.Mutex
	users         map[uuid.UUID]user.User
	accounts      map[uuid.UUID]Account
	sessions      map[string]Session
	verifications map[string]Verification
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:         map[uuid.UUID]user.User{},
		accounts:      map[uuid.UUID]Account{},
		sessions:      map[string]Session{},
		verifications: map[string]Verification{},
	}
}

func (m *memStorage) Users() UserStore                 { return memUsers{m} }
func (m *memStorage) Accounts() AccountStore           { return memAccounts{m} }
func (m *memStorage) Sessions() SessionStore           { return memSessions{m} }
func (m *memStorage) Verifications() VerificationStore { return memVerifications{m} }

func (m *memStorage) WithTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error {
	m.mu.Lock()
	users, accounts := maps.Clone(m.users), maps.Clone(m.accounts)
	sessions, verifications := maps.Clone(m.sessions), maps.Clone(m.verifications)
	m.mu.Unlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.users, m.accounts, m.sessions, m.verifications = users, accounts, sessions, verifications
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStorage) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memUsers struct{ m *memStorage }

func (s memUsers) Create(_ context.Context, name, email string) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.m.users {
		if u.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}
	now := time.Now()
	u := user.User{ID: uuid.New(), Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	s.m.users[u.ID] = u
	return &u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (s memUsers) MarkEmailVerified(_ context.Context, id uuid.UUID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok || u.EmailVerified {
		return false, nil
	}
	u.EmailVerified = true
	s.m.users[id] = u
	return true, nil
}

type memAccounts struct{ m *memStorage }

func (s memAccounts) CreateCredential(_ context.Context, userID uuid.UUID, passwordHash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.accounts[userID] = Account{
		ID:           uuid.New(),
		UserID:       userID,
		ProviderID:   credentialProvider,
		AccountID:    userID.String(),
		PasswordHash: passwordHash,
	}
	return nil
}

func (s memAccounts) GetCredential(_ context.Context, userID uuid.UUID) (*Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.accounts[userID]
	if !ok {
		return nil, errNotFound
	}
	return &a, nil
}

func (s memAccounts) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.accounts[userID]
	if !ok {
		return errNotFound
	}
	a.PasswordHash = passwordHash
	s.m.accounts[userID] = a
	return nil
}

type memSessions struct{ m *memStorage }

func (s memSessions) Create(_ context.Context, session *Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.sessions[session.TokenHash] = *session
	return nil
}

func (s memSessions) GetByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	session, ok := s.m.sessions[tokenHash]
	if !ok {
		return nil, errNotFound
	}
	return &session, nil
}

func (s memSessions) UpdateExpiry(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for h, session := range s.m.sessions {
		if session.ID == id {
			session.ExpiresAt = expiresAt
			s.m.sessions[h] = session
			return nil
		}
	}
	return nil
}

func (s memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.sessions, tokenHash)
	return nil
}

func (s memSessions) DeleteByUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var hashes []string
	for h, session := range s.m.sessions {
		if session.UserID == userID {
			hashes = append(hashes, h)
			delete(s.m.sessions, h)
		}
	}
	return hashes, nil
}

type memVerifications struct{ m *memStorage }

func (s memVerifications) Create(_ context.Context, v *Verification) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.verifications[v.TokenHash] = *v
	return nil
}

func (s memVerifications) Get(_ context.Context, tokenHash, purpose string) (*Verification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	v, ok := s.m.verifications[tokenHash]
	if !ok || v.Purpose != purpose {
		return nil, errNotFound
	}
	return &v, nil
}

func (s memVerifications) Consume(_ context.Context, tokenHash, purpose string) (*Verification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	v, ok := s.m.verifications[tokenHash]
	if !ok || v.Purpose != purpose {
		return nil, errNotFound
	}
	delete(s.m.verifications, tokenHash)
	return &v, nil
}

func (s memVerifications) DeleteByIdentifier(_ context.Context, identifier, purpose string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for h, v := range s.m.verifications {
		if v.Identifier == identifier && v.Purpose == purpose {
			delete(s.m.verifications, h)
		}
	}
	return nil
}

type sentEmail struct {
	kind, to, name, link string
}

// fakeMailer records outgoing emails and fails with err when set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, name, link string) error {
	return f.record("verification", to, name, link)
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, to, name, link string) error {
	return f.record("reset", to, name, link)
}

func (f *fakeMailer) record(kind, to, name, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{kind, to, name, link})
	return nil
}

func (f *fakeMailer) last() (sentEmail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentEmail{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var errSMTPDown = errors.New("smtp: connection refused")
