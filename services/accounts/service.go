package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"presetwave/models"
)

var (
	ErrStorageDirRequired  = errors.New("storage directory not provided")
	ErrNameRequired        = errors.New("name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrAccountNotFound     = errors.New("account not found")
	ErrEmailExists         = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRole         = errors.New("invalid role")
	ErrCannotDeleteLastAdm = errors.New("cannot delete the last admin account")
)

// dummyHash is a valid bcrypt hash of an unguessable value, compared against
// when the email does not match any account so that unknown-email and
// wrong-password failures fall in the same timing class.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service manages the account registry: the set of known identities the
// credential verifier checks against.
type Service struct {
	mu       sync.RWMutex
	path     string
	accounts map[string]models.Account
}

// seedAccount describes an account created on first run.
type seedAccount struct {
	id       string
	name     string
	email    string
	password string
	role     models.Role
	status   models.AccountStatus
}

// demoSeed mirrors the storefront's demo directory. Only the first two have
// documented passwords; the rest exist so the back-office has data to manage.
var demoSeed = []seedAccount{
	{id: "1", name: "Admin User", email: "admin@illuminaattii.com", password: "admin123", role: models.RoleAdmin, status: models.AccountActive},
	{id: "2", name: "Test User", email: "user@example.com", password: "password123", role: models.RoleUser, status: models.AccountActive},
	{id: "3", name: "Jane Smith", email: "jane@example.com", role: models.RoleUser, status: models.AccountActive},
	{id: "4", name: "John Doe", email: "john@example.com", role: models.RoleUser, status: models.AccountInactive},
	{id: "5", name: "Sarah Johnson", email: "sarah@example.com", role: models.RoleUser, status: models.AccountActive},
}

// NewService creates an accounts service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts dir: %w", err)
	}

	svc := &Service{
		path:     filepath.Join(storageDir, "accounts.json"),
		accounts: make(map[string]models.Account),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	if err := svc.ensureSeedAccounts(); err != nil {
		return nil, err
	}

	return svc, nil
}

// List returns all accounts sorted with admins first, then by creation time.
func (s *Service) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}

	sort.Slice(accounts, func(i, j int) bool {
		iAdmin := accounts[i].Role == models.RoleAdmin
		jAdmin := accounts[j].Role == models.RoleAdmin
		if iAdmin != jAdmin {
			return iAdmin
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	return accounts
}

// Get returns the account with the given ID if present.
func (s *Service) Get(id string) (models.Account, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	return account, ok
}

// GetByEmail returns the account with the given email if present.
// The match is exact and case-sensitive.
func (s *Service) GetByEmail(email string) (models.Account, bool) {
	if email == "" {
		return models.Account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return models.Account{}, false
}

// TokenEpoch returns the current token epoch for an account. Unknown
// accounts report epoch 0, which decode treats as stale for any real token.
func (s *Service) TokenEpoch(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[id]; ok {
		return a.TokenEpoch
	}
	return 0
}

// Verify checks an email/password pair against the registry and returns the
// matching account. It is a pure lookup: no side effects, safe to call
// concurrently. Unknown email, wrong password and inactive account all
// resolve to the same ErrInvalidCredentials so callers cannot enumerate
// registered emails, and the unknown-email path burns a bcrypt comparison to
// stay in the same timing class as a wrong-password failure.
func (s *Service) Verify(email, password string) (models.Account, error) {
	if email == "" || password == "" {
		return models.Account{}, ErrInvalidCredentials
	}

	account, found := s.GetByEmail(email)
	if !found {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return models.Account{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return models.Account{}, ErrInvalidCredentials
	}

	if !account.IsActive() {
		return models.Account{}, ErrInvalidCredentials
	}

	return account, nil
}

// Create registers a new account with the provided details.
func (s *Service) Create(name, email, password string, role models.Role) (models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Account{}, ErrNameRequired
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return models.Account{}, ErrEmailRequired
	}
	if password == "" {
		return models.Account{}, ErrPasswordRequired
	}
	if !role.Valid() {
		return models.Account{}, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return models.Account{}, ErrEmailExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	account := models.Account{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.AccountActive,
		TokenEpoch:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.accounts[id] = account

	if err := s.saveLocked(); err != nil {
		delete(s.accounts, id)
		return models.Account{}, err
	}

	return account, nil
}

// Rename changes the display name for an account.
func (s *Service) Rename(id, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	account.Name = newName
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	return s.saveLocked()
}

// SetRole changes an account's role. The change takes effect for new tokens
// only; already-issued tokens keep their role claim until expiry or an epoch
// bump, an accepted staleness window.
func (s *Service) SetRole(id string, role models.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	if account.Role == models.RoleAdmin && role != models.RoleAdmin && s.adminCountLocked() <= 1 {
		return ErrCannotDeleteLastAdm
	}

	account.Role = role
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	return s.saveLocked()
}

// SetStatus activates or deactivates an account. Deactivation also bumps the
// token epoch so outstanding sessions die immediately.
func (s *Service) SetStatus(id string, status models.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	account.Status = status
	if status == models.AccountInactive {
		account.TokenEpoch++
	}
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	return s.saveLocked()
}

// UpdatePassword changes the password for an account and bumps the token
// epoch, invalidating every previously issued session token.
func (s *Service) UpdatePassword(id, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	account.PasswordHash = string(hash)
	account.TokenEpoch++
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	return s.saveLocked()
}

// BumpEpoch invalidates all outstanding session tokens for an account
// ("sign out everywhere").
func (s *Service) BumpEpoch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	account.TokenEpoch++
	account.UpdatedAt = time.Now().UTC()
	s.accounts[id] = account

	return s.saveLocked()
}

// Delete removes an account by ID. The last admin cannot be deleted.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}

	if account.Role == models.RoleAdmin && s.adminCountLocked() <= 1 {
		return ErrCannotDeleteLastAdm
	}

	delete(s.accounts, id)

	return s.saveLocked()
}

func (s *Service) adminCountLocked() int {
	count := 0
	for _, a := range s.accounts {
		if a.Role == models.RoleAdmin {
			count++
		}
	}
	return count
}

// ensureSeedAccounts populates the registry on first run.
func (s *Service) ensureSeedAccounts() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.accounts) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, seed := range demoSeed {
		password := seed.password
		if password == "" {
			// Directory-only demo entries get a random unguessable password.
			random := make([]byte, 18)
			if _, err := rand.Read(random); err != nil {
				return fmt.Errorf("generate seed password: %w", err)
			}
			password = base64.URLEncoding.EncodeToString(random)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}

		s.accounts[seed.id] = models.Account{
			ID:           seed.id,
			Name:         seed.name,
			Email:        seed.email,
			PasswordHash: string(hash),
			Role:         seed.role,
			Status:       seed.status,
			TokenEpoch:   1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open accounts file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	var stored []models.AccountStorage
	if err := dec.Decode(&stored); err != nil {
		return fmt.Errorf("decode accounts: %w", err)
	}

	s.accounts = make(map[string]models.Account, len(stored))
	for _, accountStorage := range stored {
		if strings.TrimSpace(accountStorage.ID) == "" {
			continue
		}
		account := accountStorage.ToAccount()
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
		if account.UpdatedAt.IsZero() {
			account.UpdatedAt = account.CreatedAt
		}
		if account.TokenEpoch == 0 {
			account.TokenEpoch = 1
		}
		s.accounts[account.ID] = account
	}

	return nil
}

func (s *Service) saveLocked() error {
	storage := make([]models.AccountStorage, 0, len(s.accounts))
	for _, account := range s.accounts {
		storage = append(storage, account.ToStorage())
	}

	sort.Slice(storage, func(i, j int) bool {
		if (storage[i].Role == models.RoleAdmin) != (storage[j].Role == models.RoleAdmin) {
			return storage[i].Role == models.RoleAdmin
		}
		return storage[i].CreatedAt.Before(storage[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create accounts temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(storage); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode accounts: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync accounts: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close accounts temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}

	return nil
}
