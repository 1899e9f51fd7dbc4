package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("operation not permitted for role")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

// CanManageCatalog gates catalog maintenance and stock reports.
func (r Role) CanManageCatalog() bool { return r == RoleAdmin }

// CanSell is true for every signed-in role.
func (r Role) CanSell() bool { return r.Valid() }

// CanAuditSales allows reading every operator's sessions and sales.
func (r Role) CanAuditSales() bool { return r == RoleAdmin }

type User struct {
	Username     string `json:"username"`
	FullName     string `json:"fullName,omitempty"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

type Store interface {
	FindUser(ctx context.Context, username string) (User, error)
}

// MemoryStore keeps operators in process; passwords are stored as bcrypt hashes only.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
	cost  int
}

// NewMemoryStore uses bcrypt.DefaultCost when cost is out of range.
func NewMemoryStore(cost int) *MemoryStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &MemoryStore{users: make(map[string]User), cost: cost}
}

func (s *MemoryStore) AddUser(username, fullName string, role Role, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("add user: username and password are required")
	}
	if !role.Valid() {
		return fmt.Errorf("add user %s: unknown role %q", username, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", username, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}
	s.users[username] = User{Username: username, FullName: fullName, Role: role, PasswordHash: string(hash)}
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
