package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/agentchat/pkg/models"
)

// Errors returned by user stores
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// FirstAdmin returns the oldest admin account, used as the implicit
	// identity in open mode
	FirstAdmin(ctx context.Context) (*models.User, error)
}

// HashPassword securely hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword verifies a password against its bcrypt hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PostgresUserStore is the pgx-backed user store
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a store backed by the given pool
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

const userColumns = `id, email, password_hash, is_admin, is_active, created_at, updated_at`

func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx, `
        INSERT INTO users (email, password_hash, is_admin)
        VALUES ($1,$2,$3)
        ON CONFLICT (email) DO NOTHING
        RETURNING id, is_active, created_at, updated_at
    `, u.Email, u.PasswordHash, u.IsAdmin).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresUserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return scanUser(row)
}

func (s *PostgresUserStore) FirstAdmin(ctx context.Context) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE is_admin ORDER BY id LIMIT 1`)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InMemoryUserStore is a threadsafe in-memory store for tests
type InMemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[int64]*models.User
	byEmail map[string]*models.User
	nextID  int64
}

// NewInMemoryUserStore creates an empty in-memory user store
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[int64]*models.User),
		byEmail: make(map[string]*models.User),
		nextID:  1,
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	u.ID = s.nextID
	s.nextID++
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	s.byID[u.ID] = &copied
	s.byEmail[u.Email] = &copied
	return nil
}

func (s *InMemoryUserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryUserStore) FirstAdmin(ctx context.Context) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first *models.User
	for _, u := range s.byID {
		if !u.IsAdmin {
			continue
		}
		if first == nil || u.ID < first.ID {
			first = u
		}
	}
	if first == nil {
		return nil, ErrUserNotFound
	}
	copied := *first
	return &copied, nil
}
