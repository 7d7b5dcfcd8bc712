package agents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agentchat/pkg/models"
)

// ErrNotFound is returned when an agent does not exist or is filtered out
var ErrNotFound = errors.New("agent not found")

// Store persists agent configurations
type Store interface {
	Create(ctx context.Context, a *models.Agent) error
	Get(ctx context.Context, id int64) (*models.Agent, error)
	// GetActive returns the agent only when its active flag is set
	GetActive(ctx context.Context, id int64) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
	Update(ctx context.Context, a *models.Agent) error
	Delete(ctx context.Context, id int64) error
}

// Duplicate clones an agent: all configuration fields are copied, the name
// gets a copy suffix and the clone starts inactive with fresh identity.
func Duplicate(ctx context.Context, s Store, id int64) (*models.Agent, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := &models.Agent{
		Name:         src.Name + " (Copy)",
		Description:  src.Description,
		Categories:   append([]string(nil), src.Categories...),
		LLMModel:     src.LLMModel,
		SystemPrompt: src.SystemPrompt,
		Temperature:  src.Temperature,
		MaxTokens:    src.MaxTokens,
		IsActive:     false,
	}
	if err := s.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// InMemoryStore is a threadsafe in-memory store for tests
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]*models.Agent
	nextID int64
	now    func() time.Time
}

// NewInMemoryStore creates an empty in-memory agent store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[int64]*models.Agent),
		nextID: 1,
		now:    time.Now,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.byID[a.ID] = cloneAgent(a)
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id int64) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAgent(a), nil
}

func (s *InMemoryStore) GetActive(ctx context.Context, id int64) (*models.Agent, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Agent, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, cloneAgent(a))
	}
	// newest first, matching the postgres ordering
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Update(ctx context.Context, a *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = s.now()
	s.byID[a.ID] = cloneAgent(a)
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func cloneAgent(a *models.Agent) *models.Agent {
	copied := *a
	copied.Categories = append([]string(nil), a.Categories...)
	return &copied
}
