package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentchat/pkg/models"
)

// InMemoryStore is a threadsafe in-memory conversation store for tests.
// It implements both Store and FolderStore.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[int64]*models.Conversation
	messages      map[int64][]*models.Message
	agents        map[int64][]int64
	folders       map[int64]*models.Folder
	nextConvID    int64
	nextMsgID     int64
	nextFolderID  int64
	clock         func() time.Time
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64][]*models.Message),
		agents:        make(map[int64][]int64),
		folders:       make(map[int64]*models.Folder),
		nextConvID:    1,
		nextMsgID:     1,
		nextFolderID:  1,
	}
	// Monotonic clock so message ordering is deterministic even when the
	// wall clock resolution is coarse.
	var tick int64
	base := time.Now()
	s.clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Microsecond)
	}
	return s
}

func (s *InMemoryStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.Type == "" {
		conv.Type = models.ConversationTypeUser
	}
	conv.ID = s.nextConvID
	s.nextConvID++
	conv.CreatedAt = s.clock()
	conv.UpdatedAt = conv.CreatedAt
	copied := *conv
	s.conversations[conv.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return s.cloneConversation(conv), nil
}

func (s *InMemoryStore) GetOwnedConversation(ctx context.Context, id, userID int64) (*models.Conversation, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *InMemoryStore) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConversationSummary, 0)
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		cs := models.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			Type:         conv.Type,
			FolderID:     conv.FolderID,
			MessageCount: len(s.messages[conv.ID]),
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		}
		if conv.FolderID != nil {
			if f, ok := s.folders[*conv.FolderID]; ok {
				cs.FolderName = f.Name
			}
		}
		if msgs := s.messages[conv.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			content := last.Content
			if len(content) > 100 {
				content = content[:100]
			}
			cs.LastMessage = &models.MessagePreview{
				Content:   content,
				Role:      last.Role,
				CreatedAt: last.CreatedAt,
			}
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) DeleteConversation(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || conv.UserID != userID {
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	delete(s.agents, id)
	return nil
}

func (s *InMemoryStore) AttachAgents(ctx context.Context, conversationID int64, agentIDs ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	existing := s.agents[conversationID]
	for _, agentID := range agentIDs {
		seen := false
		for _, id := range existing {
			if id == agentID {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, agentID)
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i] < existing[j] })
	s.agents[conversationID] = existing
	return nil
}

func (s *InMemoryStore) FirstAgentID(ctx context.Context, conversationID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.agents[conversationID]
	if len(ids) == 0 {
		return 0, ErrNoAgent
	}
	return ids[0], nil
}

func (s *InMemoryStore) SetTitleIfEmpty(ctx context.Context, conversationID int64, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return false, ErrConversationNotFound
	}
	if conv.Title != "" {
		return false, nil
	}
	conv.Title = title
	conv.UpdatedAt = s.clock()
	return true, nil
}

func (s *InMemoryStore) AppendMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[m.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}
	m.ID = s.nextMsgID
	s.nextMsgID++
	m.CreatedAt = s.clock()
	copied := *m
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], &copied)
	conv.UpdatedAt = m.CreatedAt
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	out := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[conversationID]), nil
}

func (s *InMemoryStore) CreateFolder(ctx context.Context, f *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.folders {
		if existing.UserID == f.UserID && existing.Name == f.Name && equalFolderParent(existing.ParentID, f.ParentID) {
			return ErrFolderExists
		}
	}
	f.ID = s.nextFolderID
	s.nextFolderID++
	f.CreatedAt = s.clock()
	f.UpdatedAt = f.CreatedAt
	copied := *f
	s.folders[f.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListFolders(ctx context.Context, userID int64) ([]*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Folder, 0)
	for _, f := range s.folders {
		if f.UserID == userID {
			copied := *f
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].Name < out[j].Name
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (s *InMemoryStore) UpdateFolder(ctx context.Context, f *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.folders[f.ID]
	if !ok || existing.UserID != f.UserID {
		return ErrFolderNotFound
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = s.clock()
	copied := *f
	s.folders[f.ID] = &copied
	return nil
}

func (s *InMemoryStore) DeleteFolder(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok || f.UserID != userID {
		return ErrFolderNotFound
	}
	delete(s.folders, id)
	for _, conv := range s.conversations {
		if conv.FolderID != nil && *conv.FolderID == id {
			conv.FolderID = nil
		}
	}
	return nil
}

func (s *InMemoryStore) cloneConversation(conv *models.Conversation) *models.Conversation {
	copied := *conv
	copied.AgentIDs = append([]int64(nil), s.agents[conv.ID]...)
	return &copied
}

func equalFolderParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
