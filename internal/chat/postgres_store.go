package chat

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentchat/pkg/models"
)

// PostgresStore is the pgx-backed conversation/message store
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore { return &PostgresStore{pool: pool} }

func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.Type == "" {
		conv.Type = models.ConversationTypeUser
	}
	return s.pool.QueryRow(ctx, `
        INSERT INTO conversations (title, conversation_type, user_id, folder_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at
    `, conv.Title, conv.Type, conv.UserID, conv.FolderID,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
}

const conversationColumns = `id, title, conversation_type, user_id, folder_id, created_at, updated_at`

func (s *PostgresStore) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, id)
	return s.scanConversation(ctx, row)
}

func (s *PostgresStore) GetOwnedConversation(ctx context.Context, id, userID int64) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1 AND user_id=$2`, id, userID)
	return s.scanConversation(ctx, row)
}

func (s *PostgresStore) scanConversation(ctx context.Context, row pgx.Row) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.Title, &conv.Type, &conv.UserID, &conv.FolderID,
		&conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT agent_id FROM conversation_agents WHERE conversation_id=$1 ORDER BY agent_id`, conv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var agentID int64
		if err := rows.Scan(&agentID); err != nil {
			return nil, err
		}
		conv.AgentIDs = append(conv.AgentIDs, agentID)
	}
	return &conv, rows.Err()
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT c.id, c.title, c.conversation_type, c.folder_id, coalesce(f.name,''),
               c.created_at, c.updated_at,
               (SELECT count(*) FROM messages m WHERE m.conversation_id = c.id),
               lm.content, lm.role, lm.created_at
        FROM conversations c
        LEFT JOIN folders f ON f.id = c.folder_id
        LEFT JOIN LATERAL (
            SELECT left(content, 100) AS content, role, created_at
            FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) lm ON true
        WHERE c.user_id = $1
        ORDER BY c.updated_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var cs models.ConversationSummary
		var lastContent, lastRole *string
		var lastAt *time.Time
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.Type, &cs.FolderID, &cs.FolderName,
			&cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount,
			&lastContent, &lastRole, &lastAt); err != nil {
			return nil, err
		}
		if lastContent != nil && lastRole != nil && lastAt != nil {
			cs.LastMessage = &models.MessagePreview{
				Content:   *lastContent,
				Role:      *lastRole,
				CreatedAt: *lastAt,
			}
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (s *PostgresStore) AttachAgents(ctx context.Context, conversationID int64, agentIDs ...int64) error {
	for _, agentID := range agentIDs {
		_, err := s.pool.Exec(ctx, `
            INSERT INTO conversation_agents (conversation_id, agent_id)
            VALUES ($1,$2) ON CONFLICT DO NOTHING
        `, conversationID, agentID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) FirstAgentID(ctx context.Context, conversationID int64) (int64, error) {
	var agentID int64
	err := s.pool.QueryRow(ctx, `
        SELECT agent_id FROM conversation_agents WHERE conversation_id=$1 ORDER BY agent_id LIMIT 1
    `, conversationID).Scan(&agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoAgent
	}
	return agentID, err
}

func (s *PostgresStore) SetTitleIfEmpty(ctx context.Context, conversationID int64, title string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE conversations SET title=$1, updated_at=now() WHERE id=$2 AND title=''
    `, title, conversationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, m *models.Message) error {
	metadata := m.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}
	err := s.pool.QueryRow(ctx, `
        INSERT INTO messages (conversation_id, role, content, agent_id, is_auto_chat, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at
    `, m.ConversationID, m.Role, m.Content, m.AgentID, m.IsAutoChat, metadata,
	).Scan(&m.ID, &m.CreatedAt)
	if isForeignKeyViolation(err) {
		return ErrConversationNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `UPDATE conversations SET updated_at=now() WHERE id=$1`, m.ConversationID)
	return err
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT m.id, m.conversation_id, m.role, m.content, m.agent_id, coalesce(a.name,''),
               m.is_auto_chat, m.metadata, m.created_at
        FROM messages m
        LEFT JOIN agents a ON a.id = m.agent_id
        WHERE m.conversation_id=$1
        ORDER BY m.created_at, m.id
    `, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.AgentID,
			&m.AgentName, &m.IsAutoChat, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE conversation_id=$1`, conversationID).Scan(&count)
	return count, err
}

// Folder operations

func (s *PostgresStore) CreateFolder(ctx context.Context, f *models.Folder) error {
	err := s.pool.QueryRow(ctx, `
        INSERT INTO folders (name, user_id, parent_id, sort_order)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at
    `, f.Name, f.UserID, f.ParentID, f.Order).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrFolderExists
	}
	return err
}

func (s *PostgresStore) ListFolders(ctx context.Context, userID int64) ([]*models.Folder, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, name, user_id, parent_id, sort_order, created_at, updated_at
        FROM folders WHERE user_id=$1 ORDER BY sort_order, name
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Folder, 0)
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.UserID, &f.ParentID, &f.Order, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFolder(ctx context.Context, f *models.Folder) error {
	err := s.pool.QueryRow(ctx, `
        UPDATE folders SET name=$1, parent_id=$2, sort_order=$3, updated_at=now()
        WHERE id=$4 AND user_id=$5
        RETURNING updated_at
    `, f.Name, f.ParentID, f.Order, f.ID, f.UserID).Scan(&f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrFolderNotFound
	}
	if isUniqueViolation(err) {
		return ErrFolderExists
	}
	return err
}

func (s *PostgresStore) DeleteFolder(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM folders WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
