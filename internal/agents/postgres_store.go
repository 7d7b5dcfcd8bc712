package agents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentchat/pkg/models"
)

// PostgresStore is the pgx-backed agent store
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore { return &PostgresStore{pool: pool} }

const agentColumns = `id, name, description, categories, llm_model, system_prompt, temperature, max_tokens, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Agent) error {
	return s.pool.QueryRow(ctx, `
        INSERT INTO agents (name, description, categories, llm_model, system_prompt, temperature, max_tokens, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at
    `, a.Name, a.Description, ensureSliceNotNil(a.Categories), a.LLMModel, a.SystemPrompt, a.Temperature, a.MaxTokens, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*models.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1`, id)
	return scanAgent(row)
}

func (s *PostgresStore) GetActive(ctx context.Context, id int64) (*models.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id=$1 AND is_active`, id)
	return scanAgent(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Agent, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Always return a non-nil slice so JSON encodes as [] instead of null
	out := make([]*models.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Agent) error {
	err := s.pool.QueryRow(ctx, `
        UPDATE agents
        SET name=$1, description=$2, categories=$3, llm_model=$4, system_prompt=$5,
            temperature=$6, max_tokens=$7, is_active=$8, updated_at=now()
        WHERE id=$9
        RETURNING updated_at
    `, a.Name, a.Description, ensureSliceNotNil(a.Categories), a.LLMModel, a.SystemPrompt,
		a.Temperature, a.MaxTokens, a.IsActive, a.ID,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Categories, &a.LLMModel,
		&a.SystemPrompt, &a.Temperature, &a.MaxTokens, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func ensureSliceNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
