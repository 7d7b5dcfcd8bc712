package agents

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentchat/pkg/models"
)

func makeAgent(name string) *models.Agent {
	return &models.Agent{
		Name:         name,
		Description:  "test agent",
		Categories:   []string{"general"},
		LLMModel:     "gpt-4o-mini",
		SystemPrompt: "You are " + name,
		Temperature:  0.7,
		MaxTokens:    2000,
		IsActive:     true,
	}
}

func TestInMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	agent := makeAgent("Helper")
	require.NoError(t, store.Create(ctx, agent))
	require.NotZero(t, agent.ID)

	got, err := store.Get(ctx, agent.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(agent, got, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("agent mismatch (-want +got):\n%s", diff)
	}

	agent.Description = "updated"
	require.NoError(t, store.Update(ctx, agent))
	got, err = store.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)

	require.NoError(t, store.Delete(ctx, agent.ID))
	_, err = store.Get(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, agent.ID), ErrNotFound)
}

func TestGetActiveFiltersInactive(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	agent := makeAgent("Retired")
	agent.IsActive = false
	require.NoError(t, store.Create(ctx, agent))

	_, err := store.Get(ctx, agent.ID)
	require.NoError(t, err)
	_, err = store.GetActive(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Create(ctx, makeAgent(name)))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, "first", all[2].Name)
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	src := makeAgent("Helper")
	require.NoError(t, store.Create(ctx, src))

	clone, err := Duplicate(ctx, store, src.ID)
	require.NoError(t, err)

	assert.Equal(t, "Helper (Copy)", clone.Name)
	assert.NotEqual(t, src.ID, clone.ID)
	assert.False(t, clone.IsActive)
	assert.Equal(t, src.SystemPrompt, clone.SystemPrompt)
	assert.Equal(t, src.LLMModel, clone.LLMModel)
	assert.Equal(t, src.Temperature, clone.Temperature)
	assert.Equal(t, src.MaxTokens, clone.MaxTokens)
	assert.Equal(t, src.Categories, clone.Categories)

	// The clone is persisted, not just returned.
	stored, err := store.Get(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, "Helper (Copy)", stored.Name)
}

func TestDuplicateMissingAgent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	_, err := Duplicate(ctx, store, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
