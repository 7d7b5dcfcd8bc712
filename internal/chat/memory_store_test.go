package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentchat/pkg/models"
)

func TestSetTitleIfEmptyIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	conv := &models.Conversation{UserID: 1}
	require.NoError(t, store.CreateConversation(ctx, conv))

	applied, err := store.SetTitleIfEmpty(ctx, conv.ID, "First")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.SetTitleIfEmpty(ctx, conv.ID, "Second")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
}

func TestListConversationsPreviewAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	older := &models.Conversation{UserID: 1, Title: "older"}
	require.NoError(t, store.CreateConversation(ctx, older))
	newer := &models.Conversation{UserID: 1, Title: "newer"}
	require.NoError(t, store.CreateConversation(ctx, newer))

	long := strings.Repeat("z", 150)
	require.NoError(t, store.AppendMessage(ctx, &models.Message{
		ConversationID: older.ID,
		Role:           models.RoleHuman,
		Content:        long,
	}))

	summaries, err := store.ListConversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// The appended message bumps the older conversation to the top.
	assert.Equal(t, "older", summaries[0].Title)
	assert.Equal(t, 1, summaries[0].MessageCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Len(t, summaries[0].LastMessage.Content, 100)

	assert.Equal(t, "newer", summaries[1].Title)
	assert.Nil(t, summaries[1].LastMessage)
}

func TestListConversationsScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.CreateConversation(ctx, &models.Conversation{UserID: 1}))
	require.NoError(t, store.CreateConversation(ctx, &models.Conversation{UserID: 2}))

	mine, err := store.ListConversations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestDeleteConversationChecksOwner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	conv := &models.Conversation{UserID: 1}
	require.NoError(t, store.CreateConversation(ctx, conv))

	assert.ErrorIs(t, store.DeleteConversation(ctx, conv.ID, 2), ErrConversationNotFound)
	require.NoError(t, store.DeleteConversation(ctx, conv.ID, 1))

	_, err := store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestFirstAgentIDReturnsLowest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	conv := &models.Conversation{UserID: 1}
	require.NoError(t, store.CreateConversation(ctx, conv))

	_, err := store.FirstAgentID(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNoAgent)

	require.NoError(t, store.AttachAgents(ctx, conv.ID, 9, 3, 5))
	id, err := store.FirstAgentID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestFolderNameConflict(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	f := &models.Folder{UserID: 1, Name: "Work"}
	require.NoError(t, store.CreateFolder(ctx, f))

	err := store.CreateFolder(ctx, &models.Folder{UserID: 1, Name: "Work"})
	assert.ErrorIs(t, err, ErrFolderExists)

	// Same name under a different parent or another user is fine.
	require.NoError(t, store.CreateFolder(ctx, &models.Folder{UserID: 1, Name: "Work", ParentID: &f.ID}))
	require.NoError(t, store.CreateFolder(ctx, &models.Folder{UserID: 2, Name: "Work"}))
}

func TestDeleteFolderDetachesConversations(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	folder := &models.Folder{UserID: 1, Name: "Work"}
	require.NoError(t, store.CreateFolder(ctx, folder))

	conv := &models.Conversation{UserID: 1, FolderID: &folder.ID}
	require.NoError(t, store.CreateConversation(ctx, conv))

	require.NoError(t, store.DeleteFolder(ctx, folder.ID, 1))

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)
}

func TestListFoldersSortedByOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.CreateFolder(ctx, &models.Folder{UserID: 1, Name: "Beta", Order: 2}))
	require.NoError(t, store.CreateFolder(ctx, &models.Folder{UserID: 1, Name: "Alpha", Order: 1}))

	folders, err := store.ListFolders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "Alpha", folders[0].Name)
	assert.Equal(t, "Beta", folders[1].Name)
}
