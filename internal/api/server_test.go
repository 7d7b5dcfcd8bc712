package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/chat"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, agent *models.Agent, history []llm.Turn) (string, error) {
	return "canned response from " + agent.Name, nil
}

func (fakeGenerator) GenerateTitle(ctx context.Context, agent *models.Agent, turns []llm.Turn) (string, error) {
	return "Canned Title", nil
}

type fakeDispatcher struct {
	titleJobs []int64
	autoChats []chat.AutoChatArgs
}

func (d *fakeDispatcher) EnqueueTitleGeneration(ctx context.Context, conversationID, agentID int64) error {
	d.titleJobs = append(d.titleJobs, conversationID)
	return nil
}

func (d *fakeDispatcher) EnqueueAutoChat(ctx context.Context, args chat.AutoChatArgs) (int64, error) {
	d.autoChats = append(d.autoChats, args)
	return int64(len(d.autoChats)), nil
}

type serverFixture struct {
	server     *Server
	agentStore *agents.InMemoryStore
	chatStore  *chat.InMemoryStore
	userStore  *auth.InMemoryUserStore
	dispatcher *fakeDispatcher
	admin      *models.User
}

// newServerFixture wires the full route table in open mode backed by
// in-memory stores, so requests exercise the same path as production minus
// Postgres and the real provider.
func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{
		agentStore: agents.NewInMemoryStore(),
		chatStore:  chat.NewInMemoryStore(),
		userStore:  auth.NewInMemoryUserStore(),
		dispatcher: &fakeDispatcher{},
	}

	f.admin = &models.User{Email: "admin@example.com", IsAdmin: true}
	require.NoError(t, f.userStore.Create(context.Background(), f.admin))

	policy := auth.NewPolicy("open")
	tokens := auth.NewTokenService("test-secret")
	catalog := llm.DefaultCatalog()
	service := chat.NewService(f.agentStore, f.chatStore, fakeGenerator{}, f.dispatcher)

	f.server = NewServer(0, Deps{
		Agents:   agents.NewHandlers(f.agentStore, catalog, policy),
		Chat:     chat.NewHandlers(service, f.chatStore, f.chatStore, f.agentStore, f.dispatcher, policy),
		Auth:     auth.NewHandlers(f.userStore, tokens),
		Identify: auth.Identify(policy, tokens, f.userStore),
	})
	return f
}

func (f *serverFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) createAgent(t *testing.T, name string) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		Name:         name,
		LLMModel:     "gpt-4o-mini",
		SystemPrompt: "You are " + name,
		Temperature:  0.7,
		MaxTokens:    2000,
		IsActive:     true,
	}
	require.NoError(t, f.agentStore.Create(context.Background(), agent))
	return agent
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSendMessageEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	agent := f.createAgent(t, "Helper")

	body := fmt.Sprintf(`{"message":"hello","agent_id":%d}`, agent.ID)
	rec := f.request(t, http.MethodPost, "/api/v1/conversations/send_message", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result chat.SendMessageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "hello", result.UserMessage.Content)
	assert.Equal(t, "canned response from Helper", result.AIMessage.Content)

	// First message queues a title job.
	assert.Equal(t, []int64{result.ConversationID}, f.dispatcher.titleJobs)

	// The conversation belongs to the open-mode admin identity.
	conv, err := f.chatStore.GetConversation(context.Background(), result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, conv.UserID)
}

func TestSendMessageUnknownAgentEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	rec := f.request(t, http.MethodPost, "/api/v1/conversations/send_message", `{"message":"hi","agent_id":42}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAutoChatEndpointQueuesJob(t *testing.T) {
	f := newServerFixture(t)
	a := f.createAgent(t, "Optimist")
	b := f.createAgent(t, "Skeptic")

	body := fmt.Sprintf(`{"agent_a_id":%d,"agent_b_id":%d,"initial_message":"go","iterations":3}`, a.ID, b.ID)
	rec := f.request(t, http.MethodPost, "/api/v1/conversations/auto_chat", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.NotNil(t, resp["job_id"])

	require.Len(t, f.dispatcher.autoChats, 1)
	assert.Equal(t, 3, f.dispatcher.autoChats[0].Iterations)
	assert.Equal(t, f.admin.ID, f.dispatcher.autoChats[0].UserID)
}

func TestAutoChatIterationBounds(t *testing.T) {
	f := newServerFixture(t)
	a := f.createAgent(t, "Optimist")
	b := f.createAgent(t, "Skeptic")

	for _, iterations := range []int{0, 51, -1} {
		body := fmt.Sprintf(`{"agent_a_id":%d,"agent_b_id":%d,"initial_message":"go","iterations":%d}`, a.ID, b.ID, iterations)
		rec := f.request(t, http.MethodPost, "/api/v1/conversations/auto_chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "iterations=%d", iterations)
	}
	assert.Empty(t, f.dispatcher.autoChats)
}

func TestAutoChatInactiveAgentRejected(t *testing.T) {
	f := newServerFixture(t)
	a := f.createAgent(t, "Optimist")
	b := f.createAgent(t, "Retired")
	b.IsActive = false
	require.NoError(t, f.agentStore.Update(context.Background(), b))

	body := fmt.Sprintf(`{"agent_a_id":%d,"agent_b_id":%d,"initial_message":"go","iterations":2}`, a.ID, b.ID)
	rec := f.request(t, http.MethodPost, "/api/v1/conversations/auto_chat", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.dispatcher.autoChats)
}

func TestAvailableModelsRoutesBeforeParam(t *testing.T) {
	f := newServerFixture(t)
	rec := f.request(t, http.MethodGet, "/api/v1/agents/available-models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gpt-4o")
}

func TestConversationLifecycle(t *testing.T) {
	f := newServerFixture(t)
	agent := f.createAgent(t, "Helper")

	body := fmt.Sprintf(`{"message":"hello","agent_id":%d}`, agent.ID)
	rec := f.request(t, http.MethodPost, "/api/v1/conversations/send_message", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var result chat.SendMessageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	rec = f.request(t, http.MethodGet, "/api/v1/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].MessageCount)

	rec = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", result.ConversationID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "canned response from Helper")

	rec = f.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/conversations/%d", result.ConversationID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/conversations/%d", result.ConversationID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFolderLifecycle(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/folders", `{"name":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var folder models.Folder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &folder))

	rec = f.request(t, http.MethodPost, "/api/v1/folders", `{"name":"Work"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.request(t, http.MethodPut, fmt.Sprintf("/api/v1/folders/%d", folder.ID), `{"name":"Projects"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/folders/%d", folder.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newServerFixture(t)

	rec := f.request(t, http.MethodPost, "/api/v1/auth/register", `{"email":"new@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = f.request(t, http.MethodPost, "/api/v1/auth/login", `{"email":"new@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodPost, "/api/v1/auth/login", `{"email":"new@example.com","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
