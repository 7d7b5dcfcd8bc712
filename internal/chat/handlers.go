package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// Handlers contains the conversation and folder handler methods
type Handlers struct {
	service    *Service
	store      Store
	folders    FolderStore
	agents     agents.Store
	dispatcher Dispatcher
	policy     auth.Policy
}

// NewHandlers creates chat handlers
func NewHandlers(service *Service, store Store, folders FolderStore, agentStore agents.Store, dispatcher Dispatcher, policy auth.Policy) *Handlers {
	return &Handlers{
		service:    service,
		store:      store,
		folders:    folders,
		agents:     agentStore,
		dispatcher: dispatcher,
		policy:     policy,
	}
}

// SendMessageRequest is the chat turn payload
type SendMessageRequest struct {
	Message        string `json:"message"`
	AgentID        int64  `json:"agent_id"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

// AutoChatRequest is the auto-chat launch payload
type AutoChatRequest struct {
	AgentAID       int64  `json:"agent_a_id"`
	AgentBID       int64  `json:"agent_b_id"`
	InitialMessage string `json:"initial_message"`
	Iterations     int    `json:"iterations"`
}

// ListConversations handles GET /conversations
func (h *Handlers) ListConversations(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	summaries, err := h.store.ListConversations(c.Request().Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list conversations")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list conversations")
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetConversation handles GET /conversations/:id, returning the thread with
// all messages
func (h *Handlers) GetConversation(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid conversation ID")
	}

	conv, err := h.store.GetOwnedConversation(c.Request().Context(), id, user.ID)
	if errors.Is(err, ErrConversationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load conversation")
	}

	messages, err := h.store.ListMessages(c.Request().Context(), conv.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load messages")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}

// CreateConversation handles POST /conversations
func (h *Handlers) CreateConversation(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	var conv models.Conversation
	if err := c.Bind(&conv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	conv.ID = 0
	conv.UserID = user.ID
	conv.Type = models.ConversationTypeUser

	if err := h.store.CreateConversation(c.Request().Context(), &conv); err != nil {
		log.Error().Err(err).Msg("Failed to create conversation")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create conversation")
	}
	return c.JSON(http.StatusCreated, conv)
}

// DeleteConversation handles DELETE /conversations/:id
func (h *Handlers) DeleteConversation(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid conversation ID")
	}

	err = h.store.DeleteConversation(c.Request().Context(), id, user.ID)
	if errors.Is(err, ErrConversationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

// SendMessage handles POST /conversations/send_message
func (h *Handlers) SendMessage(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if req.AgentID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "agent_id is required")
	}

	result, err := h.service.SendMessage(c.Request().Context(), user.ID, req.AgentID, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, agents.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Agent not found or inactive")
		case errors.Is(err, ErrConversationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
		case errors.Is(err, llm.ErrUnknownModel):
			return echo.NewHTTPError(http.StatusBadRequest, "Agent references an unknown model")
		default:
			log.Error().Err(err).Int64("agent_id", req.AgentID).Msg("Failed to generate response")
			return echo.NewHTTPError(http.StatusInternalServerError,
				fmt.Sprintf("Failed to generate response: %v", err))
		}
	}

	return c.JSON(http.StatusOK, result)
}

// AutoChat handles POST /conversations/auto_chat. Restricted to the admin
// tier; the job itself runs on the worker pool.
func (h *Handlers) AutoChat(c echo.Context) error {
	user, err := auth.Require(c, h.policy, true)
	if err != nil {
		return err
	}

	var req AutoChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Iterations < 1 || req.Iterations > 50 {
		return echo.NewHTTPError(http.StatusBadRequest, "iterations must be between 1 and 50")
	}
	if strings.TrimSpace(req.InitialMessage) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "initial_message is required")
	}

	// Both agents must exist and be active before the job is queued
	ctx := c.Request().Context()
	if _, err := h.agents.GetActive(ctx, req.AgentAID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "One or more agents not found or inactive")
	}
	if _, err := h.agents.GetActive(ctx, req.AgentBID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "One or more agents not found or inactive")
	}

	jobID, err := h.dispatcher.EnqueueAutoChat(ctx, AutoChatArgs{
		AgentAID:       req.AgentAID,
		AgentBID:       req.AgentBID,
		InitialMessage: req.InitialMessage,
		Iterations:     req.Iterations,
		UserID:         user.ID,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to enqueue auto-chat job")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start auto-chat")
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"status":  "started",
		"job_id":  jobID,
		"message": fmt.Sprintf("Auto-chat started with %d iterations", req.Iterations),
	})
}

// ListFolders handles GET /folders
func (h *Handlers) ListFolders(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	folders, err := h.folders.ListFolders(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list folders")
	}
	return c.JSON(http.StatusOK, folders)
}

// CreateFolder handles POST /folders
func (h *Handlers) CreateFolder(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	var folder models.Folder
	if err := c.Bind(&folder); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(folder.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	folder.ID = 0
	folder.UserID = user.ID

	err = h.folders.CreateFolder(c.Request().Context(), &folder)
	if errors.Is(err, ErrFolderExists) {
		return echo.NewHTTPError(http.StatusConflict, "Folder with this name already exists")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create folder")
	}
	return c.JSON(http.StatusCreated, folder)
}

// UpdateFolder handles PUT /folders/:id
func (h *Handlers) UpdateFolder(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid folder ID")
	}

	var folder models.Folder
	if err := c.Bind(&folder); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	folder.ID = id
	folder.UserID = user.ID

	err = h.folders.UpdateFolder(c.Request().Context(), &folder)
	switch {
	case errors.Is(err, ErrFolderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Folder not found")
	case errors.Is(err, ErrFolderExists):
		return echo.NewHTTPError(http.StatusConflict, "Folder with this name already exists")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update folder")
	}
	return c.JSON(http.StatusOK, folder)
}

// DeleteFolder handles DELETE /folders/:id
func (h *Handlers) DeleteFolder(c echo.Context) error {
	user, err := auth.Require(c, h.policy, false)
	if err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid folder ID")
	}

	err = h.folders.DeleteFolder(c.Request().Context(), id, user.ID)
	if errors.Is(err, ErrFolderNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Folder not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete folder")
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
