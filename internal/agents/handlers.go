package agents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/llm"
	"github.com/agentchat/pkg/models"
)

// Defaults applied to new agents when the request leaves them unset
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// Handlers contains the agent CRUD handler methods
type Handlers struct {
	store   Store
	catalog *llm.Catalog
	policy  auth.Policy
}

// NewHandlers creates agent handlers
func NewHandlers(store Store, catalog *llm.Catalog, policy auth.Policy) *Handlers {
	return &Handlers{store: store, catalog: catalog, policy: policy}
}

// List handles GET /agents with the abbreviated projection
func (h *Handlers) List(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, false); err != nil {
		return err
	}

	all, err := h.store.List(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list agents")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list agents")
	}

	summaries := make([]models.AgentSummary, 0, len(all))
	for _, a := range all {
		summaries = append(summaries, a.Summary())
	}
	return c.JSON(http.StatusOK, summaries)
}

// Create handles POST /agents
func (h *Handlers) Create(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, true); err != nil {
		return err
	}

	var agent models.Agent
	if err := c.Bind(&agent); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	agent.ID = 0
	if agent.Temperature == 0 {
		agent.Temperature = DefaultTemperature
	}
	if agent.MaxTokens == 0 {
		agent.MaxTokens = DefaultMaxTokens
	}
	if err := h.validate(&agent); err != nil {
		return err
	}

	if err := h.store.Create(c.Request().Context(), &agent); err != nil {
		log.Error().Err(err).Msg("Failed to create agent")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create agent")
	}
	return c.JSON(http.StatusCreated, agent)
}

// Get handles GET /agents/:id
func (h *Handlers) Get(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, false); err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid agent ID")
	}

	agent, err := h.store.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get agent")
	}
	return c.JSON(http.StatusOK, agent)
}

// Update handles PUT /agents/:id
func (h *Handlers) Update(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, true); err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid agent ID")
	}

	var agent models.Agent
	if err := c.Bind(&agent); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	agent.ID = id
	if err := h.validate(&agent); err != nil {
		return err
	}

	err = h.store.Update(c.Request().Context(), &agent)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update agent")
	}
	return c.JSON(http.StatusOK, agent)
}

// Delete handles DELETE /agents/:id
func (h *Handlers) Delete(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, true); err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid agent ID")
	}

	err = h.store.Delete(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete agent")
	}
	return c.NoContent(http.StatusNoContent)
}

// Duplicate handles POST /agents/:id/duplicate
func (h *Handlers) Duplicate(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, true); err != nil {
		return err
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid agent ID")
	}

	clone, err := Duplicate(c.Request().Context(), h.store, id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Agent not found")
	}
	if err != nil {
		log.Error().Err(err).Int64("agent_id", id).Msg("Failed to duplicate agent")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to duplicate agent")
	}
	return c.JSON(http.StatusCreated, clone)
}

// AvailableModels handles GET /agents/available-models
func (h *Handlers) AvailableModels(c echo.Context) error {
	if _, err := auth.Require(c, h.policy, false); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.catalog.All())
}

func (h *Handlers) validate(agent *models.Agent) error {
	if strings.TrimSpace(agent.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if strings.TrimSpace(agent.SystemPrompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "system_prompt is required")
	}
	if !h.catalog.Has(agent.LLMModel) {
		return echo.NewHTTPError(http.StatusBadRequest, "llm_model is not a supported model")
	}
	if agent.Temperature < 0 || agent.Temperature > 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "temperature must be between 0 and 2")
	}
	if agent.MaxTokens <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "max_tokens must be positive")
	}
	return nil
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
