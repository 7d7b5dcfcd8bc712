package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/pkg/models"
)

// Handlers contains the authentication handler methods
type Handlers struct {
	users  UserStore
	tokens *TokenService
}

// NewHandlers creates auth handlers
func NewHandlers(users UserStore, tokens *TokenService) *Handlers {
	return &Handlers{users: users, tokens: tokens}
}

// RegisterRequest is the register payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Register handles account creation
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "A valid email is required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 8 characters")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create account")
	}

	user := &models.User{Email: req.Email, PasswordHash: hash}
	if err := h.users.Create(c.Request().Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "Email already registered")
		}
		log.Error().Err(err).Msg("Failed to create user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create account")
	}

	return h.issueToken(c, user, http.StatusCreated)
}

// Login handles credential verification and token issuance
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	user, err := h.users.GetByEmail(c.Request().Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil || !user.IsActive || !CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	return h.issueToken(c, user, http.StatusOK)
}

// Me returns the current user
func (h *Handlers) Me(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handlers) issueToken(c echo.Context, user *models.User, status int) error {
	token, expiresAt, err := h.tokens.CreateToken(user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	})
}
