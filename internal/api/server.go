package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/agentchat/internal/agents"
	"github.com/agentchat/internal/auth"
	"github.com/agentchat/internal/chat"
)

// Server is the HTTP API server
type Server struct {
	echo *echo.Echo
	port int
}

// Deps are the wired handler dependencies for the API surface
type Deps struct {
	Agents   *agents.Handlers
	Chat     *chat.Handlers
	Auth     *auth.Handlers
	Identify echo.MiddlewareFunc
}

// NewServer creates the API server with all routes registered
func NewServer(port int, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(deps.Identify)

	server := &Server{
		echo: e,
		port: port,
	}
	server.setupRoutes(deps)
	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(deps Deps) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	// Auth endpoints
	v1.POST("/auth/register", deps.Auth.Register)
	v1.POST("/auth/login", deps.Auth.Login)
	v1.GET("/auth/me", deps.Auth.Me)

	// Agent endpoints. The static path must be registered before the
	// parameterized one so "available-models" is not read as an ID.
	v1.GET("/agents/available-models", deps.Agents.AvailableModels)
	v1.GET("/agents", deps.Agents.List)
	v1.POST("/agents", deps.Agents.Create)
	v1.GET("/agents/:id", deps.Agents.Get)
	v1.PUT("/agents/:id", deps.Agents.Update)
	v1.DELETE("/agents/:id", deps.Agents.Delete)
	v1.POST("/agents/:id/duplicate", deps.Agents.Duplicate)

	// Conversation endpoints
	v1.GET("/conversations", deps.Chat.ListConversations)
	v1.POST("/conversations", deps.Chat.CreateConversation)
	v1.POST("/conversations/send_message", deps.Chat.SendMessage)
	v1.POST("/conversations/auto_chat", deps.Chat.AutoChat)
	v1.GET("/conversations/:id", deps.Chat.GetConversation)
	v1.DELETE("/conversations/:id", deps.Chat.DeleteConversation)

	// Folder endpoints
	v1.GET("/folders", deps.Chat.ListFolders)
	v1.POST("/folders", deps.Chat.CreateFolder)
	v1.PUT("/folders/:id", deps.Chat.UpdateFolder)
	v1.DELETE("/folders/:id", deps.Chat.DeleteFolder)
}

// Start runs the server until an interrupt or termination signal arrives,
// then shuts down gracefully
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Shutting down the server")
		}
	}()
	log.Info().Int("port", s.port).Msg("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Shutdown stops the server without waiting for a signal
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
