package main

import (
	"context"
	"net/http"

	"github.com/sebuszqo/TaxManager/internal/api"
	"github.com/sebuszqo/TaxManager/internal/auth"
	"github.com/sebuszqo/TaxManager/internal/files"
	"github.com/sebuszqo/TaxManager/internal/metrics"
	"github.com/sebuszqo/TaxManager/internal/tax/interfaces"
	"github.com/sebuszqo/TaxManager/internal/user"
)

type healthChecker func(ctx context.Context) map[string]string

type Server struct {
	router      *http.ServeMux
	authHandler *auth.Handler
	authService auth.Service
	userHandler *user.Handler
	taxHandler  *interfaces.TaxHandler
	fileHandler *files.Handler
	metrics     *metrics.Metrics
	health      healthChecker
}

func NewServer(authHandler *auth.Handler, authService auth.Service, userHandler *user.Handler, taxHandler *interfaces.TaxHandler, fileHandler *files.Handler, m *metrics.Metrics, health healthChecker) *Server {
	return &Server{
		router:      http.NewServeMux(),
		authHandler: authHandler,
		authService: authService,
		userHandler: userHandler,
		taxHandler:  taxHandler,
		fileHandler: fileHandler,
		metrics:     m,
		health:      health,
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := s.health(r.Context())
	if stats["status"] != "up" {
		api.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unavailable",
			"database": stats,
		})
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"database": stats,
	})
}

func (s *Server) handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, s.metrics.Instrument(pattern, h))
}

func (s *Server) protected(pattern string, h http.HandlerFunc) {
	s.handle(pattern, s.authService.JWTAccessTokenMiddleware()(h))
}

func (s *Server) RegisterRoutes() {
	// Public routes
	s.handle("POST /api/register", http.HandlerFunc(s.authHandler.HandleRegister))
	s.handle("POST /api/login", http.HandlerFunc(s.authHandler.HandleLogin))
	s.handle("POST /api/2fa/verify", http.HandlerFunc(s.authHandler.HandleVerifyTwoFactor))
	s.handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	s.router.Handle("GET /metrics", s.metrics.Handler())

	// Refresh token route
	s.handle("PUT /api/refresh/token", s.authService.JWTRefreshTokenMiddleware()(http.HandlerFunc(s.authHandler.HandleRefreshAccessToken)))

	// Protected routes (using JWT Access Token Middleware)
	s.protected("POST /api/logout", s.authHandler.HandleLogout)
	s.protected("POST /api/2fa/register", s.authHandler.HandleRegisterTwoFactor)
	s.protected("POST /api/2fa/verify-registration", s.authHandler.HandleVerifyTwoFactorRegistration)
	s.protected("DELETE /api/2fa/disable", s.authHandler.HandleDisableTwoFactor)

	s.protected("GET /api/user/profile", s.userHandler.HandleGetUserProfile)
	s.protected("PUT /api/user/profile", s.userHandler.HandleUpdateProfile)
	s.protected("PUT /api/user/password", s.userHandler.HandleChangePassword)

	// TAX API
	s.protected("GET /api/tax", s.taxHandler.ListEntries)
	s.protected("POST /api/tax", s.taxHandler.CreateEntry)
	s.protected("PUT /api/tax/batch", s.taxHandler.SaveBatch)
	s.protected("POST /api/tax/summary", s.taxHandler.SaveSummary)
	s.protected("POST /api/tax/calculate", s.taxHandler.Calculate)
	s.protected("GET /api/tax/export", s.taxHandler.Export)
	s.protected("PUT /api/tax/type/update", s.taxHandler.UpdateType)
	s.protected("PUT /api/tax/{id}", s.taxHandler.UpdateEntry)
	s.protected("DELETE /api/tax/{id}", s.taxHandler.DeleteEntry)

	// FILES API
	s.protected("GET /api/files", s.fileHandler.HandleList)
	s.protected("POST /api/files/upload", s.fileHandler.HandleUpload)
	s.protected("GET /api/files/{id}/download", s.fileHandler.HandleDownload)
	s.protected("DELETE /api/files/{id}", s.fileHandler.HandleDelete)

	s.router.Handle("/", http.HandlerFunc(api.NotFound))
}
