package routes

import (
	"github.com/BradenHooton/assistiva/internal/handlers"
	"github.com/BradenHooton/assistiva/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	adminAPIKey string,
) {
	// Public routes - sign-in and recovery
	authHandler.RegisterRoutes(router)

	// Account administration - admin API key required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(adminAPIKey))
		accountHandler.RegisterRoutes(r)
	})
}
