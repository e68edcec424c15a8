package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/peerlink/backend/internal/auth"
	"github.com/peerlink/backend/internal/middleware"
	"go.uber.org/zap"
)

// Router holds all handlers and creates the chi router
type Router struct {
	profileHandler    *ProfileHandler
	matchHandler      *MatchHandler
	connectionHandler *ConnectionHandler
	chatHandler       *ChatHandler
	healthHandler     *HealthHandler
	verifier          auth.Verifier
	requestLimiter    middleware.Limiter
	allowedOrigins    []string
	logger            *zap.Logger
}

// RouterDeps groups what NewRouter needs; RequestLimiter may be nil
type RouterDeps struct {
	ProfileHandler    *ProfileHandler
	MatchHandler      *MatchHandler
	ConnectionHandler *ConnectionHandler
	ChatHandler       *ChatHandler
	HealthHandler     *HealthHandler
	Verifier          auth.Verifier
	RequestLimiter    middleware.Limiter
	AllowedOrigins    []string
	Logger            *zap.Logger
}

// NewRouter creates a new router
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		profileHandler:    deps.ProfileHandler,
		matchHandler:      deps.MatchHandler,
		connectionHandler: deps.ConnectionHandler,
		chatHandler:       deps.ChatHandler,
		healthHandler:     deps.HealthHandler,
		verifier:          deps.Verifier,
		requestLimiter:    deps.RequestLimiter,
		allowedOrigins:    deps.AllowedOrigins,
		logger:            deps.Logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.verifier))

		// The upgraded connection must not be wrapped by Compress
		r.Get("/ws", rt.chatHandler.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Get("/me/profile", rt.profileHandler.GetMe)
			r.Put("/me/profile", rt.profileHandler.PutMe)
			r.Patch("/me/availability", rt.profileHandler.SetAvailability)
			r.Get("/profiles/{userId}", rt.profileHandler.GetProfile)

			r.Get("/matches", rt.matchHandler.GetMatches)

			r.Route("/connections", func(r chi.Router) {
				r.Get("/{userId}/status", rt.connectionHandler.GetStatus)

				r.Route("/requests", func(r chi.Router) {
					r.With(middleware.RateLimit(rt.requestLimiter, rt.logger)).
						Post("/", rt.connectionHandler.SendRequest)
					r.Get("/received", rt.connectionHandler.ListReceived)
					r.Get("/sent", rt.connectionHandler.ListSent)
					r.Post("/{id}/accept", rt.connectionHandler.Accept)
					r.Post("/{id}/reject", rt.connectionHandler.Reject)
					r.Delete("/{id}", rt.connectionHandler.Cancel)
				})
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", rt.chatHandler.CreateChat)
				r.Get("/", rt.chatHandler.GetChats)
				r.Get("/{chatId}/participant", rt.chatHandler.GetParticipant)
				r.Post("/{chatId}/last-message", rt.chatHandler.UpdateLastMessage)
			})
		})
	})

	return r
}
