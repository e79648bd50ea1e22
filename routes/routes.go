package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloutleague/tournament-engine/handlers"
	"github.com/cloutleague/tournament-engine/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	leaderboardHandler *handlers.LeaderboardHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}/leaderboard", leaderboardHandler.GetLeaderboardHandler)
		r.Get("/{tournamentID}/engagement", leaderboardHandler.GetEngagementSummaryHandler)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(middleware.RoleAdmin))

		r.Post("/tournaments/{tournamentID}/sync-queue", adminHandler.SyncQueueHandler)
		r.Post("/tournaments/{tournamentID}/calculate", adminHandler.CalculateHandler)
		r.Post("/tournaments/{tournamentID}/distribute", adminHandler.DistributeHandler)
		r.Post("/ingestion/poll", adminHandler.PollHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
