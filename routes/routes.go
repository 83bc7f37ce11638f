package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pokernights/poker-tracker/handlers"
	"github.com/pokernights/poker-tracker/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	groupHandler *handlers.GroupHandler,
	gameHandler *handlers.GameHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Get("/{userID}", userHandler.GetProfileHandler)
		})
	})

	router.Route("/api/groups", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/create", groupHandler.CreateHandler)
		r.Get("/my-groups", groupHandler.MyGroupsHandler)
		r.Get("/{groupID}/members", groupHandler.MembersHandler)
		r.Get("/{groupID}/games", groupHandler.GamesHandler)
		r.Get("/{groupID}/overview", groupHandler.OverviewHandler)
		r.Post("/{groupID}/logo", groupHandler.UploadLogoHandler)
	})

	router.Route("/api/games", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/create", gameHandler.CreateHandler)

		// Специфичные маршруты раньше общего /{gameID}
		r.Get("/{gameID}/settings", gameHandler.GetSettingsHandler)
		r.Get("/{gameID}/players", gameHandler.GetPlayersHandler)
		r.Get("/{gameID}/rebuys/history", gameHandler.GetRebuyHistoryHandler)
		r.Get("/{gameID}/rebuys", gameHandler.GetRebuysHandler)
		r.Get("/{gameID}/results", gameHandler.GetResultsHandler)
		r.Get("/{gameID}", gameHandler.GetByIDHandler)

		r.Post("/{gameID}/status", gameHandler.UpdateStatusHandler)
		r.Post("/{gameID}/rebuy", gameHandler.AddRebuyHandler)
		r.Post("/{gameID}/finish", gameHandler.FinishHandler)
	})

	router.Route("/api/notifications", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/send", notificationHandler.SendHandler)
		r.Get("/", notificationHandler.ListHandler)
		r.Post("/read-all", notificationHandler.MarkAllReadHandler)
		r.Post("/{notificationID}/read", notificationHandler.MarkReadHandler)
	})

	router.Get("/ws/games/{gameID}", webSocketHandler.ServeGame)
}
