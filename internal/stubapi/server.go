package stubapi

import (
	"net/http"

	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Server holds the stub API's HTTP configuration: its handlers, the token issuer guarding
// protected routes, and the address it listens on.
type Server struct {
	handlers   *handlers
	issuer     *auth.Issuer
	runAddress string
	log        *logger.Logger
}

// NewServer creates a Server around backend. The issuer must be the one backend signs tokens with.
func NewServer(backend *Backend, runAddress string, l *logger.Logger) *Server {
	return &Server{handlers: newHandlers(backend, l), issuer: backend.issuer, runAddress: runAddress, log: l}
}

// RunAddress returns the configured listen address.
func (s *Server) RunAddress() string {
	return s.runAddress
}

// NewRouter sets up the routes. Logging, panic recovery and CORS apply everywhere; catalog
// reads accept anonymous requests and everything else requires a token.
func (s *Server) NewRouter() chi.Router {
	h := s.handlers
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.log.WithLogging())
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}).Handler)

	router.Post("/api/auth/login/", h.loginHandler)
	router.Post("/api/auth/registration/", h.registrationHandler)

	router.Group(func(r chi.Router) {
		r.Use(s.issuer.CheckTokenMiddleware(false))
		r.Get("/api/models3d/", h.listModels(ListAll))
		r.Get("/api/models3d/{id}/", h.modelHandler)
		r.Get("/api/comments/", h.commentsHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(s.issuer.CheckTokenMiddleware(true))
		r.Get("/api/auth/user/", h.userHandler)
		r.Patch("/api/auth/user/", h.updateUserHandler)
		r.Get("/api/user/dashboard/", h.dashboardHandler)
		r.Post("/api/recycle/bottles/", h.recycleHandler)

		r.Post("/api/models3d/", h.createModelHandler)
		r.Get("/api/models3d/liked/", h.listModels(ListLiked))
		r.Get("/api/models3d/saved/", h.listModels(ListSaved))
		r.Get("/api/models3d/my_models/", h.listModels(ListOwned))
		r.Patch("/api/models3d/{id}/", h.updateModelHandler)
		r.Delete("/api/models3d/{id}/", h.deleteModelHandler)
		r.Post("/api/models3d/{id}/like/", h.likeHandler)
		r.Post("/api/models3d/{id}/save/", h.saveHandler)
		r.Post("/api/models3d/{id}/set_visibility/", h.visibilityHandler)
		r.Post("/api/models3d/{id}/add_image/", h.addImageHandler)
		r.Post("/api/models3d/{id}/add_file/", h.addFileHandler)
		r.Get("/api/models3d/{id}/download/", h.downloadHandler)
		r.Delete("/api/model-images/{id}/", h.deleteImageHandler)
		r.Delete("/api/model-files/{id}/", h.deleteFileHandler)
		r.Post("/api/comments/", h.addCommentHandler)

		r.Get("/api/users/", h.usersHandler)
		r.Get("/api/coin-offers/", h.offersHandler(false))
		r.Post("/api/coin-offers/", h.createOfferHandler)
		r.Post("/api/coin-offers/{id}/purchase/", h.purchaseOfferHandler)
		r.Post("/api/coin-offers/{id}/cancel/", h.cancelOfferHandler)
		r.Get("/api/my-offers/", h.offersHandler(true))
		r.Get("/api/exchange-requests/", h.exchangesHandler)
		r.Post("/api/exchange-requests/", h.createExchangeHandler)
		r.Delete("/api/exchange-requests/{id}/", h.cancelExchangeHandler)
		r.Post("/api/exchange-requests/{id}/respond/", h.respondExchangeHandler)
		r.Get("/api/transactions/", h.transactionsHandler)
	})
	return router
}
