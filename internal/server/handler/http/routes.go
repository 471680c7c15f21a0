package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/lpbridge/internal/middleware"
)

// NewRouter constructs the HTTP handler of the bridge.
//
// Routes:
//
//	GET    /api/status
//	GET    /api/accounts?filter=
//	POST   /api/accounts
//	GET    /api/accounts/{id}/password
//	PUT    /api/accounts/{id}/password
//	DELETE /api/accounts/{id}
//	POST   /api/reset
//	GET    /api/operations?limit=&name=
//
// Requests carrying a body must be JSON. When token is not empty every
// request must present it as a bearer token.
func NewRouter(accounts *AccountHandler, token string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	// Skipped for requests without a body.
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.TokenAuth(token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", accounts.Status)
		r.Post("/reset", accounts.Reset)
		r.Get("/operations", accounts.Operations)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Add)
			r.Delete("/{id}", accounts.Delete)
			r.Get("/{id}/password", accounts.Password)
			r.Put("/{id}/password", accounts.SetPassword)
		})
	})

	return r
}
