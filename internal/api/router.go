package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"algoarena/internal/api/handler"
	"algoarena/internal/api/middleware"
	"algoarena/internal/app/service"
	"algoarena/internal/common/security"
	"algoarena/internal/domain/repository"
)

func NewRouter(
	sessions *security.SessionManager,
	userRepo repository.UserRepository,
	authService *service.AuthService,
	problemService *service.ProblemService,
	submissionService *service.SubmissionService,
	secureCookie bool,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(120 * time.Second))

	// The Verifier finds the session token (cookie or Authorization header)
	// and parks the claims in the request context; the Authenticator below
	// decides whether they are acceptable.
	r.Use(jwtauth.Verifier(sessions.JWTAuth()))

	auth := middleware.NewAuth(userRepo)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService, sessions, secureCookie)
		v1.Route("/auth", func(ar chi.Router) {
			authHandler.RegisterPublicRoutes(ar)
			ar.Group(func(protected chi.Router) {
				protected.Use(auth.Authenticator)
				authHandler.RegisterProtectedRoutes(protected)
			})
		})

		problemHandler := handler.NewProblemHandler(problemService)
		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/problems", func(pr chi.Router) {
			pr.Use(auth.Authenticator)
			problemHandler.RegisterRoutes(pr)
			pr.Route("/{problemID}/submissions", submissionHandler.RegisterRoutes)
		})
	})

	return r
}
