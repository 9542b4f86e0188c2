package api

import (
	"net/http"

	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mentor-match/internal/middleware"
	"github.com/mentor-match/internal/model"
)

type RouterConfig struct {
	AllowedOrigins    []string
	AuthMaxConcurrent int
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(h *Handler, auth *middleware.AuthMiddleware, cfg RouterConfig, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// Public routes; bcrypt work is throttled
	throttle := middleware.Throttle(cfg.AuthMaxConcurrent, h.resp.Error)
	mux.Handle("POST /api/signup", throttle(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/login", throttle(http.HandlerFunc(h.Login)))
	mux.HandleFunc("GET /api/health", h.Health)

	mentee := auth.RequireRole(model.UserRoleMentee)
	mentor := auth.RequireRole(model.UserRoleMentor)

	// Profile routes
	mux.Handle("GET /api/me", auth.Authenticate(http.HandlerFunc(h.Me)))
	mux.Handle("PUT /api/profile", auth.Authenticate(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("GET /api/images/{role}/{id}", auth.Authenticate(http.HandlerFunc(h.GetImage)))

	// Mentor directory
	mux.Handle("GET /api/mentors", auth.Authenticate(http.HandlerFunc(h.ListMentors)))
	mux.Handle("GET /api/mentors/{id}", auth.Authenticate(http.HandlerFunc(h.GetMentor)))

	// Match request routes
	mux.Handle("POST /api/match-requests", auth.Authenticate(mentee(http.HandlerFunc(h.CreateMatchRequest))))
	mux.Handle("GET /api/match-requests/incoming", auth.Authenticate(mentor(http.HandlerFunc(h.IncomingMatchRequests))))
	mux.Handle("GET /api/match-requests/outgoing", auth.Authenticate(mentee(http.HandlerFunc(h.OutgoingMatchRequests))))
	mux.Handle("PUT /api/match-requests/{id}/accept", auth.Authenticate(http.HandlerFunc(h.AcceptMatchRequest)))
	mux.Handle("PUT /api/match-requests/{id}/reject", auth.Authenticate(http.HandlerFunc(h.RejectMatchRequest)))
	mux.Handle("DELETE /api/match-requests/{id}", auth.Authenticate(http.HandlerFunc(h.CancelMatchRequest)))

	// Apply global middleware
	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger(log),
		middleware.Recover(log, h.resp.Error),
		middleware.CORS(cfg.AllowedOrigins),
	)
}
