package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"discovery/internal/catalog"
	"discovery/internal/service"
	"discovery/internal/transport/rest/handler"
	"discovery/internal/transport/rest/middleware"
	"discovery/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService          *service.AuthService
	QuestionnaireService *service.QuestionnaireService
	CompletionService    *service.CompletionService
	Catalog              *catalog.Catalog
	WSHub                *ws.Hub
	AllowedOrigins       []string
	Logger               *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	questionnaireHandler := handler.NewQuestionnaireHandler(c.QuestionnaireService, c.CompletionService, c.Logger)
	adminHandler := handler.NewAdminHandler(c.QuestionnaireService, c.CompletionService, c.Logger)
	catalogHandler := handler.NewCatalogHandler(c.Catalog)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.AllowedOrigins, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(middleware.RequestLogger(c.Logger))
	r.Use(corsMiddleware(c.AllowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/catalog", catalogHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/admin", wsHandler.AdminWS).Methods("GET")

	// Respondent routes
	userRoutes := v1.PathPrefix("/responses/me").Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("", questionnaireHandler.Me).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/sections", questionnaireHandler.UpdateSection).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/complete", questionnaireHandler.Complete).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/report", questionnaireHandler.Report).Methods("GET", "OPTIONS")

	// Admin routes
	adminRoutes := v1.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMW.RequireUser, authMW.RequireAdmin)

	adminRoutes.HandleFunc("/responses", adminHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/responses/{userId}", adminHandler.Get).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/responses/{userId}/report", adminHandler.Report).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowHeaders := strings.Join([]string{
		"Content-Type", "Authorization", middleware.HeaderRequestID,
		middleware.HeaderUserID, middleware.HeaderUserEmail, middleware.HeaderUserName,
	}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := allowOrigin(allowedOrigins, r.Header.Get("Origin")); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowOrigin(allowed []string, origin string) string {
	if len(allowed) == 0 {
		return "*"
	}
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	return ""
}
