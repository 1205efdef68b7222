package router

import (
	"log"
	"net/http"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/config"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/enum"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/handler"
	mw "github.com/OnpreeyaMi/project-sa-sub000/internal/middleware"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/promptpay"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/service"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New creates a Chi router with all application routes wired up.
// Everything except /health and /metrics needs an ADMIN or EMPLOYEE token;
// branch routes are further scoped to the caller's branch.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the browser console
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	policy := promptpay.MobilePolicy{Prefix: cfg.PromptPayMobilePrefix}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Payments are counter work: customers get no access.
		r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleEmployee))

		// Payload tools (not branch-scoped)
		promptPayHandler := handler.NewPromptPayHandler(policy)
		r.Route("/promptpay", promptPayHandler.RegisterRoutes)

		// WebSocket route (token may come from the query string on upgrade)
		r.With(mw.RequireBranch).Get("/ws/branches/{bid}/payments", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(hub, w, r)
		})

		// Branch-scoped routes
		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
				return database.New(db)
			}, policy)
			paymentHandler := handler.NewPaymentHandler(queries, paymentService, hub)
			r.Route("/orders/{id}/payments", paymentHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
