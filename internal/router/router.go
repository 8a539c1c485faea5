package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/merenda/planning-api/internal/capability"
	"github.com/merenda/planning-api/internal/config"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/merenda/planning-api/internal/handler"
	mw "github.com/merenda/planning-api/internal/middleware"
	"github.com/merenda/planning-api/internal/service"
	"github.com/merenda/planning-api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and capability middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"https://merenda.example.org",
			"https://stg-merenda.example.org",
		},
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

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/routes/{rid}/releases", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services backed by pool-level transactions.
	workflowService := service.NewWorkflowService(
		pool,
		func(db database.DBTX) service.WorkflowStore {
			return database.New(db)
		},
		hub,
	)
	substitutionService := service.NewSubstitutionService(
		pool,
		func(db database.DBTX) service.SubstitutionStore {
			return database.New(db)
		},
	)
	adjustmentService := service.NewAdjustmentService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Reference data: reads open to every authenticated role,
		// mutations behind the admin screen.
		schoolHandler := handler.NewSchoolHandler(queries)
		r.Route("/schools", func(r chi.Router) {
			schoolHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(capability.ScreenAdmin, capability.ActionManage))
				schoolHandler.RegisterAdminRoutes(r)
			})
		})

		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(capability.ScreenAdmin, capability.ActionManage))
				productHandler.RegisterAdminRoutes(r)
			})
		})

		// Needs planning views and export
		needsHandler := handler.NewNeedsHandler(queries)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(capability.ScreenNeeds, capability.ActionView))
			r.Route("/needs", needsHandler.RegisterRoutes)
		})

		// Requisition workflow and adjustments
		workflowHandler := handler.NewWorkflowHandler(workflowService)
		adjustmentHandler := handler.NewAdjustmentHandler(adjustmentService)
		substitutionHandler := handler.NewSubstitutionHandler(substitutionService)
		r.Route("/requisitions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(capability.ScreenNeeds, capability.ActionAdvance))
				r.Post("/{id}/advance", workflowHandler.Advance)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireCapability(capability.ScreenNeeds, capability.ActionAdjust))
				adjustmentHandler.RegisterRoutes(r)
			})
			r.Route("/{id}/substitutions", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireCapability(capability.ScreenSubstitutions, capability.ActionManage))
					substitutionHandler.RegisterRoutes(r)
				})
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.RoleAdmin))
					substitutionHandler.RegisterAdminRoutes(r)
				})
			})
			// Admin corrections and deletion
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdmin))
				r.Patch("/{id}", workflowHandler.Correct)
				r.Delete("/{id}", workflowHandler.Delete)
			})
		})

		// Admin-only registry management
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCapability(capability.ScreenAdmin, capability.ActionManage))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
