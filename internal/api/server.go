package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmoroz/splithaus/internal/auth"
	"github.com/kmoroz/splithaus/internal/middleware"
	"github.com/kmoroz/splithaus/internal/service"
)

// Server holds the HTTP handlers and their service dependencies.
type Server struct {
	auth       *service.AuthService
	households *service.HouseholdService
	expenses   *service.ExpenseService
	jwt        *auth.JWTManager
}

func NewServer(
	authSvc *service.AuthService,
	householdSvc *service.HouseholdService,
	expenseSvc *service.ExpenseService,
	jwtManager *auth.JWTManager,
) *Server {
	return &Server{
		auth:       authSvc,
		households: householdSvc,
		expenses:   expenseSvc,
		jwt:        jwtManager,
	}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwt))

			r.Route("/households", func(r chi.Router) {
				r.Post("/", s.handleCreateHousehold)
				r.Get("/", s.handleListHouseholds)
				r.Post("/join", s.handleJoinHousehold)

				r.Route("/{householdID}", func(r chi.Router) {
					r.Get("/", s.handleGetHousehold)
					r.Get("/members", s.handleListMembers)
					r.Post("/expenses", s.handleCreateExpense)
					r.Get("/expenses", s.handleListExpenses)
					r.Get("/balances", s.handleHouseholdBalances)
					r.Get("/balance", s.handleUserBalance)
					r.Get("/activity", s.handleActivity)
				})
			})

			r.Route("/expenses/{expenseID}", func(r chi.Router) {
				r.Get("/", s.handleGetExpense)
				r.Delete("/", s.handleDeleteExpense)
			})

			r.Route("/shares/{shareID}", func(r chi.Router) {
				r.Post("/pay", s.handlePayShare)
				r.Delete("/pay", s.handleUnpayShare)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
