package router

import (
	"net/http"
	"time"

	"transfer-ledger/internal/handlers"
	"transfer-ledger/internal/middleware"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const slowRequestThreshold = time.Second

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Users     *services.UserService
	Auth      *services.AuthService
	Balances  *services.BalanceService
	Transfers *services.TransferService
	Deposits  *services.DepositService

	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer

	RateLimitRPS   float64
	RateLimitBurst int
}

func SetupRouter(deps Deps, logger zerolog.Logger) *mux.Router {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Auth, logger)
	userHandler := handlers.NewUserHandler(deps.Users, logger)
	transferHandler := handlers.NewTransferHandler(deps.Transfers, deps.Balances, deps.Users, logger)
	transactionHandler := handlers.NewTransactionHandler(deps.Balances, deps.Deposits, logger)
	balanceHandler := handlers.NewBalanceHandler(deps.Balances, logger)

	r := mux.NewRouter()

	rps, burst := deps.RateLimitRPS, deps.RateLimitBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	rateLimiter := middleware.NewRateLimiter(rate.Limit(rps), burst)

	r.Use(middleware.RequestLogging(logger, slowRequestThreshold))
	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	authenticate := middleware.Authentication(deps.Auth, logger)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(rateLimiter.Middleware())

	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(middleware.RequestValidation())
	auth.HandleFunc("/register", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	protectedAuth := api.PathPrefix("/auth").Subrouter()
	protectedAuth.Use(authenticate)
	protectedAuth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")

	users := api.PathPrefix("/users").Subrouter()
	users.Use(authenticate)
	users.Use(middleware.RequestValidation())
	users.HandleFunc("/me", userHandler.GetMe).Methods("GET")
	users.HandleFunc("/me/preferences", userHandler.UpdatePreferences).Methods("PUT")

	transfers := api.PathPrefix("/transfers").Subrouter()
	transfers.Use(authenticate)
	transfers.Use(middleware.RequestValidation())
	transfers.HandleFunc("", transferHandler.CreateTransfer).Methods("POST")
	transfers.HandleFunc("/{id}", transferHandler.GetTransfer).Methods("GET")

	transactions := api.PathPrefix("/transactions").Subrouter()
	transactions.Use(authenticate)
	transactions.HandleFunc("/history", transactionHandler.GetHistory).Methods("GET")

	deposits := api.PathPrefix("/transactions").Subrouter()
	deposits.Use(authenticate)
	deposits.Use(middleware.RequireRole(string(models.RoleAdmin)))
	deposits.Use(middleware.RequestValidation())
	deposits.HandleFunc("/deposit", transactionHandler.Deposit).Methods("POST")

	balances := api.PathPrefix("/balances").Subrouter()
	balances.Use(authenticate)
	balances.HandleFunc("/current", balanceHandler.GetCurrentBalance).Methods("GET")
	balances.HandleFunc("/sync", balanceHandler.Sync).Methods("POST")
	balances.HandleFunc("/verify", balanceHandler.Verify).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	return r
}
