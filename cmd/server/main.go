package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/cache"
	"github.com/fizanakara/membership-engine/internal/config"
	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/handler"
	"github.com/fizanakara/membership-engine/internal/mail"
	"github.com/fizanakara/membership-engine/internal/repository"
	"github.com/fizanakara/membership-engine/internal/service"
	"github.com/fizanakara/membership-engine/pkg/logger"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type handlers struct {
	health        *handler.HealthHandler
	auth          *handler.AuthHandler
	admin         *handler.AdminHandler
	person        *handler.PersonHandler
	contribution  *handler.ContributionHandler
	payment       *handler.PaymentHandler
	district      *handler.ReferenceHandler
	tribute       *handler.ReferenceHandler
	authenticator *auth.Middleware
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	personRepo := repository.NewPersonRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	districtRepo := repository.NewDistrictRepository(db)
	tributeRepo := repository.NewTributeRepository(db)

	// Initialize services
	policy := cfg.GetContributionPolicy()
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	limiter := cache.NewLoginLimiter(redisClient, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
	mailer := mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)

	contributionService := service.NewContributionService(contributionRepo, paymentRepo, personRepo, sequenceRepo, policy)
	paymentService := service.NewPaymentService(paymentRepo, contributionRepo, contributionService)
	personService := service.NewPersonService(personRepo, sequenceRepo, districtRepo, tributeRepo, contributionService, policy)
	adminService := service.NewAdminService(adminRepo, sequenceRepo)
	authService := service.NewAuthService(adminRepo, tokenRepo, limiter, jwtManager, mailer, cfg.Auth)

	if _, err := adminService.EnsureSuperAdmin(context.Background(), cfg.Bootstrap); err != nil {
		slog.Error("failed to bootstrap superadmin", "error", err)
		os.Exit(1)
	}

	h := handlers{
		health:        handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout()),
		auth:          handler.NewAuthHandler(authService),
		admin:         handler.NewAdminHandler(adminService),
		person:        handler.NewPersonHandler(personService),
		contribution:  handler.NewContributionHandler(contributionService),
		payment:       handler.NewPaymentHandler(paymentService),
		district:      handler.NewReferenceHandler(service.NewReferenceService(districtRepo)),
		tribute:       handler.NewReferenceHandler(service.NewReferenceService(tributeRepo)),
		authenticator: auth.NewMiddleware(jwtManager, adminRepo),
	}

	// Setup routes
	router := setupRoutes(h)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      corsHandler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return
	}

	slog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func setupRoutes(h handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", h.health.Health).Methods("GET")
	router.HandleFunc("/health/ready", h.health.Ready).Methods("GET")

	// Public API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", h.auth.Login).Methods("POST")
	api.HandleFunc("/refresh", h.auth.Refresh).Methods("POST")
	api.HandleFunc("/logout", h.auth.Logout).Methods("POST")
	api.HandleFunc("/forgot-password", h.auth.ForgotPassword).Methods("POST")
	api.HandleFunc("/reset-password", h.auth.ResetPassword).Methods("POST")

	// Everything under /api/admins needs a signed-in admin
	admins := api.PathPrefix("/admins").Subrouter()
	admins.Use(h.authenticator.Authenticate)
	admins.Use(auth.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))
	superOnly := auth.RequireRole(domain.RoleSuperAdmin)

	admins.Handle("", superOnly(http.HandlerFunc(h.admin.List))).Methods("GET")
	admins.Handle("/register", superOnly(http.HandlerFunc(h.admin.Register))).Methods("POST")
	admins.HandleFunc("/me", h.admin.Me).Methods("GET")
	admins.HandleFunc("/me", h.admin.UpdateMe).Methods("PATCH")
	admins.Handle("/{id:ADM[0-9]+}", superOnly(http.HandlerFunc(h.admin.Get))).Methods("GET")
	admins.Handle("/{id:ADM[0-9]+}", superOnly(http.HandlerFunc(h.admin.Update))).Methods("PATCH")
	admins.Handle("/{id:ADM[0-9]+}", superOnly(http.HandlerFunc(h.admin.Delete))).Methods("DELETE")

	persons := admins.PathPrefix("/persons").Subrouter()
	persons.HandleFunc("", h.person.ListPersons).Methods("GET")
	persons.HandleFunc("", h.person.CreatePerson).Methods("POST")
	persons.Handle("", superOnly(http.HandlerFunc(h.person.DeleteAllPersons))).Methods("DELETE")
	persons.HandleFunc("/district/{districtId:[0-9]+}", h.person.ListByDistrict).Methods("GET")
	persons.HandleFunc("/{id:MBR[0-9]+}", h.person.GetPerson).Methods("GET")
	persons.HandleFunc("/{id:MBR[0-9]+}", h.person.UpdatePerson).Methods("PUT")
	persons.HandleFunc("/{id:MBR[0-9]+}", h.person.DeletePerson).Methods("DELETE")
	persons.HandleFunc("/{id:MBR[0-9]+}/promote", h.person.Promote).Methods("POST")
	persons.HandleFunc("/{id:MBR[0-9]+}/tree", h.person.GetFamilyTree).Methods("GET")
	persons.HandleFunc("/{id:MBR[0-9]+}/parent", h.person.Reparent).Methods("PUT")
	persons.HandleFunc("/{parentId:MBR[0-9]+}/children", h.person.CreateChild).Methods("POST")
	persons.HandleFunc("/{parentId:MBR[0-9]+}/children", h.person.GetChildren).Methods("GET")

	contributions := admins.PathPrefix("/contributions").Subrouter()
	contributions.HandleFunc("", h.contribution.List).Methods("GET")
	contributions.HandleFunc("", h.contribution.CreateForYear).Methods("POST")
	contributions.HandleFunc("/person/{id:MBR[0-9]+}/year/{year:[0-9]{4}}", h.contribution.ListByPersonAndYear).Methods("GET")
	contributions.HandleFunc("/person/{id:MBR[0-9]+}", h.contribution.CreateForPerson).Methods("POST")
	contributions.HandleFunc("/{id:COT[0-9]+-[0-9]+}", h.contribution.Get).Methods("GET")
	contributions.HandleFunc("/{id:COT[0-9]+-[0-9]+}", h.contribution.Update).Methods("PUT")
	contributions.HandleFunc("/{id:COT[0-9]+-[0-9]+}", h.contribution.Delete).Methods("DELETE")

	payments := admins.PathPrefix("/payments").Subrouter()
	payments.HandleFunc("", h.payment.MakePayment).Methods("POST")
	payments.HandleFunc("/contribution/{id:COT[0-9]+-[0-9]+}", h.payment.ListByContribution).Methods("GET")
	payments.HandleFunc("/{id:PAY[0-9A-Za-z-]+}", h.payment.GetPayment).Methods("GET")
	payments.HandleFunc("/{id:PAY[0-9A-Za-z-]+}", h.payment.UpdatePayment).Methods("PUT")
	payments.HandleFunc("/{id:PAY[0-9A-Za-z-]+}", h.payment.DeletePayment).Methods("DELETE")

	referenceRoutes(admins.PathPrefix("/districts").Subrouter(), h.district, superOnly)
	referenceRoutes(admins.PathPrefix("/tributes").Subrouter(), h.tribute, superOnly)

	return router
}

func referenceRoutes(r *mux.Router, h *handler.ReferenceHandler, superOnly func(http.Handler) http.Handler) {
	r.HandleFunc("", h.List).Methods("GET")
	r.HandleFunc("", h.Create).Methods("POST")
	r.Handle("", superOnly(http.HandlerFunc(h.DeleteAll))).Methods("DELETE")
	r.HandleFunc("/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}", h.Rename).Methods("PUT")
	r.HandleFunc("/{id:[0-9]+}", h.Delete).Methods("DELETE")
}
