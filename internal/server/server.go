// Package server is the composition root of the API: it opens the stores,
// builds services and handlers, mounts routes and runs background jobs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/vibecoders/vibecoders/internal/auth"
	"github.com/vibecoders/vibecoders/internal/config"
	"github.com/vibecoders/vibecoders/internal/handler"
	"github.com/vibecoders/vibecoders/internal/middleware"
	"github.com/vibecoders/vibecoders/internal/repository"
	redisRepo "github.com/vibecoders/vibecoders/internal/repository/redis"
	sqliteRepo "github.com/vibecoders/vibecoders/internal/repository/sqlite"
	"github.com/vibecoders/vibecoders/internal/service"
)

// Server owns the database, the optional Redis client and the cron scheduler;
// Start closes them on shutdown.
type Server struct {
	router  *chi.Mux
	config  config.ServerConfig
	logger  *slog.Logger
	db      *sqliteRepo.DB
	redis   *goredis.Client
	cron    *cron.Cron
	authSvc *service.AuthService
	limiter *middleware.RateLimiter
}

// New wires the server. When cfg.RedisAddr is set revocations are kept in
// Redis, otherwise in the SQLite database.
func New(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		cron:    cron.New(),
		limiter: middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst, logger),
	}

	var revocations repository.RevocationStore = db.Revocations()
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := redisRepo.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.redis = client
		revocations = redisRepo.NewRevocationStore(client)
	}

	if err := s.setupRoutes(revocations); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	if err := s.setupJobs(); err != nil {
		s.Close()
		return nil, fmt.Errorf("scheduling jobs: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts:
//
//	GET    /healthz
//	POST   /api/register            rate limited
//	POST   /api/login               rate limited
//	GET    /api/user                optional auth
//	POST   /api/logout              auth
//	GET    /api/users/{username}
//	PUT    /api/users/{username}    auth, self only
//	GET    /api/prompts             auth
//	POST   /api/prompts             auth
//	GET    /api/prompts/{id}        auth
//	PUT    /api/prompts/{id}        auth
//	DELETE /api/prompts/{id}        auth
//	GET    /tasks                   auth
//	POST   /tasks                   auth
//	PUT    /tasks/{id}              auth
//	DELETE /tasks/{id}              auth
//	GET    /auth/github/login       when GitHub is configured
//	GET    /auth/github/callback    when GitHub is configured
func (s *Server) setupRoutes(revocations repository.RevocationStore) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService(s.config.PasswordCost)
	authn := auth.NewAuthenticator(tokens, revocations, s.logger)

	s.authSvc = service.NewAuthService(s.db.Users(), revocations, tokens, passwords, s.logger)
	userSvc := service.NewUserService(s.db.Users(), s.logger)
	promptSvc := service.NewPromptService(s.db.Prompts(), s.logger)
	taskSvc := service.NewTaskService(s.db.Tasks(), s.logger)

	var github handler.GitHubFlow
	if s.config.GitHub.Enabled() {
		gh := s.config.GitHub
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	}

	authHandler := handler.NewAuthHandler(s.authSvc, github, s.logger)
	userHandler := handler.NewUserHandler(userSvc, s.logger)
	promptHandler := handler.NewPromptHandler(promptSvc, s.logger)
	taskHandler := handler.NewTaskHandler(taskSvc, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
		})

		r.With(authn.OptionalAuth).Get("/user", authHandler.HandleSession)
		r.Get("/users/{username}", userHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth)
			r.Post("/logout", authHandler.HandleLogout)
			r.Put("/users/{username}", userHandler.HandleUpdate)

			r.Get("/prompts", promptHandler.HandleList)
			r.Post("/prompts", promptHandler.HandleCreate)
			r.Get("/prompts/{id}", promptHandler.HandleGet)
			r.Put("/prompts/{id}", promptHandler.HandleUpdate)
			r.Delete("/prompts/{id}", promptHandler.HandleDelete)
		})
	})

	s.router.Route("/tasks", func(r chi.Router) {
		r.Use(authn.RequireAuth)
		r.Get("/", taskHandler.HandleList)
		r.Post("/", taskHandler.HandleCreate)
		r.Put("/{id}", taskHandler.HandleUpdate)
		r.Delete("/{id}", taskHandler.HandleDelete)
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub sign-in disabled (server.github.client_id not set)")
	}

	return nil
}

// setupJobs schedules housekeeping on the configured cron spec.
func (s *Server) setupJobs() error {
	_, err := s.cron.AddFunc(s.config.PurgeSchedule, s.runHousekeeping)
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.config.PurgeSchedule, err)
	}
	return nil
}

// runHousekeeping drops expired revocations and idle rate-limit buckets.
func (s *Server) runHousekeeping() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.authSvc.PurgeRevocations(ctx, time.Now()); err != nil {
		s.logger.Error("housekeeping: purging revocations", slog.String("error", err.Error()))
	}
	if n := s.limiter.Cleanup(); n > 0 {
		s.logger.Debug("housekeeping: dropped idle rate limiters", slog.Int("count", n))
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and releases every resource the server owns.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	s.cron.Start()
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr),
			slog.String("database", s.config.DBPath),
			slog.Bool("redis", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops background jobs and closes the stores. Start calls it; tests
// that only use Handler call it directly.
func (s *Server) Close() error {
	<-s.cron.Stop().Done()

	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
