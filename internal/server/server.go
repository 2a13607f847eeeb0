package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/config"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/auth"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/db"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/email"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/handlers"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/limiter"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/mq"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Server wraps the HTTP server, its router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	db     *sql.DB
	redis  *redis.Client
	broker mq.Backend
}

// Services groups everything the router dispatches to.
type Services struct {
	Auth         *services.AuthService
	Categories   *services.CategoryService
	Goals        *services.GoalService
	Transactions *services.TransactionService
}

type repositories struct {
	users        services.UserRepository
	categories   services.CategoryRepository
	goals        services.GoalRepository
	transactions services.TransactionRepository
}

// New connects the configured backends and builds the router. Connections
// opened before a failure are closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{logger: logger}

	repos, err := s.openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	limits, err := s.openLimiters(ctx, cfg)
	if err != nil {
		s.closeBackends()
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to open message broker: %w", err)
	}
	s.broker = broker
	if broker == nil {
		logger.Info("no MQ_BACKEND configured, auth events are discarded")
	}

	events := mq.NewEventPublisher(broker, cfg.MQ.Channel, logger)
	resets := services.NewResetTokenManager(repos.users, newDispatcher(cfg.Mail), cfg.FrontendURL)

	svc := Services{
		Auth: services.NewAuthService(services.AuthDependencies{
			Users:  repos.users,
			Hasher: auth.NewPasswordHasher(auth.DefaultPasswordCost),
			TOTP:   auth.NewTOTPEngine(cfg.MFAIssuer),
			Tokens: auth.NewTokenIssuer(cfg.JWTSecret),
			Resets: resets,
			Limits: limits,
			Events: events,
			Logger: logger,
		}),
		Categories:   services.NewCategoryService(repos.categories),
		Goals:        services.NewGoalService(repos.goals),
		Transactions: services.NewTransactionService(repos.transactions),
	}

	if created, err := svc.Categories.SeedDefaults(ctx); err != nil {
		logger.Warn("failed to seed default categories", slog.Any("error", err))
	} else if created > 0 {
		logger.Info("seeded default categories", slog.Int("count", created))
	}

	s.router = NewRouter(svc, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter mounts every route behind the shared middleware stack.
func NewRouter(svc Services, logger *slog.Logger) *chi.Mux {
	authMiddleware := handlers.RequireAuth(svc.Auth)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svc.Auth, logger)
		})
		r.Route("/categories", func(r chi.Router) {
			handlers.CategoryRouter(r, svc.Categories, authMiddleware, logger)
		})
		r.Route("/goals", func(r chi.Router) {
			handlers.GoalRouter(r, svc.Goals, authMiddleware, logger)
		})
		r.Route("/transactions", func(r chi.Router) {
			handlers.TransactionRouter(r, svc.Transactions, authMiddleware, logger)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes owned connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

func (s *Server) openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	if cfg.Database.Driver == config.DBDriverMemory {
		s.logger.Warn("using in-memory storage, data is lost on restart")
		return repositories{
			users:        store.NewMemoryUserRepository(),
			categories:   store.NewMemoryCategoryRepository(),
			goals:        store.NewMemoryGoalRepository(),
			transactions: store.NewMemoryTransactionRepository(),
		}, nil
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return repositories{}, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = dbConn

	return repositories{
		users:        store.NewUserRepository(dbConn),
		categories:   store.NewCategoryRepository(dbConn),
		goals:        store.NewGoalRepository(dbConn),
		transactions: store.NewTransactionRepository(dbConn),
	}, nil
}

func (s *Server) openLimiters(ctx context.Context, cfg config.Config) (services.AttemptLimits, error) {
	if cfg.Redis.URL == "" {
		s.logger.Info("no REDIS_URL configured, attempt limiting is disabled")
		return services.AttemptLimits{}, nil
	}

	client, err := limiter.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return services.AttemptLimits{}, err
	}
	s.redis = client

	return services.AttemptLimits{
		Login:       limiter.NewRedisLimiter(client, "login"),
		VerifyMFA:   limiter.NewRedisLimiter(client, "verify-mfa"),
		VerifySetup: limiter.NewRedisLimiter(client, "verify-setup-mfa"),
	}, nil
}

func newDispatcher(cfg config.MailConfig) email.Dispatcher {
	if cfg.Provider == config.MailProviderSendGrid {
		dispatcher := email.NewSendGridDispatcher(cfg.SendGridAPIKey, cfg.From)
		if cfg.SendGridEndpoint != "" {
			dispatcher = dispatcher.WithEndpoint(cfg.SendGridEndpoint)
		}
		return dispatcher
	}
	return email.NewSMTPDispatcher(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

func (s *Server) closeBackends() {
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("failed to close message broker", slog.Any("error", err))
		}
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
