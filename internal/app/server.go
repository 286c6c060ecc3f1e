// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"billhub-service/internal/config"
	"billhub-service/internal/db"
	"billhub-service/internal/domain/user"
	auditHandler "billhub-service/internal/handlers/audit"
	authHandler "billhub-service/internal/handlers/auth"
	clientHandler "billhub-service/internal/handlers/client"
	healthHandler "billhub-service/internal/handlers/health"
	invoiceHandler "billhub-service/internal/handlers/invoice"
	roleHandler "billhub-service/internal/handlers/role"
	userHandler "billhub-service/internal/handlers/user"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/dbx"
	"billhub-service/internal/pkg/session"
	"billhub-service/internal/repository/postgres"
	auditUsecase "billhub-service/internal/service/audit"
	authUsecase "billhub-service/internal/service/auth"
	clientUsecase "billhub-service/internal/service/client"
	invoiceUsecase "billhub-service/internal/service/invoice"
	roleUsecase "billhub-service/internal/service/role"
	userUsecase "billhub-service/internal/service/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	logger *zap.Logger

	userRepo *postgres.UserRepository
	roleRepo *postgres.RoleRepository
	sessions *session.Store
}

func NewServer(cfg *config.Config) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New()}
}

// Start wires the whole service together and serves HTTP until ctx is
// cancelled, then drains in-flight requests before returning.
func (s *Server) Start(ctx context.Context) error {
	// ----- Logger -----
	logger, err := newLogger(s.cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectPostgres(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL", zap.String("database", s.cfg.DBName))

	// ----- Redis (optional accelerator) -----
	redisClient, err := db.ConnectRedis(ctx, s.cfg)
	if err != nil {
		logger.Warn("redis unavailable, sessions will hit the database directly", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))
	}

	// ----- Repositories -----
	exec := dbx.NewExecutor(pool)
	userRepo := postgres.NewUserRepository(exec)
	roleRepo := postgres.NewRoleRepository(exec)
	clientRepo := postgres.NewClientRepository(exec)
	invoiceRepo := postgres.NewInvoiceRepository(exec)
	auditRepo := postgres.NewAuditRepository(exec)
	sessionRepo := postgres.NewSessionRepository(exec)
	s.userRepo = userRepo
	s.roleRepo = roleRepo

	// ----- Sessions & Rate Limiter -----
	sessionCache := session.NewCache(redisClient, logger)
	sessions := session.NewStore(sessionRepo, sessionCache, s.cfg.SessionTimeout, logger)
	rateLimiter := session.NewRateLimiter(redisClient)
	s.sessions = sessions

	// ----- Audit Recorder -----
	recorder := auditUsecase.NewRecorder(auditRepo, logger)

	// ----- Services -----
	authService := authUsecase.NewAuthService(userRepo, roleRepo, sessions, rateLimiter, recorder, logger)
	userService := userUsecase.NewUserService(userRepo, sessions, recorder, logger)
	roleService := roleUsecase.NewRoleService(roleRepo, userRepo, recorder, logger)
	clientService := clientUsecase.NewClientService(clientRepo, recorder, logger)
	invoiceService := invoiceUsecase.NewInvoiceService(invoiceRepo, clientRepo, recorder, logger)

	// ----- Super Admin bootstrap -----
	if err := s.bootstrapSuperAdmin(ctx); err != nil {
		// Startup continues; an operator can create the account by hand.
		logger.Error("failed to bootstrap super admin", zap.Error(err))
	}

	// ----- Session sweep -----
	go s.sweepSessions(ctx)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(sessions, userRepo, roleRepo, logger)
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSOrigin),
	)

	// ----- Handlers & Router -----
	handlers := &Handlers{
		Auth:           authHandler.NewAuthHandler(authService, s.cfg.CookieSecure),
		User:           userHandler.NewUserHandler(userService),
		Role:           roleHandler.NewRoleHandler(roleService),
		Client:         clientHandler.NewClientHandler(clientService),
		Invoice:        invoiceHandler.NewInvoiceHandler(invoiceService),
		Audit:          auditHandler.NewAuditHandler(auditRepo),
		Health:         healthHandler.NewHealthHandler(pool, redisClient),
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, handlers)

	// ----- Serve -----
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// bootstrapSuperAdmin guarantees the Super Admin role and one account
// holding it exist. Without it a fresh database is unusable: nobody can
// log in to create the first user.
func (s *Server) bootstrapSuperAdmin(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	roleID, err := s.roleRepo.EnsureSuperAdminRole(ctx)
	if err != nil {
		return fmt.Errorf("ensure super admin role: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(ctx, s.cfg.SuperAdminEmail); err == nil {
		return nil
	}

	password := s.cfg.SuperAdminPassword
	if password == "" {
		s.logger.Warn("SUPER_ADMIN_PASSWORD not set, skipping super admin account creation")
		return nil
	}
	if len(password) < 8 {
		return fmt.Errorf("super admin password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash super admin password: %w", err)
	}

	id, err := s.userRepo.Create(ctx, &user.User{
		Username:     s.cfg.SuperAdminUsername,
		Email:        s.cfg.SuperAdminEmail,
		PasswordHash: string(hash),
		RoleID:       roleID,
		Status:       user.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("create super admin user: %w", err)
	}

	s.logger.Info("super admin account created",
		zap.Int64("user_id", id), zap.String("email", s.cfg.SuperAdminEmail))
	return nil
}

// sweepSessions periodically deactivates expired sessions so the table
// does not accumulate dead rows. Validation never depends on the sweep.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.CleanExpired(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("swept expired sessions", zap.Int64("count", n))
			}
		}
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
