package cmd

import (
	"context"
	"fmt"
	"net/http"

	"orderflow/api"
	"orderflow/api/auth"
	"orderflow/api/health"
	apiorder "orderflow/api/order"
	apistatus "orderflow/api/status"
	accountapp "orderflow/application/account"
	orderapp "orderflow/application/order"
	statusapp "orderflow/application/status"
	"orderflow/config"
	"orderflow/domain/account"
	infraauth "orderflow/infrastructure/auth"
	"orderflow/infrastructure/persistence/gormdb"
	"orderflow/infrastructure/persistence/retry"
	"orderflow/infrastructure/realtime"
	"orderflow/pkg/logger"
	"orderflow/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppBuilder builds an App from configuration
type AppBuilder struct {
	cfg *config.Config
	db  *gorm.DB
}

// NewBuilder creates a new AppBuilder
func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// WithDB uses an already opened connection instead of dialing one
func (b *AppBuilder) WithDB(db *gorm.DB) *AppBuilder {
	b.db = db
	return b
}

// Build wires repositories, services, the realtime hub and the HTTP server
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if err := logger.InitForApp(b.cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env))

	shutdownTracing, err := tracing.Init(ctx, b.cfg.Tracing, b.cfg.App.Env)
	if err != nil {
		return nil, err
	}

	db := b.db
	if db == nil {
		if db, err = OpenDatabase(ctx, b.cfg); err != nil {
			_ = shutdownTracing(ctx)
			return nil, err
		}
	}

	log := logger.Get()

	// Repositories
	orderRepo := gormdb.NewOrderRepository(db)
	statusRepo := gormdb.NewStatusRepository(db)
	accountRepo := gormdb.NewAccountRepository(db)
	cartRepo := gormdb.NewCartRepository(db)
	uowFactory := gormdb.NewUnitOfWorkFactory(db, retry.FromAppConfig(b.cfg))

	// Services
	tokens := infraauth.FromAppConfig(b.cfg.Auth)
	accountService := accountapp.NewService(accountRepo, infraauth.NewBcryptHasher(b.cfg.Auth.BcryptCost), tokens, log)

	managerRole := b.cfg.Auth.ManagerRole
	if managerRole == "" {
		managerRole = account.RoleManager
	}
	hub := realtime.NewHub(b.cfg.Realtime, managerRole, accountService, log)

	orderService := orderapp.NewApplicationService(uowFactory, orderRepo, statusRepo, cartRepo,
		orderapp.WithNotifier(hub),
		orderapp.WithLenientCreateStatus(b.cfg.Orders.LenientCreateStatus),
		orderapp.WithLogger(log),
	)
	statusService := statusapp.NewService(uowFactory, statusRepo, log)

	// Controllers
	staff := []string{managerRole, account.RoleAdmin}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	router := api.NewRouter(
		b.cfg,
		health.NewController(b.cfg, sqlDB, hub),
		auth.NewController(accountService),
		apiorder.NewController(orderService, accountService, staff...),
		apistatus.NewController(statusService, accountService, staff...),
		http.HandlerFunc(hub.ServeWS),
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + b.cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  b.cfg.Server.ReadTimeout,
		WriteTimeout: b.cfg.Server.WriteTimeout,
	}

	return &App{
		config:          b.cfg,
		router:          router,
		server:          server,
		db:              db,
		hub:             hub,
		orders:          orderService,
		shutdownTracing: shutdownTracing,
	}, nil
}
