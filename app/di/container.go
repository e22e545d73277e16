package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"account-service/app/config"
	"account-service/app/domain"
	"account-service/app/driver/credstore"
	"account-service/app/driver/kratos"
	"account-service/app/driver/postgres"
	"account-service/app/port"
	"account-service/app/rest"
	"account-service/app/rest/handlers"
	"account-service/app/usecase"
	"account-service/app/utils/validator"
)

// credentialBackend is a credential store the container can probe and close
type credentialBackend interface {
	port.CredentialStore
	Ping(ctx context.Context) error
	Close() error
}

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Drivers
	DB           *postgres.DB
	KratosClient *kratos.Client
	Credentials  credentialBackend

	// Gateways
	IdentityGateway *kratos.IdentityGateway
	ProfileStore    port.ProfileStore

	Validator *validator.Validator

	// Usecases
	SessionObserver *usecase.SessionObserver
	AccountUsecase  *usecase.AccountUseCase

	stopRouter func()
}

// NewContainer creates and initializes a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: logger,
	}

	var err error

	// Initialize database connection
	container.DB, err = postgres.NewConnection(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize credential store
	container.Credentials, err = newCredentialBackend(cfg, logger)
	if err != nil {
		container.DB.Close()
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	// Initialize Kratos client
	container.KratosClient, err = kratos.NewClient(cfg, logger)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize Kratos client: %w", err)
	}

	// Initialize gateways
	container.IdentityGateway = kratos.NewIdentityGateway(container.KratosClient, container.Credentials, logger)
	container.ProfileStore = postgres.NewProfileRepository(container.DB.Pool(), logger)

	// Initialize usecases
	container.Validator, err = validator.New(validator.WithCountryCodes(domain.Codes(cfg.CountryCodes)))
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize validator: %w", err)
	}
	container.SessionObserver = usecase.NewSessionObserver(container.IdentityGateway, logger)
	container.AccountUsecase = usecase.NewAccountUseCase(
		container.IdentityGateway,
		container.ProfileStore,
		container.SessionObserver,
		container.Validator,
		usecase.AccountConfig{
			PasswordResetRedirect: cfg.PasswordResetRedirect,
			OperationTimeout:      cfg.OperationTimeout,
		},
		logger,
	)

	logger.Info("Container initialized with full dependency stack",
		"credential_backend", credentialBackendName(cfg))

	return container, nil
}

// Start resolves the current session and seeds the account state from it.
// The observer keeps following session changes until ctx is done.
func (c *Container) Start(ctx context.Context, readyTimeout time.Duration) error {
	c.SessionObserver.Start(ctx)

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := c.SessionObserver.WaitReady(readyCtx); err != nil {
		return fmt.Errorf("session observer did not become ready: %w", err)
	}
	c.AccountUsecase.RestoreState(c.SessionObserver.Snapshot())
	return nil
}

// CreateRouter creates and returns a fully configured Echo router
func (c *Container) CreateRouter(version string) *echo.Echo {
	routerConfig := rest.RouterConfig{
		Logger:         c.Logger,
		AccountUsecase: c.AccountUsecase,
		Sessions:       c.SessionObserver,
		HealthChecks: map[string]handlers.HealthChecker{
			"database":    c.DB.HealthCheck,
			"kratos":      c.KratosClient.HealthCheck,
			"credentials": c.Credentials.Ping,
			"session":     c.sessionReady,
		},
		CountryCodes:   c.Config.CountryCodes,
		Forms:          c.Validator,
		AllowedOrigins: c.Config.AllowedOrigins,
		ConnectSrc:     []string{c.KratosClient.PublicURL()},
		ResetPerMinute: c.Config.ResetRateLimit,
		ResetBurst:     c.Config.ResetRateBurst,
		Version:        version,
		EnableDebug:    c.Config.LogLevel == "debug",
		EnableMetrics:  c.Config.EnableMetrics,
	}

	router, stop := rest.NewRouter(routerConfig)
	c.stopRouter = stop

	c.Logger.Info("Full API router created")
	return router
}

func (c *Container) sessionReady(context.Context) error {
	if c.SessionObserver.Snapshot().Loading {
		return domain.ErrSessionLoading
	}
	return nil
}

// Close closes all resources
func (c *Container) Close() error {
	if c.stopRouter != nil {
		c.stopRouter()
	}

	var closeErr error
	if c.Credentials != nil {
		if err := c.Credentials.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close credential store: %w", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	c.Logger.Info("Container closed")
	return closeErr
}

func newCredentialBackend(cfg *config.Config, logger *slog.Logger) (credentialBackend, error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, credentials will not survive a restart")
		return credstore.NewMemoryStore(), nil
	}
	return credstore.NewRedisStoreWithURL(cfg.RedisURL, cfg.InstallationID, logger)
}

func credentialBackendName(cfg *config.Config) string {
	if cfg.RedisURL == "" {
		return "memory"
	}
	return "redis"
}
