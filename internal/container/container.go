package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/asset-registry/internal/application/dispatcher"
	"github.com/garyjia/asset-registry/internal/application/port"
	"github.com/garyjia/asset-registry/internal/application/service"
	"github.com/garyjia/asset-registry/internal/application/workflow"
	"github.com/garyjia/asset-registry/internal/auth"
	"github.com/garyjia/asset-registry/internal/domain/entity"
	"github.com/garyjia/asset-registry/internal/domain/event"
	"github.com/garyjia/asset-registry/internal/infrastructure/catalog"
	"github.com/garyjia/asset-registry/internal/infrastructure/metrics"
	"github.com/garyjia/asset-registry/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/asset-registry/pkg/utils"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	catalog      *catalog.Catalog
	metrics      *metrics.Collector
	tokens       *auth.TokenManager

	// Application
	dispatcher dispatcher.Dispatcher
	machine    workflow.ApprovalStateMachine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Assets     service.AssetService
	Ministries service.MinistryService
	Reports    service.ReportService
	Audit      port.AuditRecorder
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components; call Start to do that.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database and repositories
// 2. Category catalog, token manager and metrics
// 3. Event dispatcher
// 4. Approval state machine and application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initSupport(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize support components: %w", err)
	}

	c.initDispatcher()
	c.logger.Info("Dispatcher initialized")

	c.initWorkflowAndServices()
	c.logger.Info("Approval workflow and services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Waits for in-flight async handlers before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.set("database", false)
	}

	status.set("dispatcher", c.dispatcher != nil)
	status.set("repositories", c.repositories != nil)
	status.set("services", c.services != nil)

	if c.catalog != nil {
		status.Components["catalog"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("categories: %d", len(c.catalog.List())),
		}
	} else {
		status.set("catalog", false)
	}

	return status
}

// CheckHealth reports the overall state and one message per component.
func (c *Container) CheckHealth(ctx context.Context) (bool, map[string]string) {
	status := c.Health(ctx)
	components := make(map[string]string, len(status.Components))
	for name, component := range status.Components {
		switch {
		case !component.Healthy:
			components[name] = "unhealthy: " + component.Message
		case component.Message != "":
			components[name] = component.Message
		default:
			components[name] = "ok"
		}
	}
	return status.Overall, components
}

func (s *HealthStatus) set(name string, initialized bool) {
	if initialized {
		s.Components[name] = ComponentHealth{Healthy: true}
		return
	}
	s.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
	s.Overall = false
}

// initDatabase opens the database, migrates it and builds repositories.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.DB.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) closeDatabase() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.sqlDB = nil
	return err
}

// initSupport loads categories and builds the token manager and metrics.
func (c *Container) initSupport() error {
	cat, err := ProvideCatalog(&c.config.Catalog, c.logger)
	if err != nil {
		return err
	}
	c.catalog = cat

	tokens, err := ProvideTokenManager(&c.config.Auth)
	if err != nil {
		return err
	}
	c.tokens = tokens

	if c.config.Metrics.Enabled {
		c.metrics = metrics.NewCollector()
	}
	return nil
}

// initDispatcher creates the event dispatcher, the event log and the
// ministry review queue subscribers.
func (c *Container) initDispatcher() {
	c.dispatcher = dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKeyValueLogger(c.logger.Named("dispatcher"))),
		dispatcher.WithAsyncTimeout(c.config.Dispatcher.AsyncTimeout),
	)

	eventLog := c.logger.Named("events")
	c.dispatcher.SubscribeAll("event-log", func(ctx context.Context, evt *event.Event) error {
		eventLog.Info("Asset event",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)),
			zap.String("asset_id", evt.AssetID),
			zap.String("actor_id", evt.ActorID),
			zap.Any("payload", evt.Payload),
		)
		return nil
	})

	c.dispatcher.SubscribeNamed(event.TypeStatusChanged, "ministry-review-queue",
		ministryReviewNotifier(c.logger.Named("ministry-review")))
}

// ministryReviewNotifier logs each asset that enters second-tier review so
// ministry admins can pick it up.
func ministryReviewNotifier(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if evt.Payload["new_status"] != entity.StatusPendingMinistryReview {
			return nil
		}
		ministryID, _ := evt.Payload["ministry_id"].(string)
		logger.Info("Asset awaiting ministry review",
			zap.String("asset_id", evt.AssetID),
			zap.String("ministry_id", ministryID),
			zap.String("approved_by", evt.ActorID),
		)
		return nil
	}
}

// initWorkflowAndServices builds the approval state machine and services.
func (c *Container) initWorkflowAndServices() {
	logger := utils.NewKeyValueLogger(c.logger)
	recorder := service.NewAuditRecorder(c.repositories.Audit, logger)

	opts := []workflow.MachineOption{
		workflow.WithTransactionManager(c.db),
		workflow.WithDispatcher(c.dispatcher),
		workflow.WithLogger(logger),
	}
	if c.metrics != nil {
		opts = append(opts, workflow.WithMetrics(c.metrics))
	}
	c.machine = workflow.NewApprovalStateMachine(c.repositories.Assets, c.repositories.Ministries, recorder, opts...)

	c.services = &ServiceBundle{
		Assets: service.NewAssetService(
			c.repositories.Assets,
			c.repositories.Audit,
			c.db,
			c.machine,
			recorder,
			c.catalog,
			c.dispatcher,
			logger,
		),
		Ministries: service.NewMinistryService(c.repositories.Ministries, c.db, recorder, logger),
		Reports:    service.NewReportService(c.repositories.Assets, logger),
		Audit:      recorder,
	}
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Catalog returns the loaded category catalog.
func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

// Metrics returns the Prometheus collector, or nil when metrics are disabled.
func (c *Container) Metrics() *metrics.Collector {
	return c.metrics
}

// Tokens returns the bearer token manager.
func (c *Container) Tokens() *auth.TokenManager {
	return c.tokens
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// StateMachine returns the approval state machine.
func (c *Container) StateMachine() workflow.ApprovalStateMachine {
	return c.machine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
