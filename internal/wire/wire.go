// Package wire provides dependency injection for the quoteflow application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	cliadapter "github.com/example/quoteflow/internal/adapters/cli"
	"github.com/example/quoteflow/internal/adapters/httpapi"
	"github.com/example/quoteflow/internal/adapters/sqlite"
	"github.com/example/quoteflow/internal/app"
	"github.com/example/quoteflow/internal/config"
	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/db"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

var (
	cfg              *config.Config
	database         *sql.DB
	supplierRepo     secondary.SupplierDirectory
	settingsRepo     secondary.SettingsStore
	inventoryRepo    secondary.InventoryRepository
	lockService      primary.LockService
	quotationService primary.QuotationService
	expiryService    primary.ExpiryService
	orchestrator     *app.AutoQuotationOrchestrator
	once             sync.Once
)

// Config returns the resolved configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the process logger, configured at the resolved log level.
func Logger() *logrus.Logger {
	once.Do(initServices)
	return config.Logger()
}

// QuotationService returns the singleton QuotationService instance.
func QuotationService() primary.QuotationService {
	once.Do(initServices)
	return quotationService
}

// AutomationService returns the singleton auto-quotation orchestrator.
func AutomationService() primary.AutomationService {
	once.Do(initServices)
	return orchestrator
}

// ExpiryService returns the singleton ExpiryService instance.
func ExpiryService() primary.ExpiryService {
	once.Do(initServices)
	return expiryService
}

// LockService returns the singleton LockService instance.
func LockService() primary.LockService {
	once.Do(initServices)
	return lockService
}

// SupplierDirectory returns the supplier repository.
func SupplierDirectory() secondary.SupplierDirectory {
	once.Do(initServices)
	return supplierRepo
}

// SettingsStore returns the settings repository.
func SettingsStore() secondary.SettingsStore {
	once.Do(initServices)
	return settingsRepo
}

// InventoryRepository returns the inventory repository.
func InventoryRepository() secondary.InventoryRepository {
	once.Do(initServices)
	return inventoryRepo
}

// Database returns the shared database handle.
func Database() *sql.DB {
	once.Do(initServices)
	return database
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v", err)
	}
	cfg, err = config.Resolve(dir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	config.ConfigureLogger(cfg.LogLevel)
	logger := config.Logger()

	if cfg.DBPath != "" {
		db.SetPath(cfg.DBPath)
	}
	database, err = db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	quotationRepo := sqlite.NewQuotationRepository(database)
	supplierRepo = sqlite.NewSupplierRepository(database)
	settingsRepo = sqlite.NewSettingsRepository(database)
	inventoryRepo = sqlite.NewInventoryRepository(database)

	lockStore, err := newLockStore(context.Background(), cfg, database)
	if err != nil {
		log.Fatalf("failed to initialize %s lock store: %v", cfg.LockBackend, err)
	}

	clock := app.SystemClock()
	locks := app.NewLockService(lockStore, clock, app.LockServiceConfig{
		TTL:    cfg.LockTTLDuration(),
		Policy: corelock.ParseFailurePolicy(cfg.LockFailurePolicy),
	}, logger.WithField("module", "locks"))
	lockService = locks

	// Create effect executor with injected repositories
	executor := app.NewEffectExecutor(quotationRepo, locks, clock, logger.WithField("module", "effects"))

	// Create services (primary ports implementation)
	quotationService = app.NewQuotationService(quotationRepo, supplierRepo, clock, logger.WithField("module", "quotations"))
	expiryService = app.NewExpiryService(quotationRepo, clock, logger.WithField("module", "expiry"))
	orchestrator = app.NewAutoQuotationOrchestrator(app.OrchestratorDeps{
		Quotations: quotationRepo,
		Suppliers:  supplierRepo,
		Settings:   settingsRepo,
		Inventory:  inventoryRepo,
		Locks:      locks,
		Executor:   executor,
		Clock:      clock,
		Logger:     logger.WithField("module", "orchestrator"),
	}, app.OrchestratorConfig{
		Debounce:       cfg.DebounceDuration(),
		ReconcileDelay: cfg.ReconcileDelayDuration(),
		MaxItems:       cfg.MaxItems,
		LockTTL:        cfg.LockTTLDuration(),
	})
}

// HTTPRouter returns a gin engine serving the quotation and automation API.
func HTTPRouter() *gin.Engine {
	once.Do(initServices)
	logger := config.Logger().WithField("module", "httpapi")
	if config.Logger().GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	h := httpapi.NewHandler(quotationService, orchestrator, inventoryRepo, logger)
	return httpapi.NewRouter(h, logger)
}

// QuotationAdapter returns a new QuotationAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func QuotationAdapter() *cliadapter.QuotationAdapter {
	return QuotationAdapterWithOutput(os.Stdout)
}

// QuotationAdapterWithOutput returns a new QuotationAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func QuotationAdapterWithOutput(out io.Writer) *cliadapter.QuotationAdapter {
	once.Do(initServices)
	return cliadapter.NewQuotationAdapter(quotationService, out)
}

// AutomationAdapter returns a new AutomationAdapter writing to stdout.
func AutomationAdapter() *cliadapter.AutomationAdapter {
	return AutomationAdapterWithOutput(os.Stdout)
}

// AutomationAdapterWithOutput returns a new AutomationAdapter writing to the given output.
func AutomationAdapterWithOutput(out io.Writer) *cliadapter.AutomationAdapter {
	once.Do(initServices)
	return cliadapter.NewAutomationAdapter(orchestrator, out)
}

// LockAdapter returns a new LockAdapter writing to stdout.
func LockAdapter() *cliadapter.LockAdapter {
	once.Do(initServices)
	return cliadapter.NewLockAdapter(lockService, os.Stdout)
}
