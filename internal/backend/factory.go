package backend

import (
	"fmt"
	"log/slog"

	"finwatch/internal/amqp"
	"finwatch/internal/services"
	"finwatch/internal/storage"
)

// Factory builds engines from configuration.
type Factory struct {
	logger *slog.Logger
	clock  services.Clock
}

// NewFactory creates a new engine factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// WithClock overrides the engine clock. Tests use it to pin time.
func (f *Factory) WithClock(clock services.Clock) *Factory {
	f.clock = clock
	return f
}

// Create opens the store, connects the broker when the role uses one and
// wires the services. The caller owns the returned Engine and must Close it.
func (f *Factory) Create(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	monitorCfg := services.MonitorConfig{
		Detector:         config.Detector,
		Location:         config.Location,
		Clock:            f.clock,
		SweepConcurrency: config.SweepConcurrency,
	}

	var amqpClient *amqp.Client
	if config.usesBroker() {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		switch {
		case err != nil && config.Role == RoleWorker:
			repo.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			// The API keeps serving and runs every check inline.
			f.logger.Warn("Failed to initialize AMQP client, continuing without broker", "error", err)
			amqpClient = nil
		default:
			monitorCfg.Alerts = amqpClient
			if config.Role == RoleAPI {
				monitorCfg.Events = amqpClient
			}
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	monitor := services.NewMonitor(repo, monitorCfg)

	f.logger.Info("Initialized engine",
		"role", config.Role,
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil,
		"timezone", monitorCfg.Location)

	return &Engine{
		Store:        repo,
		AMQP:         amqpClient,
		Monitor:      monitor,
		Accounts:     services.NewAccountService(repo, monitor),
		Transactions: services.NewTransactionService(repo, monitor),
		Budgets:      services.NewBudgetService(repo, monitor),
	}, nil
}
