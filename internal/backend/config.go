package backend

import (
	"fmt"
	"time"

	"finwatch/internal/config"
	"finwatch/internal/services"
)

// Config holds what the factory needs to build an Engine.
type Config struct {
	Role Role

	SQLiteDBPath string

	// AMQP is optional. RoleCLI ignores it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Detector         services.DetectorConfig
	Location         *time.Location
	SweepConcurrency int
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, role Role) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Role:             role,
		SQLiteDBPath:     appConfig.SQLiteDBPath,
		AMQPURL:          appConfig.AMQPURL,
		AMQPExchange:     appConfig.AMQPExchange,
		AMQPQueue:        appConfig.AMQPQueue,
		Detector:         appConfig.Detector,
		Location:         loc,
		SweepConcurrency: appConfig.SweepConcurrency,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role: %q", c.Role)
	}
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.usesBroker() && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP_URL is set")
	}
	return nil
}

func (c Config) usesBroker() bool {
	return c.Role != RoleCLI && c.AMQPURL != ""
}
