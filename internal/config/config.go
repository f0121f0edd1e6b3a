package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finwatch/internal/services"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimitRPM int

	// Database
	SQLiteDBPath string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sweep
	SweepInterval    time.Duration
	SweepConcurrency int

	// Timezone is the IANA name used for periods, recurring schedules and
	// unusual hours.
	Timezone string
	LogLevel string

	// ConfigFile is an optional TOML file overriding the detector thresholds.
	ConfigFile string
	Detector   services.DetectorConfig
}

// Load reads the environment, then applies the TOML overlay named by
// CONFIG_FILE. A missing overlay file is an error; an unset CONFIG_FILE is not.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", 120),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finwatch.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finwatch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finwatch_transactions"),

		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		SweepConcurrency: getEnvInt("SWEEP_CONCURRENCY", 4),

		Timezone: getEnv("TIMEZONE", "UTC"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ConfigFile: getEnv("CONFIG_FILE", ""),
		Detector:   services.DefaultDetectorConfig(),
	}

	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPM < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitRPM))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SweepInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at least 1 minute", c.SweepInterval))
	} else if c.SweepInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at most 24 hours", c.SweepInterval))
	}
	if c.SweepConcurrency < 1 || c.SweepConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid sweep concurrency %d: must be between 1 and 64", c.SweepConcurrency))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	errors = append(errors, validateDetector(c.Detector)...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func validateDetector(d services.DetectorConfig) []string {
	var errors []string
	if !d.WarningPercent.IsPositive() || d.WarningPercent.GreaterThan(d.ExceededPercent) {
		errors = append(errors, fmt.Sprintf("invalid warning percent %s: must be positive and not above exceeded percent %s",
			d.WarningPercent, d.ExceededPercent))
	}
	if d.BudgetAlertWindow <= 0 || d.CushionAlertWindow <= 0 {
		errors = append(errors, "alert windows must be positive")
	}
	if d.CushionMonths < 1 || d.ExpenseLookbackMonths < 1 || d.AnomalyLookbackMonths < 1 {
		errors = append(errors, "cushion and lookback months must be at least 1")
	}
	if d.CushionFloor.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid cushion floor %s: must not be negative", d.CushionFloor))
	}
	if d.LargeAmountMultiplier.LessThanOrEqual(decimal.NewFromInt(1)) {
		errors = append(errors, fmt.Sprintf("invalid large amount multiplier %s: must be greater than 1", d.LargeAmountMultiplier))
	}
	if d.UnusualHourStart < 0 || d.UnusualHourEnd > 24 || d.UnusualHourStart >= d.UnusualHourEnd {
		errors = append(errors, fmt.Sprintf("invalid unusual hours [%d, %d): must satisfy 0 <= start < end <= 24",
			d.UnusualHourStart, d.UnusualHourEnd))
	}
	return errors
}

// fileConfig is the TOML overlay. Absent keys keep the environment values.
type fileConfig struct {
	Detector struct {
		WarningPercent        *float64  `toml:"warning_percent"`
		ExceededPercent       *float64  `toml:"exceeded_percent"`
		BudgetAlertWindow     *duration `toml:"budget_alert_window"`
		CushionAlertWindow    *duration `toml:"cushion_alert_window"`
		CushionMonths         *int64    `toml:"cushion_months"`
		CushionFloor          *float64  `toml:"cushion_floor"`
		ExpenseLookbackMonths *int      `toml:"expense_lookback_months"`
		AnomalyLookbackMonths *int      `toml:"anomaly_lookback_months"`
		LargeAmountMultiplier *float64  `toml:"large_amount_multiplier"`
		UnusualHourStart      *int      `toml:"unusual_hour_start"`
		UnusualHourEnd        *int      `toml:"unusual_hour_end"`
	} `toml:"detector"`
	Sweep struct {
		Interval    *duration `toml:"interval"`
		Concurrency *int      `toml:"concurrency"`
	} `toml:"sweep"`
	Timezone *string `toml:"timezone"`
}

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var f fileConfig
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parsing config: unknown keys %v", undecoded)
	}

	d := &c.Detector
	setDecimal(&d.WarningPercent, f.Detector.WarningPercent)
	setDecimal(&d.ExceededPercent, f.Detector.ExceededPercent)
	setDecimal(&d.CushionFloor, f.Detector.CushionFloor)
	setDecimal(&d.LargeAmountMultiplier, f.Detector.LargeAmountMultiplier)
	setDuration(&d.BudgetAlertWindow, f.Detector.BudgetAlertWindow)
	setDuration(&d.CushionAlertWindow, f.Detector.CushionAlertWindow)
	set(&d.CushionMonths, f.Detector.CushionMonths)
	set(&d.ExpenseLookbackMonths, f.Detector.ExpenseLookbackMonths)
	set(&d.AnomalyLookbackMonths, f.Detector.AnomalyLookbackMonths)
	set(&d.UnusualHourStart, f.Detector.UnusualHourStart)
	set(&d.UnusualHourEnd, f.Detector.UnusualHourEnd)

	setDuration(&c.SweepInterval, f.Sweep.Interval)
	set(&c.SweepConcurrency, f.Sweep.Concurrency)
	set(&c.Timezone, f.Timezone)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = v.Duration
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
