/*
Package config loads service configuration from the environment.

PURPOSE:
  One Config struct shared by all three binaries; each loads it under its
  own prefix (ENERGY_, JOB_, SCHEDULE_) so they can run on one host with
  separate databases and ports.
*/
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the runtime settings for a service binary.
type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"./data/gig.db"`

	// JWTSecret is the HS256 secret shared by all services.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Peer service base URLs; empty disables the corresponding calls.
	EnergyServiceURL   string `envconfig:"ENERGY_SERVICE_URL"`
	ScheduleServiceURL string `envconfig:"SCHEDULE_SERVICE_URL"`

	// SettlementTimeout bounds each settlement HTTP call.
	SettlementTimeout time.Duration `envconfig:"SETTLEMENT_TIMEOUT" default:"10s"`

	// StrictSettlement makes check-in and no-show fail when the energy
	// service call fails, instead of logging and continuing.
	StrictSettlement bool `envconfig:"STRICT_SETTLEMENT" default:"false"`

	// SweepSchedule is the cron spec for the no-show sweeper.
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"0 2 * * *"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration for the given service prefix.
func Load(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Logger builds the root logger for a service from the configured level.
func (c *Config) Logger(service string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log.WithField("service", service)
}
