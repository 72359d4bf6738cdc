// Package config centralizes the environment-driven process configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ocrforge/hpcbroker/internal/db"
	"github.com/ocrforge/hpcbroker/internal/hpc"
)

// Environment variable names
const (
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBName     = "DB_NAME"
	EnvDBSSL      = "DB_SSL"

	EnvAMQPURL = "AMQP_URL"

	EnvHPCHost       = "HPC_HOST"
	EnvHPCPort       = "HPC_PORT"
	EnvHPCUser       = "HPC_USER"
	EnvHPCSSHKeyPath = "HPC_SSH_KEY_PATH"
	EnvHPCBaseDir    = "HPC_BASE_DIR"

	EnvTestBatch     = "TEST_BATCH"
	EnvServerAddress = "SERVER_ADDRESS"
	EnvJobsDir       = "JOBS_DIR"
)

// DefaultServerAddress is the listen address of the HTTP front-end.
const DefaultServerAddress = ":8000"

// DefaultJobsDir is where per-job directories (logs, fetched archives) live.
const DefaultJobsDir = "/var/lib/hpcbroker/jobs"

// Config carries everything a broker process needs to start.
type Config struct {
	Database      db.Options
	AMQPURL       string
	HPC           hpc.ClientConfig
	TestBatch     bool
	ServerAddress string
	JobsDir       string
}

// Load reads the configuration from the environment. Only the pieces common
// to every process are validated here; worker-only requirements are checked
// by ValidateHPC.
func Load() (*Config, error) {
	amqpURL := os.Getenv(EnvAMQPURL)
	if amqpURL == "" {
		return nil, fmt.Errorf("environment variable not set: %s", EnvAMQPURL)
	}

	config := &Config{
		Database: DatabaseOptions(),
		AMQPURL:  amqpURL,
		HPC: hpc.ClientConfig{
			Host:           os.Getenv(EnvHPCHost),
			Port:           envInt(EnvHPCPort, 22),
			User:           os.Getenv(EnvHPCUser),
			PrivateKeyPath: os.Getenv(EnvHPCSSHKeyPath),
			BaseDir:        os.Getenv(EnvHPCBaseDir),
		},
		TestBatch:     envBool(EnvTestBatch),
		ServerAddress: os.Getenv(EnvServerAddress),
		JobsDir:       os.Getenv(EnvJobsDir),
	}
	if config.ServerAddress == "" {
		config.ServerAddress = DefaultServerAddress
	}
	if config.JobsDir == "" {
		config.JobsDir = DefaultJobsDir
	}
	return config, nil
}

// DatabaseOptions reads the database connection options from the
// environment. Unset variables fall back to the connection defaults.
func DatabaseOptions() db.Options {
	return db.Options{
		Host:       os.Getenv(EnvDBHost),
		User:       os.Getenv(EnvDBUser),
		Password:   os.Getenv(EnvDBPassword),
		DBName:     os.Getenv(EnvDBName),
		Port:       envInt(EnvDBPort, 0),
		SSLEnabled: envBool(EnvDBSSL),
	}
}

// ValidateHPC checks the worker-only cluster connection requirements.
func (c *Config) ValidateHPC() error {
	required := map[string]string{
		EnvHPCHost:       c.HPC.Host,
		EnvHPCUser:       c.HPC.User,
		EnvHPCSSHKeyPath: c.HPC.PrivateKeyPath,
		EnvHPCBaseDir:    c.HPC.BaseDir,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("environment variable not set: %s", name)
		}
	}
	return nil
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(name string) bool {
	parsed, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && parsed
}
