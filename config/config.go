package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Explicit configuration values, loaded once and passed by injection
 * into the pipeline constructors. There is deliberately no ambient
 * settings singleton: tests supply their own isolated configurations.
 */

// Server configures the receiver API and broadcast hub
type Server struct {
	Port              string        `mapstructure:"PORT"`
	APIKey            string        `mapstructure:"API_KEY"`
	AdmissionToken    string        `mapstructure:"ADMISSION_TOKEN"`
	EncryptionEnabled bool          `mapstructure:"ENCRYPTION_ENABLED"`
	EncryptionKey     string        `mapstructure:"ENCRYPTION_KEY"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Client configures the notifier runtime
type Client struct {
	ServerURL         string        `mapstructure:"SERVER_URL"`
	AdmissionToken    string        `mapstructure:"ADMISSION_TOKEN"`
	EncryptionEnabled bool          `mapstructure:"ENCRYPTION_ENABLED"`
	EncryptionKey     string        `mapstructure:"ENCRYPTION_KEY"`
	ConnectTimeout    time.Duration `mapstructure:"CONNECT_TIMEOUT"`
	MinInterval       time.Duration `mapstructure:"MIN_INTERVAL"`
	MaxQueued         int           `mapstructure:"MAX_QUEUED"`
	HistoryEnabled    bool          `mapstructure:"HISTORY_ENABLED"`
	HistoryPath       string        `mapstructure:"HISTORY_PATH"`
}

// GetServer loads the server configuration from .env and the environment
func GetServer() (*Server, error) {
	v := newViper()
	v.SetDefault("PORT", "5000")
	v.SetDefault("API_KEY", "")
	v.SetDefault("ADMISSION_TOKEN", "")
	v.SetDefault("ENCRYPTION_ENABLED", false)
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	if err := readInConfig(v); err != nil {
		return nil, err
	}
	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &cfg, nil
}

// GetClient loads the notifier configuration from .env and the environment
func GetClient() (*Client, error) {
	v := newViper()
	v.SetDefault("SERVER_URL", "http://localhost:5000")
	v.SetDefault("ADMISSION_TOKEN", "")
	v.SetDefault("ENCRYPTION_ENABLED", false)
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("CONNECT_TIMEOUT", "15s")
	v.SetDefault("MIN_INTERVAL", "2s")
	v.SetDefault("MAX_QUEUED", 5)
	v.SetDefault("HISTORY_ENABLED", false)
	v.SetDefault("HISTORY_PATH", "notifications.db")

	if err := readInConfig(v); err != nil {
		return nil, err
	}
	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	return v
}

// readInConfig loads the optional .env file; a missing file is fine,
// anything else is not
func readInConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("reading config file: %w", err)
}
