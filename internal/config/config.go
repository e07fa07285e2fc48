package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gmail     GmailConfig     `mapstructure:"gmail"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GmailConfig holds Gmail API OAuth2 configuration
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserID       string `mapstructure:"user_id"`
}

// SheetsConfig holds the target spreadsheet configuration
type SheetsConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	ConfigSheet   string `mapstructure:"config_sheet"`
}

// SyncConfig holds the synchronization engine configuration
type SyncConfig struct {
	TrustedSender      string `mapstructure:"trusted_sender"`
	Timezone           string `mapstructure:"timezone"`
	BatchSize          int64  `mapstructure:"batch_size"`
	HistoryMaxMessages int    `mapstructure:"history_max_messages"`
	FallbackWindowDays int    `mapstructure:"fallback_window_days"`
}

// SchedulerConfig holds the safety-net scan scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// DatabaseConfig holds the optional run-audit database configuration.
// The audit log is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	viper.SetDefault("gmail.user_id", "me")

	viper.SetDefault("sheets.config_sheet", "Config")

	viper.SetDefault("sync.trusted_sender", "gifts@gyftr.com")
	viper.SetDefault("sync.timezone", "Asia/Kolkata")
	viper.SetDefault("sync.batch_size", 50)
	viper.SetDefault("sync.history_max_messages", 50)
	viper.SetDefault("sync.fallback_window_days", 7)

	viper.SetDefault("scheduler.interval_minutes", 30)

	viper.SetDefault("database.port", 3306)
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Gmail
	viper.BindEnv("gmail.client_id", "CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "REFRESH_TOKEN")
	viper.BindEnv("gmail.user_id", "GMAIL_USER_ID")

	// Sheets
	viper.BindEnv("sheets.spreadsheet_id", "GYFTR_SPREADSHEET_ID")
	viper.BindEnv("sheets.config_sheet", "SHEETS_CONFIG_SHEET")

	// Sync
	viper.BindEnv("sync.trusted_sender", "SYNC_TRUSTED_SENDER")
	viper.BindEnv("sync.timezone", "SYNC_TIMEZONE")
	viper.BindEnv("sync.batch_size", "SYNC_BATCH_SIZE")
	viper.BindEnv("sync.history_max_messages", "SYNC_HISTORY_MAX_MESSAGES")
	viper.BindEnv("sync.fallback_window_days", "SYNC_FALLBACK_WINDOW_DAYS")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")

	// Database (optional audit log)
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Enabled reports whether the audit database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// Validate validates the configuration. A missing spreadsheet ID fails
// here, before any mailbox I/O happens.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
		return fmt.Errorf("gmail OAuth2 credentials (client_id, client_secret, refresh_token) are required")
	}

	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets spreadsheet_id is required")
	}

	if c.Sync.TrustedSender == "" {
		return fmt.Errorf("sync trusted_sender is required")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync batch_size must be greater than 0")
	}
	if c.Sync.FallbackWindowDays <= 0 {
		return fmt.Errorf("sync fallback_window_days must be greater than 0")
	}

	if c.Scheduler.IntervalMinutes < 0 {
		return fmt.Errorf("scheduler interval must not be negative")
	}

	if c.Database.Enabled() {
		if c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database user and dbname are required when database host is set")
		}
	}

	return nil
}
