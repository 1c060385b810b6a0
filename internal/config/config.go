// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	RSK       RSKConfig       `mapstructure:"rsk"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Alerts    AlertConfig     `mapstructure:"alerts"`
	Emergency EmergencyConfig `mapstructure:"emergency"`
	Phases    PhaseConfig     `mapstructure:"phases"`
	Report    ReportConfig    `mapstructure:"report"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// RSKConfig contains RSK blockchain connection configuration
type RSKConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	NetworkID      int           `mapstructure:"network_id"`
	NetworkName    string        `mapstructure:"network_name"`
	BackupNodes    []string      `mapstructure:"backup_nodes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	SignerKeyFile  string        `mapstructure:"signer_key_file"`
}

// RegistryConfig contains contract registry configuration
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	SnapshotRetain   int           `mapstructure:"snapshot_retain"`
}

// MonitorConfig contains health monitoring configuration
type MonitorConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	BalanceThreshold  string        `mapstructure:"balance_threshold"`   // wei, decimal string
	GasPriceThreshold string        `mapstructure:"gas_price_threshold"` // wei, decimal string
	CheckTimeout      time.Duration `mapstructure:"check_timeout"`
}

// AlertConfig contains alert dispatcher configuration
type AlertConfig struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	EnableWebhook  bool          `mapstructure:"enable_webhook"`
	EnableEmail    bool          `mapstructure:"enable_email"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	SMTPUsername   string        `mapstructure:"smtp_username"`
	SMTPPassword   string        `mapstructure:"smtp_password"`
	EmailFrom      string        `mapstructure:"email_from"`
	EmailTo        []string      `mapstructure:"email_to"`
}

// EmergencyConfig contains emergency response configuration
type EmergencyConfig struct {
	MaxAutomatedActions int           `mapstructure:"max_automated_actions"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	ActionTimeout       time.Duration `mapstructure:"action_timeout"`
	BudgetResetInterval time.Duration `mapstructure:"budget_reset_interval"`
}

// PhaseConfig contains phase executor configuration
type PhaseConfig struct {
	VerifierURL         string        `mapstructure:"verifier_url"`
	VerifierAPIKey      string        `mapstructure:"verifier_api_key"`
	VerifierTimeout     time.Duration `mapstructure:"verifier_timeout"`
	MultisigAddress     string        `mapstructure:"multisig_address"`
	PhaseTimeout        time.Duration `mapstructure:"phase_timeout"`
	FailedPhaseFraction float64       `mapstructure:"failed_phase_fraction"`
}

// ReportConfig contains report persistence configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("RSK_ORCHESTRATOR")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if nodeURL := os.Getenv("RSK_NODE_URL"); nodeURL != "" {
		config.RSK.NodeURL = nodeURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}
	if keyFile := os.Getenv("RSK_SIGNER_KEY_FILE"); keyFile != "" {
		config.RSK.SignerKeyFile = keyFile
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "rsk-readiness-orchestrator")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// RSK defaults
	viper.SetDefault("rsk.node_url", "https://public-node.testnet.rsk.co")
	viper.SetDefault("rsk.network_id", 31) // RSK Testnet
	viper.SetDefault("rsk.network_name", "rsk-testnet")
	viper.SetDefault("rsk.request_timeout", "30s")
	viper.SetDefault("rsk.retry_attempts", 3)
	viper.SetDefault("rsk.retry_delay", "5s")

	// Registry defaults
	viper.SetDefault("registry.path", "./data/contracts.json")

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/orchestrator.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")
	viper.SetDefault("storage.snapshot_retain", 100)

	// Monitor defaults
	viper.SetDefault("monitor.poll_interval", "300s")
	viper.SetDefault("monitor.balance_threshold", "100000000000000000") // 0.1 RBTC
	viper.SetDefault("monitor.gas_price_threshold", "1000000000")      // 1 gwei
	viper.SetDefault("monitor.check_timeout", "30s")

	// Alert defaults
	viper.SetDefault("alerts.cooldown", "15m")
	viper.SetDefault("alerts.webhook_timeout", "10s")
	viper.SetDefault("alerts.retry_attempts", 3)
	viper.SetDefault("alerts.retry_delay", "5s")
	viper.SetDefault("alerts.enable_webhook", false)
	viper.SetDefault("alerts.enable_email", false)
	viper.SetDefault("alerts.smtp_port", 587)

	// Emergency defaults
	viper.SetDefault("emergency.max_automated_actions", 5)
	viper.SetDefault("emergency.retry_backoff", "10s")
	viper.SetDefault("emergency.action_timeout", "60s")
	viper.SetDefault("emergency.budget_reset_interval", "1h")

	// Phase defaults
	viper.SetDefault("phases.verifier_url", "https://rootstock.blockscout.com")
	viper.SetDefault("phases.verifier_timeout", "60s")
	viper.SetDefault("phases.phase_timeout", "10m")
	viper.SetDefault("phases.failed_phase_fraction", 0.5)

	// Report defaults
	viper.SetDefault("report.output_dir", "./reports")

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.RSK.NodeURL == "" {
		return fmt.Errorf("RSK node URL is required")
	}
	if c.Registry.Path == "" {
		return fmt.Errorf("contract registry path is required")
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor poll interval must be positive")
	}
	if c.Emergency.MaxAutomatedActions < 0 {
		return fmt.Errorf("emergency action budget cannot be negative")
	}
	if c.Phases.FailedPhaseFraction <= 0 || c.Phases.FailedPhaseFraction > 1 {
		return fmt.Errorf("failed phase fraction must be in (0, 1]")
	}
	return nil
}
