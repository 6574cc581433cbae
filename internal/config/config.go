package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Ledger backends understood by LedgerConfig.Backend
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string `env:"NODE_ENV" envDefault:"development"`
	Port      string `env:"PORT" envDefault:"3210"`
	JWTSecret string `env:"JWT_SECRET"`

	// Prefix of the URL encoded in lot label QR codes, e.g. https://wms.example.vn/qr/
	LabelQRURL string `env:"LABEL_QR_URL"`

	Ledger   LedgerConfig
	Google   GoogleConfig
	Database DatabaseConfig
	Log      LogConfig
	Scanner  ScannerConfig
}

// LedgerConfig selects where lot rows live
type LedgerConfig struct {
	Backend     string `env:"LEDGER_BACKEND" envDefault:"sheets"`
	AuditBuffer int    `env:"AUDIT_BUFFER" envDefault:"256"`
}

// GoogleConfig holds the spreadsheet and service account settings
type GoogleConfig struct {
	SheetID         string `env:"SHEET_ID"`
	ClientEmail     string `env:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey      string `env:"GOOGLE_SERVICE_ACCOUNT_KEY"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Username string `env:"PG_USERNAME" envDefault:"postgres"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE" envDefault:"lotscan"`
	Quiet    bool   `env:"DB_QUIET" envDefault:"false"`
}

// LogConfig mirrors logger.Config so the logger package stays free of env parsing
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`
	Path   string `env:"LOG_PATH" envDefault:"./logs"`
}

// ScannerConfig holds behaviour toggles for the scanner endpoints
type ScannerConfig struct {
	StrictSlotCodes bool `env:"STRICT_SLOT_CODES" envDefault:"false"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	switch c.Ledger.Backend {
	case BackendSheets:
		if c.Google.SheetID == "" {
			return fmt.Errorf("SHEET_ID is required for the sheets ledger backend")
		}
		if c.Google.CredentialsFile == "" && (c.Google.ClientEmail == "" || c.Google.PrivateKey == "") {
			return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_EMAIL/KEY or GOOGLE_CREDENTIALS_FILE is required")
		}
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	return nil
}

// PrivateKeyPEM restores newlines that were escaped when the key was put into an env var
func (g GoogleConfig) PrivateKeyPEM() string {
	return strings.ReplaceAll(g.PrivateKey, `\n`, "\n")
}

// ClientConfig is what the scanner CLI needs to reach the server
type ClientConfig struct {
	Server    string `env:"LOTSCAN_SERVER" envDefault:"http://localhost:3210"`
	Token     string `env:"LOTSCAN_TOKEN"`
	QueueFile string `env:"LOTSCAN_QUEUE" envDefault:"./scanner_queue.json"`
	Log       LogConfig
}

// LoadClient loads the scanner CLI configuration from the environment
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
