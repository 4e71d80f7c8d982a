package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend selection and database
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional, empty URL disables the bridge)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Budget
	MonthlyIncome    string
	PropagationDelay time.Duration
	OverviewCacheTTL time.Duration

	// Seeding
	SeedOnStart bool
	SeedFile    string

	// Drag card dimensions used by the drop resolver
	CardWidth  float64
	CardHeight float64

	// Google Sheets export (worker)
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ExportInterval      time.Duration
	// Workbook written when no spreadsheet is configured
	ExportXLSXPath string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ssmartr.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ssmartr"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ssmartr_overview"),

		MonthlyIncome:    getEnv("MONTHLY_INCOME", "5000.00"),
		PropagationDelay: getEnvDuration("PROPAGATION_DELAY", 0),
		OverviewCacheTTL: getEnvDuration("OVERVIEW_CACHE_TTL", 30*time.Second),

		SeedOnStart: getEnvBool("SEED_ON_START", true),
		SeedFile:    getEnv("SEED_FILE", ""),

		CardWidth:  getEnvFloat("CARD_WIDTH", 320),
		CardHeight: getEnvFloat("CARD_HEIGHT", 320),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Overview"),
		ExportInterval:      getEnvDuration("EXPORT_INTERVAL", 5*time.Minute),
		ExportXLSXPath:      getEnv("EXPORT_XLSX_PATH", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Income parses MonthlyIncome. Call Validate first.
func (c *Config) Income() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.MonthlyIncome))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
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

	if income, err := decimal.NewFromString(strings.TrimSpace(c.MonthlyIncome)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid monthly income '%s': must be a decimal number", c.MonthlyIncome))
	} else if income.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid monthly income %s: must not be negative", income))
	}

	if c.PropagationDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid propagation delay %v: must not be negative", c.PropagationDelay))
	} else if c.PropagationDelay > 5*time.Second {
		errors = append(errors, fmt.Sprintf("invalid propagation delay %v: must be at most 5 seconds", c.PropagationDelay))
	}

	if c.OverviewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid overview cache TTL %v: must be at least 1 second", c.OverviewCacheTTL))
	}

	if c.CardWidth <= 0 || c.CardHeight <= 0 {
		errors = append(errors, fmt.Sprintf("invalid card size %vx%v: both dimensions must be positive", c.CardWidth, c.CardHeight))
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if c.ExportXLSXPath != "" && !strings.EqualFold(filepath.Ext(c.ExportXLSXPath), ".xlsx") {
		errors = append(errors, fmt.Sprintf("invalid xlsx export path '%s': must end in .xlsx", c.ExportXLSXPath))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
