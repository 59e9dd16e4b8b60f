package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Database drivers supported by DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	MigrationsPath string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	JWTSecret      string
	JWTIssuer      string

	// Timesheet rules
	WorkdayHours       decimal.Decimal
	WorkdayTimeZone    string
	WorkdayLocation    *time.Location
	ForceClosePolicy   string
	StaleSessionAfter  time.Duration // 0 disables automatic closing of stale sessions
	RecentEntriesLimit int

	// HTTP surface
	StatusPollRate     string   // ulule/limiter formatted rate, e.g. "120-M"
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	PosthogAPIKey string `mapstructure:"POSTHOG_API_KEY"`
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("SQLITE_PATH", "timesheet.db")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_ISSUER", "timesheet-app")
	v.SetDefault("WORKDAY_HOURS", "8")
	v.SetDefault("WORKDAY_TIMEZONE", "UTC")
	v.SetDefault("FORCE_CLOSE_POLICY", "now")
	v.SetDefault("STALE_SESSION_AFTER", "0")
	v.SetDefault("RECENT_ENTRIES_LIMIT", 7)
	v.SetDefault("STATUS_POLL_RATE", "120-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("POSTHOG_API_KEY", "")
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.DatabaseDriver = strings.ToLower(v.GetString("DB_DRIVER"))
	if cfg.DatabaseDriver != DriverPostgres && cfg.DatabaseDriver != DriverSQLite {
		log.Printf("Warning: Invalid value for DB_DRIVER ('%s'). Defaulting to %s.\n", cfg.DatabaseDriver, DriverPostgres)
		cfg.DatabaseDriver = DriverPostgres
	}

	cfg.DatabaseURL = v.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == DriverPostgres {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.SQLitePath = v.GetString("SQLITE_PATH")
	cfg.MigrationsPath = v.GetString("MIGRATIONS_PATH")

	cfg.Port = v.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = v.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = v.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = v.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = v.GetString("JWT_ISSUER")

	workdayStr := v.GetString("WORKDAY_HOURS")
	workdayHours, err := decimal.NewFromString(workdayStr)
	if err != nil || !workdayHours.IsPositive() {
		workdayHours = decimal.NewFromInt(8)
		log.Printf("Warning: Invalid value for WORKDAY_HOURS ('%s'). Defaulting to %s.\n", workdayStr, workdayHours)
	}
	cfg.WorkdayHours = workdayHours

	cfg.WorkdayTimeZone = v.GetString("WORKDAY_TIMEZONE")
	loc, err := time.LoadLocation(cfg.WorkdayTimeZone)
	if err != nil {
		log.Printf("Warning: Invalid value for WORKDAY_TIMEZONE ('%s'). Defaulting to UTC.\n", cfg.WorkdayTimeZone)
		cfg.WorkdayTimeZone = "UTC"
		loc = time.UTC
	}
	cfg.WorkdayLocation = loc

	cfg.ForceClosePolicy = v.GetString("FORCE_CLOSE_POLICY")

	staleStr := v.GetString("STALE_SESSION_AFTER")
	staleAfter, err := time.ParseDuration(staleStr)
	if err != nil || staleAfter < 0 {
		staleAfter = 0
		if staleStr != "" {
			log.Printf("Warning: Invalid value for STALE_SESSION_AFTER ('%s'). Stale sessions will require a forced clock-in.\n", staleStr)
		}
	}
	cfg.StaleSessionAfter = staleAfter

	cfg.RecentEntriesLimit = v.GetInt("RECENT_ENTRIES_LIMIT")
	if cfg.RecentEntriesLimit <= 0 {
		cfg.RecentEntriesLimit = 7
	}

	cfg.StatusPollRate = v.GetString("STATUS_POLL_RATE")
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.PosthogAPIKey = v.GetString("POSTHOG_API_KEY")

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
