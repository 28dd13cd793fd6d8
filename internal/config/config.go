package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DBDriverNone   = "none"
	DBDriverSQLite = "sqlite"
	DBDriverMySQL  = "mysql"
)

type Config struct {
	AppPort string
	AppEnv  string

	CORSAllowOrigins []string

	MaxPrincipal        float64
	MaxAnnualRate       float64
	MaxTermPeriods      int
	RateLimitPerMin     int
	IdempTTLSecs        int
	ShutdownTimeoutSecs int

	DBDriver   string
	DBLogLevel string
	SQLitePath string
	MySQLHost  string
	MySQLPort  string
	MySQLDB    string
	MySQLUser  string
	MySQLPass  string

	// Empty RedisAddr disables idempotent replay and falls back to in-process rate limiting
	RedisAddr string
	RedisDB   int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getfloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppPort: getenv("APP_PORT", "8080"),
		AppEnv:  getenv("APP_ENV", "development"),

		CORSAllowOrigins: splitList(getenv("CORS_ALLOW_ORIGINS", "*")),

		MaxPrincipal:        getfloat("MAX_PRINCIPAL", 1_000_000_000),
		MaxAnnualRate:       getfloat("MAX_ANNUAL_RATE", 1000),
		MaxTermPeriods:      getint("MAX_TERM_PERIODS", 600),
		RateLimitPerMin:     getint("RATE_LIMIT_PER_MINUTE", 60),
		IdempTTLSecs:        getint("IDEMPOTENCY_TTL_SECONDS", 300),
		ShutdownTimeoutSecs: getint("SHUTDOWN_TIMEOUT_SECONDS", 10),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", DBDriverSQLite)),
		DBLogLevel: strings.ToLower(getenv("DB_LOG_LEVEL", "warn")),
		SQLitePath: getenv("SQLITE_PATH", "file::memory:?cache=shared"),
		MySQLHost:  getenv("MYSQL_HOST", "mysql"),
		MySQLPort:  getenv("MYSQL_PORT", "3306"),
		MySQLDB:    getenv("MYSQL_DB", "loans"),
		MySQLUser:  getenv("MYSQL_USER", "loans"),
		MySQLPass:  getenv("MYSQL_PASS", "loans"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getint("REDIS_DB", 0),
	}
	return c
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	if c.MaxTermPeriods < 0 || c.MaxPrincipal < 0 || c.MaxAnnualRate < 0 {
		return errors.New("MAX_TERM_PERIODS, MAX_PRINCIPAL and MAX_ANNUAL_RATE must not be negative")
	}
	if c.RateLimitPerMin < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.IdempTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS must be positive")
	}

	switch c.DBDriver {
	case DBDriverNone:
	case DBDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case DBDriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want none, sqlite or mysql)", c.DBDriver)
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DBDriverMySQL {
		return c.MySQLDSN()
	}
	return c.SQLitePath
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
