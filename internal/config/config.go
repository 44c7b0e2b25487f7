package config

import (
	"fmt"     // For error formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For joining missing keys
	"time"    // For cache TTL

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	JWTSecret       string        // JWT secret key
	RedisAddr       string        // Redis server address
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	IsProd          bool          // Is production environment
	CacheTTL        time.Duration // How long read snapshots stay cached
	AuthRatePerSec  int           // Login/register requests per second per IP
	AuthRateBurst   int           // Burst allowance for the auth limiter
	PlanCatalogPath string        // YAML file with the plan types to seed
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) *Config {
	redisDB, _ := strconv.Atoi(getenv("REDIS_DB"))
	return &Config{
		AppPort:         withDefault(getenv("APP_PORT"), "8080"),       // Application port
		DBUser:          getenv("DB_USER"),                             // Database user
		DBPassword:      getenv("DB_PASSWORD"),                         // Database password
		DBHost:          withDefault(getenv("DB_HOST"), "127.0.0.1"),   // Database host
		DBPort:          withDefault(getenv("DB_PORT"), "3306"),        // Database port
		DBName:          getenv("DB_NAME"),                             // Database name
		JWTSecret:       getenv("JWT_SECRET"),                          // JWT secret key
		RedisAddr:       withDefault(getenv("REDIS_ADDR"), "127.0.0.1:6379"),
		RedisPass:       getenv("REDIS_PASS"),                          // Redis password
		RedisDB:         redisDB,                                       // Redis database number
		IsProd:          getenv("IS_PROD") == "true",                   // Is production environment
		CacheTTL:        time.Duration(intOr(getenv("CACHE_TTL_SECONDS"), 60)) * time.Second,
		AuthRatePerSec:  intOr(getenv("AUTH_RATE_PER_SEC"), 5),
		AuthRateBurst:   intOr(getenv("AUTH_RATE_BURST"), 10),
		PlanCatalogPath: withDefault(getenv("PLAN_CATALOG"), "plans.yaml"),
	}
}

// DSN returns the MySQL data source name. Matched rather than changed rows
// are reported so conditional updates can tell a miss from a no-op.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&clientFoundRows=true"
}

// Validate reports the required settings that are missing
func (c *Config) Validate() error {
	var missing []string
	if c.DBUser == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
