// shared/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// CommonConfig holds configuration fields that are shared across services.
type CommonConfig struct {
	AppEnv          string        // "development" or "production"
	RedisAddrs      []string      // Redis server addresses (e.g., "redis:6379")
	RedisPassword   string        // Redis password for authentication
	RequestTimeout  time.Duration // Per-request deadline applied by handlers
	ShutdownTimeout time.Duration // Grace period for in-flight requests on shutdown
	ServicePort     int           // The port this service listens on
}

// RegistrationServiceConfig holds configuration specific to the registration-service.
type RegistrationServiceConfig struct {
	CommonConfig
	ListenAddr                     string // Address for the HTTP server to listen on (e.g., ":8080")
	StoreBackend                   string // BackendMongo or BackendMemory
	MongoDBConnStr                 string
	MongoDBDatabase                string
	MongoDBRegistrationsCollection string
	MongoDBTeamsCollection         string
	MongoDBMembersCollection       string
	JWTSecret                      string // HS256 secret shared with the identity provider
	RabbitMQURL                    string // Empty disables event publishing
	RabbitMQExchange               string
	TeamMaxMembers                 int
	TeamCodeLength                 int
	EnforceSingleMembership        bool // Reject joins from participants already in another team
}

// LoadDotEnv loads variables from path (default ".env") without overriding
// anything already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{AppEnv: getString("APP_ENV", "development")}
	var err error

	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"localhost:6379"}
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.RedisAddrs = append(cfg.RedisAddrs, addr)
			}
		}
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadRegistrationServiceConfig loads configuration for the registration-service.
func LoadRegistrationServiceConfig() (*RegistrationServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for registration-service: %w", err)
	}

	cfg := &RegistrationServiceConfig{
		CommonConfig:                   common,
		ListenAddr:                     getString("REGISTRATION_SERVICE_LISTEN_ADDR", ":8080"),
		StoreBackend:                   strings.ToLower(getString("STORE_BACKEND", BackendMongo)),
		MongoDBConnStr:                 getString("MONGODB_CONN_STR", "mongodb://mongodb-service:27017"),
		MongoDBDatabase:                getString("MONGODB_DATABASE", "hackathon"),
		MongoDBRegistrationsCollection: getString("MONGODB_REGISTRATIONS_COLLECTION", "registrations"),
		MongoDBTeamsCollection:         getString("MONGODB_TEAMS_COLLECTION", "teams"),
		MongoDBMembersCollection:       getString("MONGODB_MEMBERS_COLLECTION", "team_members"),
		JWTSecret:                      os.Getenv("JWT_SECRET"),
		RabbitMQURL:                    os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange:               getString("RABBITMQ_EXCHANGE", "hackathon.events"),
	}

	if cfg.StoreBackend != BackendMongo && cfg.StoreBackend != BackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)", BackendMongo, BackendMemory, cfg.StoreBackend)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg.TeamMaxMembers, err = getInt("TEAM_MAX_MEMBERS", 6)
	if err != nil {
		return nil, err
	}
	if cfg.TeamMaxMembers <= 0 {
		return nil, fmt.Errorf("TEAM_MAX_MEMBERS must be a positive integer (got %d)", cfg.TeamMaxMembers)
	}
	cfg.TeamCodeLength, err = getInt("TEAM_CODE_LENGTH", 6)
	if err != nil {
		return nil, err
	}
	if cfg.TeamCodeLength < 4 {
		return nil, fmt.Errorf("TEAM_CODE_LENGTH must be at least 4 (got %d)", cfg.TeamCodeLength)
	}
	cfg.EnforceSingleMembership, err = getBool("TEAM_ENFORCE_SINGLE_MEMBERSHIP", false)
	if err != nil {
		return nil, err
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from REGISTRATION_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}
	return cfg, nil
}

func getString(envKey, defaultVal string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

func getBool(envKey string, defaultVal bool) (bool, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean format for %s: %w", envKey, err)
	}
	return b, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8080" -> 8080, "0.0.0.0:8080" -> 8080)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}
