package config

import (
	"fmt"
	"strings"
	"time"

	domainconfig "diagramsync/domain/config"

	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DiagramsTable string
	EventBusName  string

	// Storage
	StoreBackend string
	LocksBackend string
	DefaultRole  string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret   string
	JWTIssuer   string
	RequireAuth bool

	// Sync engine
	SerializeProjectWrites bool
	MaxMessagesPerMinute   int
	MaxMessageBytes        int64

	// Feature flags
	EnableEvents   bool
	EnableMetrics  bool
	EnableTracing  bool
	EnableCORS     bool
	AllowedOrigins []string
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("AWS_REGION", "us-west-2")
	v.SetDefault("DIAGRAMS_TABLE", "diagramsync")
	v.SetDefault("EVENT_BUS_NAME", "diagramsync-events")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("LOCKS_BACKEND", BackendMemory)
	v.SetDefault("DEFAULT_ROLE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "diagramsync")
	v.SetDefault("REQUIRE_AUTH", false)
	v.SetDefault("SERIALIZE_PROJECT_WRITES", false)
	v.SetDefault("MAX_MESSAGES_PER_MINUTE", 0)
	v.SetDefault("MAX_MESSAGE_BYTES", 512*1024)
	v.SetDefault("ENABLE_EVENTS", false)
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_TRACING", false)
	v.SetDefault("ENABLE_CORS", true)
	v.SetDefault("ALLOWED_ORIGINS", "*")
}

// LoadConfig loads configuration from environment variables and, when
// CONFIG_FILE is set, from that file. Environment variables win.
func LoadConfig() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := FromViper(v)

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		Environment:   v.GetString("ENVIRONMENT"),

		AWSRegion:     v.GetString("AWS_REGION"),
		DiagramsTable: v.GetString("DIAGRAMS_TABLE"),
		EventBusName:  v.GetString("EVENT_BUS_NAME"),

		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		LocksBackend: strings.ToLower(v.GetString("LOCKS_BACKEND")),
		DefaultRole:  strings.ToUpper(v.GetString("DEFAULT_ROLE")),

		LogLevel: v.GetString("LOG_LEVEL"),

		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTIssuer:   v.GetString("JWT_ISSUER"),
		RequireAuth: v.GetBool("REQUIRE_AUTH"),

		SerializeProjectWrites: v.GetBool("SERIALIZE_PROJECT_WRITES"),
		MaxMessagesPerMinute:   v.GetInt("MAX_MESSAGES_PER_MINUTE"),
		MaxMessageBytes:        v.GetInt64("MAX_MESSAGE_BYTES"),

		EnableEvents:   v.GetBool("ENABLE_EVENTS"),
		EnableMetrics:  v.GetBool("ENABLE_METRICS"),
		EnableTracing:  v.GetBool("ENABLE_TRACING"),
		EnableCORS:     v.GetBool("ENABLE_CORS"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	for key, backend := range map[string]string{"STORE_BACKEND": c.StoreBackend, "LOCKS_BACKEND": c.LocksBackend} {
		if backend != BackendMemory && backend != BackendDynamoDB {
			return fmt.Errorf("%s must be %q or %q, got %q", key, BackendMemory, BackendDynamoDB, backend)
		}
	}
	if (c.StoreBackend == BackendDynamoDB || c.LocksBackend == BackendDynamoDB) && c.DiagramsTable == "" {
		return fmt.Errorf("DIAGRAMS_TABLE is required for the dynamodb backend")
	}
	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when ENABLE_EVENTS is set")
	}
	if c.RequireAuth && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when REQUIRE_AUTH is set")
	}
	if c.MaxMessagesPerMinute < 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_MINUTE must not be negative")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("MAX_MESSAGE_BYTES must be positive")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.StoreBackend != BackendDynamoDB {
			return fmt.Errorf("STORE_BACKEND must be dynamodb in production")
		}
	}

	return nil
}

// SyncConfig returns the engine timing and limits with configured overrides applied
func (c *Config) SyncConfig() *domainconfig.SyncConfig {
	sc := domainconfig.DefaultSyncConfig()
	sc.SerializeProjectWrites = c.SerializeProjectWrites
	sc.MaxMessagesPerMinute = c.MaxMessagesPerMinute
	sc.MaxMessageBytes = c.MaxMessageBytes
	return sc
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server
func (c *Config) ShutdownTimeout() time.Duration {
	return 15 * time.Second
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
