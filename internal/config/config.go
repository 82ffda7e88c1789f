package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TRAILVIEW"

// ServiceConfig holds all configuration for the routes service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       DatabaseConfig
	RedisConfig    RedisConfig
	KafkaConfig    KafkaConfig
	SyncConfig     SyncConfig
	TerrainConfig  TerrainConfig
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the GORM postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds the profile cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ProfileTTL time.Duration
}

// KafkaConfig holds broker settings. No brokers disables publishing and consuming.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
	QueueSize   int
}

// Enabled reports whether any broker is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// SyncConfig tunes the cross-view synchronization of browse sessions.
type SyncConfig struct {
	SuppressWindow     time.Duration
	NavigationTimeout  time.Duration
	HoverThresholdM    float64
	SessionIdleTimeout time.Duration
	ReaperInterval     time.Duration
}

// TerrainConfig controls on-demand elevation sampling.
type TerrainConfig struct {
	Enabled bool
	Timeout time.Duration
}

// Load reads configuration from the environment, after loading a .env file if present.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:   servicePort(v.GetString("SERVICE_PORT")),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RedisConfig: RedisConfig{
			Addr:       v.GetString("REDIS_ADDR"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			ProfileTTL: v.GetDuration("PROFILE_CACHE_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
			QueueSize:   v.GetInt("KAFKA_QUEUE_SIZE"),
		},
		SyncConfig: SyncConfig{
			SuppressWindow:     v.GetDuration("SYNC_SUPPRESS_WINDOW"),
			NavigationTimeout:  v.GetDuration("SYNC_NAVIGATION_TIMEOUT"),
			HoverThresholdM:    v.GetFloat64("SYNC_HOVER_THRESHOLD_M"),
			SessionIdleTimeout: v.GetDuration("SESSION_IDLE_TIMEOUT"),
			ReaperInterval:     v.GetDuration("SESSION_REAPER_INTERVAL"),
		},
		TerrainConfig: TerrainConfig{
			Enabled: v.GetBool("TERRAIN_ENABLED"),
			Timeout: v.GetDuration("TERRAIN_TIMEOUT"),
		},
		AllowedOrigins: splitList(v.GetString("WS_ALLOWED_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "trailview_routes")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PROFILE_CACHE_TTL", "24h")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_GROUP_PREFIX", "trailview-")
	v.SetDefault("KAFKA_QUEUE_SIZE", 256)

	v.SetDefault("SYNC_SUPPRESS_WINDOW", "1s")
	v.SetDefault("SYNC_NAVIGATION_TIMEOUT", "2s")
	v.SetDefault("SYNC_HOVER_THRESHOLD_M", 100.0)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("SESSION_REAPER_INTERVAL", "1m")

	v.SetDefault("TERRAIN_ENABLED", true)
	v.SetDefault("TERRAIN_TIMEOUT", "20s")
}

func (c *ServiceConfig) validate() error {
	if c.SyncConfig.SuppressWindow <= 0 || c.SyncConfig.NavigationTimeout < 0 {
		return fmt.Errorf("invalid sync timing: window=%s navigation=%s",
			c.SyncConfig.SuppressWindow, c.SyncConfig.NavigationTimeout)
	}
	if c.SyncConfig.HoverThresholdM <= 0 {
		return fmt.Errorf("hover threshold must be positive, got %v", c.SyncConfig.HoverThresholdM)
	}
	if c.SyncConfig.ReaperInterval <= 0 || c.SyncConfig.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session reaper interval and idle timeout must be positive")
	}
	return nil
}

// servicePort accepts "8080" or ":8080".
func servicePort(p string) string {
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
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
