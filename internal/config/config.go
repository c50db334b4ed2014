package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Host           string
	Port           string
	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
	AllowedOrigins []string

	Crowd     CrowdConfig
	Directory DirectoryConfig
}

// CrowdConfig holds relay tuning
type CrowdConfig struct {
	PlayerIdleTimeout time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	CommandBuffer     int
	UpdateBuffer      int
}

// DirectoryConfig holds the optional Redis directory settings. An empty
// Addr disables the directory.
type DirectoryConfig struct {
	Addr     string
	Password string
	DB       int
	Interval time.Duration
}

var defaults = map[string]any{
	"HOST":                        "0.0.0.0",
	"PORT":                        "3000",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"METRICS_ENABLED":             "true",
	"ALLOWED_ORIGINS":             "*",
	"PLAYER_IDLE_TIMEOUT_SECONDS": "60",
	"HANDSHAKE_TIMEOUT_SECONDS":   "30",
	"WRITE_TIMEOUT_SECONDS":       "10",
	"COMMAND_BUFFER":              "50",
	"UPDATE_BUFFER":               "50",
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    "0",
	"DIRECTORY_INTERVAL_SECONDS":  "5",
}

// Load loads configuration from a .env file, an optional config.yaml and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	metricsEnabled, err := strconv.ParseBool(v.GetString("METRICS_ENABLED"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED value: %w", err)
	}

	idle, err := positiveSeconds(v, "PLAYER_IDLE_TIMEOUT_SECONDS")
	if err != nil {
		return nil, err
	}
	handshake, err := positiveSeconds(v, "HANDSHAKE_TIMEOUT_SECONDS")
	if err != nil {
		return nil, err
	}
	write, err := positiveSeconds(v, "WRITE_TIMEOUT_SECONDS")
	if err != nil {
		return nil, err
	}
	interval, err := positiveSeconds(v, "DIRECTORY_INTERVAL_SECONDS")
	if err != nil {
		return nil, err
	}
	commandBuffer, err := positiveInt(v, "COMMAND_BUFFER")
	if err != nil {
		return nil, err
	}
	updateBuffer, err := positiveInt(v, "UPDATE_BUFFER")
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(v.GetString("REDIS_DB"))
	if err != nil || redisDB < 0 {
		return nil, fmt.Errorf("invalid REDIS_DB value: %q", v.GetString("REDIS_DB"))
	}

	return &Config{
		Host:           v.GetString("HOST"),
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		MetricsEnabled: metricsEnabled,
		AllowedOrigins: parseOrigins(v.GetString("ALLOWED_ORIGINS")),
		Crowd: CrowdConfig{
			PlayerIdleTimeout: idle,
			HandshakeTimeout:  handshake,
			WriteTimeout:      write,
			CommandBuffer:     commandBuffer,
			UpdateBuffer:      updateBuffer,
		},
		Directory: DirectoryConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       redisDB,
			Interval: interval,
		},
	}, nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func positiveInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s value: must be positive, got %d", key, n)
	}
	return n, nil
}

func positiveSeconds(v *viper.Viper, key string) (time.Duration, error) {
	n, err := positiveInt(v, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// parseOrigins parses a comma-separated list of allowed origins
func parseOrigins(originsStr string) []string {
	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
