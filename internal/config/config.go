package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "PlayMaxx"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultAPIBaseURL      = "https://uat-apis.playmaxx.club/api/apis/"
	defaultCDNBaseURL      = "https://uat-site.playmaxx.club/UploadsFiles/"
	defaultAdminID         = 1
	defaultStoreEngine     = "sqlite"
	defaultStorePath       = "playmaxx.db"
	defaultShutdownDelay   = 10 * time.Second
	defaultRequestTimeout  = 15 * time.Second
	defaultBannerInterval  = 4 * time.Second
	defaultLoginAttempts   = 5
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	requestSecondsEnvVar   = "REQUEST_TIMEOUT_SECONDS"
	requestDurationEnvVar  = "REQUEST_TIMEOUT"
	bannerIntervalEnvVar   = "BANNER_INTERVAL"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	APIBaseURL     string
	CDNBaseURL     string
	AdminID        int
	StoreEngine    string
	StorePath      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	RequestTimeout time.Duration
	BannerInterval time.Duration
	LoginAttempts  int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		APIBaseURL:     withTrailingSlash(getEnv("API_BASE_URL", defaultAPIBaseURL)),
		CDNBaseURL:     withTrailingSlash(getEnv("CDN_BASE_URL", defaultCDNBaseURL)),
		AdminID:        defaultAdminID,
		StoreEngine:    strings.ToLower(getEnv("STORE_ENGINE", defaultStoreEngine)),
		StorePath:      getEnv("STORE_PATH", defaultStorePath),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		RequestTimeout: defaultRequestTimeout,
		BannerInterval: defaultBannerInterval,
		LoginAttempts:  defaultLoginAttempts,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationFromEnv(requestSecondsEnvVar, requestDurationEnvVar, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.BannerInterval, err = durationFromEnv("", bannerIntervalEnvVar, cfg.BannerInterval); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ADMIN_ID: %w", err)
		}
		cfg.AdminID = id
	}

	if v := os.Getenv("LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_ATTEMPTS_PER_MINUTE: %w", err)
		}
		cfg.LoginAttempts = n
	}

	switch cfg.StoreEngine {
	case "memory", "sqlite":
	case "redis":
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when STORE_ENGINE=redis")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORE_ENGINE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unsupported STORE_ENGINE %q", cfg.StoreEngine)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsUAT reports whether the client talks to the UAT backend.
func (c Config) IsUAT() bool {
	return strings.Contains(c.APIBaseURL, "uat-")
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func withTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
