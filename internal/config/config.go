package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/passbi/bikeshare_insights/internal/cache"
	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Port               string
	DataPath           string
	DataDelimiter      rune
	DataLocation       *time.Location
	UserTypes          []string
	Genders            []string
	ChartWidth         int
	ChartHeight        int
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
	Redis              cache.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("DATA_PATH", "static/Chicago-DivvyBikes.csv")
	v.SetDefault("DATA_DELIMITER", ",")
	v.SetDefault("DATA_TIMEZONE", "UTC")
	v.SetDefault("DATA_USER_TYPES", "")
	v.SetDefault("DATA_GENDERS", "")
	v.SetDefault("CHART_WIDTH", 800)
	v.SetDefault("CHART_HEIGHT", 600)
	v.SetDefault("CACHE_SIZE", 64)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 0)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TLS_ENABLED", false)
	v.SetDefault("CACHE_MUTEX_TTL", "5s")
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables override it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	delimiter, err := parseDelimiter(v.GetString("DATA_DELIMITER"))
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(v.GetString("DATA_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATA_TIMEZONE: %w", err)
	}

	cacheTTL, err := parseDuration(v, "CACHE_TTL")
	if err != nil {
		return nil, err
	}
	mutexTTL, err := parseDuration(v, "CACHE_MUTEX_TTL")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:               v.GetString("API_PORT"),
		DataPath:           v.GetString("DATA_PATH"),
		DataDelimiter:      delimiter,
		DataLocation:       location,
		UserTypes:          parseList(v.GetString("DATA_USER_TYPES")),
		Genders:            parseList(v.GetString("DATA_GENDERS")),
		ChartWidth:         v.GetInt("CHART_WIDTH"),
		ChartHeight:        v.GetInt("CHART_HEIGHT"),
		CacheSize:          v.GetInt("CACHE_SIZE"),
		CacheTTL:           cacheTTL,
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		Redis: cache.Config{
			Enabled:    v.GetBool("REDIS_ENABLED"),
			Host:       v.GetString("REDIS_HOST"),
			Port:       v.GetInt("REDIS_PORT"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			TLSEnabled: v.GetBool("REDIS_TLS_ENABLED"),
			TTL:        cacheTTL,
			MutexTTL:   mutexTTL,
		},
	}, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// parseDelimiter accepts a single character or the escape `\t`
func parseDelimiter(raw string) (rune, error) {
	if raw == `\t` {
		return '\t', nil
	}

	delimiter, size := utf8.DecodeRuneInString(raw)
	if size == 0 || delimiter == utf8.RuneError || size != len(raw) {
		return 0, fmt.Errorf("invalid DATA_DELIMITER %q", raw)
	}
	return delimiter, nil
}

// parseList splits a comma separated list, dropping blank entries
func parseList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
