package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Region   RegionConfig   `yaml:"region" mapstructure:"region"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Scorer   ScorerConfig   `yaml:"scorer" mapstructure:"scorer"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RegionConfig describes the service area. The bounding box validates
// geocoder results; the optional shapefile tightens validation to the real
// municipal boundary.
type RegionConfig struct {
	Name           string  `yaml:"name" mapstructure:"name"`
	State          string  `yaml:"state" mapstructure:"state"`
	MinLat         float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MinLon         float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLat         float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MaxLon         float64 `yaml:"max_lon" mapstructure:"max_lon"`
	CenterLat      float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon      float64 `yaml:"center_lon" mapstructure:"center_lon"`
	AreaSqMiles    float64 `yaml:"area_sq_miles" mapstructure:"area_sq_miles"`
	ShapefilePath  string  `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	ShapefileField string  `yaml:"shapefile_field" mapstructure:"shapefile_field"`
}

// GeocoderConfig holds Nominatim settings.
type GeocoderConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// FeedConfig holds the incident feed endpoint and its schema mapping.
type FeedConfig struct {
	URL           string            `yaml:"url" mapstructure:"url"`
	RecordCap     int               `yaml:"record_cap" mapstructure:"record_cap"`
	RatePerSecond float64           `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Fields        map[string]string `yaml:"fields" mapstructure:"fields"`
}

// CacheConfig configures the cache backend and per-namespace lifetimes.
type CacheConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	Dir             string `yaml:"dir" mapstructure:"dir"`
	Path            string `yaml:"path" mapstructure:"path"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	QueryTTLHours   int    `yaml:"query_ttl_hours" mapstructure:"query_ttl_hours"`
	BaselineTTLDays int    `yaml:"baseline_ttl_days" mapstructure:"baseline_ttl_days"`
}

// QueryTTL returns the query-result cache lifetime.
func (c CacheConfig) QueryTTL() time.Duration {
	return time.Duration(c.QueryTTLHours) * time.Hour
}

// BaselineTTL returns the baseline cache lifetime.
func (c CacheConfig) BaselineTTL() time.Duration {
	return time.Duration(c.BaselineTTLDays) * 24 * time.Hour
}

// ScorerConfig optionally overrides the built-in scoring tiers.
type ScorerConfig struct {
	LaddersPath string `yaml:"ladders_path" mapstructure:"ladders_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRIMESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults: Madison, WI and its open data incident feed.
	v.SetDefault("region.name", "Madison")
	v.SetDefault("region.state", "WI")
	v.SetDefault("region.min_lat", 42.99)
	v.SetDefault("region.min_lon", -89.59)
	v.SetDefault("region.max_lat", 43.22)
	v.SetDefault("region.max_lon", -89.24)
	v.SetDefault("region.center_lat", 43.0747)
	v.SetDefault("region.center_lon", -89.3842)
	v.SetDefault("region.area_sq_miles", 101.5)
	v.SetDefault("region.shapefile_field", "NAME")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.rate_per_second", 1.0)
	v.SetDefault("feed.url", "https://maps.cityofmadison.com/arcgis/rest/services/Public/Police_Incident_Reports/MapServer/0/query")
	v.SetDefault("feed.record_cap", 2000)
	v.SetDefault("feed.rate_per_second", 4.0)
	v.SetDefault("cache.driver", "file")
	v.SetDefault("cache.dir", ".crimescope-cache")
	v.SetDefault("cache.path", ".crimescope-cache/cache.db")
	v.SetDefault("cache.query_ttl_hours", 24)
	v.SetDefault("cache.baseline_ttl_days", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for values the pipeline cannot
// run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Region.MinLat >= c.Region.MaxLat || c.Region.MinLon >= c.Region.MaxLon {
		problems = append(problems, "region bounding box is inverted or empty")
	}
	if c.Region.AreaSqMiles <= 0 {
		problems = append(problems, "region.area_sq_miles must be > 0")
	}
	if c.Feed.URL == "" {
		problems = append(problems, "feed.url is required")
	}
	if c.Feed.RecordCap <= 0 {
		problems = append(problems, "feed.record_cap must be > 0")
	}
	if c.Geocoder.RatePerSecond <= 0 || c.Feed.RatePerSecond <= 0 {
		problems = append(problems, "rate_per_second values must be > 0")
	}
	switch c.Cache.Driver {
	case "memory":
	case "file":
		if c.Cache.Dir == "" {
			problems = append(problems, "cache.dir is required for the file driver")
		}
	case "sqlite":
		if c.Cache.Path == "" {
			problems = append(problems, "cache.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "cache.driver must be one of memory, file, sqlite, postgres")
	}
	if c.Cache.QueryTTLHours <= 0 || c.Cache.BaselineTTLDays <= 0 {
		problems = append(problems, "cache TTLs must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
