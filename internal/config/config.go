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
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the place-name lookup service and its cache.
type GeocodeConfig struct {
	BaseURL     string      `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string      `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64     `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Cache       CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig selects and configures the geocode cache backend.
type CacheConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"` // memory, sqlite, postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ResolveConfig configures coordinate resolution.
type ResolveConfig struct {
	Workers    int    `yaml:"workers" mapstructure:"workers"`
	LatField   string `yaml:"lat_field" mapstructure:"lat_field"`
	LonField   string `yaml:"lon_field" mapstructure:"lon_field"`
	PlaceField string `yaml:"place_field" mapstructure:"place_field"`
}

// BoundaryConfig configures administrative boundary sources.
type BoundaryConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	IDField   string `yaml:"id_field" mapstructure:"id_field"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// RenderConfig configures map output.
type RenderConfig struct {
	Format    string  `yaml:"format" mapstructure:"format"`
	Basemap   string  `yaml:"basemap" mapstructure:"basemap"`
	Zoom      int     `yaml:"zoom" mapstructure:"zoom"`
	CenterLat float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon float64 `yaml:"center_lon" mapstructure:"center_lon"`
	Title     string  `yaml:"title" mapstructure:"title"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port         int `yaml:"port" mapstructure:"port"`
	TileCacheCap int `yaml:"tile_cache_cap" mapstructure:"tile_cache_cap"`
	TileCacheTTL int `yaml:"tile_cache_ttl_secs" mapstructure:"tile_cache_ttl_secs"`
}

// TileTTL returns the tile cache TTL as a duration.
func (c ServerConfig) TileTTL() time.Duration {
	return time.Duration(c.TileCacheTTL) * time.Second
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
	v.SetEnvPrefix("MAPCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "mapcli/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.cache.backend", "memory")
	v.SetDefault("geocode.cache.path", "geocode-cache.db")
	v.SetDefault("resolve.workers", 4)
	v.SetDefault("resolve.lat_field", "latitude")
	v.SetDefault("resolve.lon_field", "longitude")
	v.SetDefault("resolve.place_field", "place")
	v.SetDefault("boundary.dir", "boundaries")
	v.SetDefault("boundary.id_field", "GID")
	v.SetDefault("boundary.name_field", "NAME")
	v.SetDefault("render.format", "html")
	v.SetDefault("render.basemap", "osm")
	v.SetDefault("render.zoom", 5)
	v.SetDefault("render.center_lat", 39.8)
	v.SetDefault("render.center_lon", -98.6)
	v.SetDefault("render.title", "mapcli")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tile_cache_cap", 512)
	v.SetDefault("server.tile_cache_ttl_secs", 3600)

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
