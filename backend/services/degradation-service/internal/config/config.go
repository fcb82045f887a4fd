package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "baas/backend/libs/config"
)

// Car-type mapping sources.
const (
	CarTypesCSV      = "csv"
	CarTypesPostgres = "postgres"
	CarTypesStatic   = "static"
	CarTypesNone     = "none"
)

const defaultPort = "8085"

// Config defines degradation service configuration.
type Config struct {
	Input struct {
		DataDir            string `yaml:"dataDir" env:"BAAS_DATA_DIR"`
		Workers            int    `yaml:"workers" env:"BAAS_WORKERS"`
		SegmentMode        string `yaml:"segmentMode" env:"BAAS_SEGMENT_MODE"`
		RequireStatusFlags bool   `yaml:"requireStatusFlags" env:"BAAS_REQUIRE_STATUS_FLAGS"`
	} `yaml:"input"`
	Output struct {
		Dir       string `yaml:"dir" env:"BAAS_OUTPUT_DIR"`
		Prefix    string `yaml:"prefix" env:"BAAS_OUTPUT_PREFIX"`
		Plots     bool   `yaml:"plots" env:"BAAS_PLOTS"`
		KeepParts bool   `yaml:"keepParts" env:"BAAS_KEEP_PARTS"`
	} `yaml:"output"`
	Classifier struct {
		Strategy         string  `yaml:"strategy" env:"BAAS_CLASSIFIER"`
		CurrentThreshold float64 `yaml:"currentThreshold" env:"BAAS_CURRENT_THRESHOLD"`
		DropUnknown      bool    `yaml:"dropUnknown" env:"BAAS_DROP_UNKNOWN"`
	} `yaml:"classifier"`
	Eligibility struct {
		MinStartSOC float64       `yaml:"minStartSoc" env:"BAAS_MIN_START_SOC"`
		MinSOCDelta float64       `yaml:"minSocDelta" env:"BAAS_MIN_SOC_DELTA"`
		MinDuration time.Duration `yaml:"minDuration" env:"BAAS_MIN_DURATION"`
	} `yaml:"eligibility"`
	Window struct {
		MinDays int `yaml:"minDays" env:"BAAS_WINDOW_DAYS"`
	} `yaml:"window"`
	CarTypes struct {
		Source  string `yaml:"source" env:"BAAS_CAR_TYPES_SOURCE"`
		MapFile string `yaml:"mapFile" env:"BAAS_CAR_TYPES_FILE"`
		Static  string `yaml:"static" env:"BAAS_CAR_TYPE"`
		DSN     string `yaml:"dsn" env:"BAAS_POSTGRES_DSN"`
		Query   string `yaml:"query" env:"BAAS_CAR_TYPES_QUERY"`
		Redis   struct {
			Addr       string `yaml:"addr" env:"BAAS_REDIS_ADDR"`
			Password   string `yaml:"password" env:"BAAS_REDIS_PASSWORD"`
			DB         int    `yaml:"db" env:"BAAS_REDIS_DB"`
			TTLSeconds int    `yaml:"ttlSeconds" env:"BAAS_REDIS_TTL_SECONDS"`
		} `yaml:"redis"`
	} `yaml:"carTypes"`
	HTTP struct {
		Port      string `yaml:"port" env:"BAAS_HTTP_PORT"`
		JWTSecret string `yaml:"jwtSecret" env:"BAAS_JWT_SECRET"`
	} `yaml:"http"`
	Log struct {
		Level    string `yaml:"level" env:"LOG_LEVEL"`
		Encoding string `yaml:"encoding" env:"LOG_ENCODING"`
	} `yaml:"log"`
}

// Default returns the configuration used when neither file nor env set a key.
func Default() *Config {
	cfg := &Config{}
	cfg.Input.DataDir = "data"
	cfg.Input.SegmentMode = "activity"
	cfg.Output.Dir = "out"
	cfg.Output.Prefix = "baas_"
	cfg.Classifier.Strategy = "current-threshold"
	cfg.Classifier.CurrentThreshold = 50
	cfg.Eligibility.MinStartSOC = 20
	cfg.Eligibility.MinSOCDelta = 15
	cfg.Eligibility.MinDuration = 180 * time.Second
	cfg.Window.MinDays = 90
	cfg.CarTypes.Source = CarTypesNone
	cfg.CarTypes.Redis.TTLSeconds = 3600
	cfg.HTTP.Port = defaultPort
	cfg.Log.Level = "info"
	cfg.Log.Encoding = "json"
	return cfg
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.DataDir) == "" {
		return errors.New("config: input data dir required")
	}
	if c.Input.Workers < 0 {
		return errors.New("config: workers must not be negative")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("config: output dir required")
	}
	if c.Classifier.CurrentThreshold < 0 {
		return errors.New("config: classifier current threshold must not be negative")
	}
	if c.Window.MinDays < 0 {
		return errors.New("config: window min days must not be negative")
	}
	if c.Eligibility.MinDuration < 0 {
		return errors.New("config: eligibility min duration must not be negative")
	}

	c.CarTypes.Source = strings.ToLower(strings.TrimSpace(c.CarTypes.Source))
	switch c.CarTypes.Source {
	case "", CarTypesNone:
		c.CarTypes.Source = CarTypesNone
	case CarTypesCSV:
		if strings.TrimSpace(c.CarTypes.MapFile) == "" {
			return errors.New("config: car types map file required for csv source")
		}
	case CarTypesPostgres:
		if strings.TrimSpace(c.CarTypes.DSN) == "" {
			return errors.New("config: car types dsn required for postgres source")
		}
	case CarTypesStatic:
		if strings.TrimSpace(c.CarTypes.Static) == "" {
			return errors.New("config: car type required for static source")
		}
	default:
		return fmt.Errorf("config: unknown car types source %q", c.CarTypes.Source)
	}
	return nil
}

// RedisTTL returns the car-type cache expiry. Zero keeps entries forever.
func (c *Config) RedisTTL() time.Duration {
	if c.CarTypes.Redis.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CarTypes.Redis.TTLSeconds) * time.Second
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
