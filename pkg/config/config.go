package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for the circadian lighting agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration (event history)
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration
	EnableHistory              bool

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Location (required, no default)
	Latitude  float64
	Longitude float64
	Timezone  string

	// Lighting configuration
	ProfilePath          string
	Areas                []string
	DefaultColorMode     string
	RefreshIntervalSec   int
	MinRefreshIntervalMs int
	StepRatePerSec       float64
	StepBurst            int

	// Outdoor brightness configuration
	OutdoorSource     string
	OutdoorLocation   string
	LuxSmoothingSec   float64
	LuxFloor          float64
	LuxCeiling        float64
	MaxDataAgeHours   float64
	BaselineLearnDays int

	// Lux collector configuration
	CollectorTopics  []string
	LuxRetentionDays int
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker: "localhost",
		MQTTPort:   1883,
		RedisHost:  "localhost",
		RedisPort:  6379,
		RedisDB:    0,
		// Postgres defaults
		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "circadian",
		PostgresDB:                 "circadian",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     5,
		PostgresMaxIdleConnections: 2,
		PostgresConnMaxLifetime:    30 * time.Minute,
		EnableHistory:              false,
		ServiceName:                "circadian-agent",
		HealthPort:                 8080,
		LogLevel:                   "info",
		// Location must be supplied explicitly
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Timezone:  "UTC",
		// Lighting defaults
		DefaultColorMode:     "kelvin",
		RefreshIntervalSec:   60,
		MinRefreshIntervalMs: 10000,
		StepRatePerSec:       4,
		StepBurst:            2,
		// Outdoor defaults
		OutdoorSource:     "angle",
		OutdoorLocation:   "outdoor",
		LuxSmoothingSec:   300,
		MaxDataAgeHours:   1.0,
		BaselineLearnDays: 30,
		// Collector defaults
		CollectorTopics:  []string{"automation/raw/illuminance/+"},
		LuxRetentionDays: 35,
	}
}

// LoadFromEnv loads configuration from environment variables with CIRCADIAN_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("CIRCADIAN_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("CIRCADIAN_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("CIRCADIAN_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("CIRCADIAN_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("CIRCADIAN_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("CIRCADIAN_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("CIRCADIAN_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("CIRCADIAN_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("CIRCADIAN_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("CIRCADIAN_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("CIRCADIAN_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("CIRCADIAN_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("CIRCADIAN_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("CIRCADIAN_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("CIRCADIAN_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}
	if v := os.Getenv("CIRCADIAN_ENABLE_HISTORY"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.EnableHistory = enable
		}
	}

	// Service configuration
	if v := os.Getenv("CIRCADIAN_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("CIRCADIAN_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("CIRCADIAN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Location
	if v := os.Getenv("CIRCADIAN_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("CIRCADIAN_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}
	if v := os.Getenv("CIRCADIAN_TIMEZONE"); v != "" {
		c.Timezone = v
	}

	// Lighting configuration
	if v := os.Getenv("CIRCADIAN_PROFILE_PATH"); v != "" {
		c.ProfilePath = v
	}
	if v := os.Getenv("CIRCADIAN_AREAS"); v != "" {
		c.Areas = splitList(v)
	}
	if v := os.Getenv("CIRCADIAN_COLOR_MODE"); v != "" {
		c.DefaultColorMode = v
	}
	if v := os.Getenv("CIRCADIAN_REFRESH_INTERVAL_SEC"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.RefreshIntervalSec = interval
		}
	}
	if v := os.Getenv("CIRCADIAN_MIN_REFRESH_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.MinRefreshIntervalMs = ms
		}
	}
	if v := os.Getenv("CIRCADIAN_STEP_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.StepRatePerSec = rate
		}
	}
	if v := os.Getenv("CIRCADIAN_STEP_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil {
			c.StepBurst = burst
		}
	}

	// Outdoor brightness configuration
	if v := os.Getenv("CIRCADIAN_OUTDOOR_SOURCE"); v != "" {
		c.OutdoorSource = v
	}
	if v := os.Getenv("CIRCADIAN_OUTDOOR_LOCATION"); v != "" {
		c.OutdoorLocation = v
	}
	if v := os.Getenv("CIRCADIAN_LUX_SMOOTHING_SEC"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			c.LuxSmoothingSec = sec
		}
	}
	if v := os.Getenv("CIRCADIAN_LUX_FLOOR"); v != "" {
		if floor, err := strconv.ParseFloat(v, 64); err == nil {
			c.LuxFloor = floor
		}
	}
	if v := os.Getenv("CIRCADIAN_LUX_CEILING"); v != "" {
		if ceiling, err := strconv.ParseFloat(v, 64); err == nil {
			c.LuxCeiling = ceiling
		}
	}
	if v := os.Getenv("CIRCADIAN_MAX_DATA_AGE_HOURS"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil {
			c.MaxDataAgeHours = hours
		}
	}
	if v := os.Getenv("CIRCADIAN_BASELINE_LEARN_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.BaselineLearnDays = days
		}
	}

	// Lux collector configuration
	if v := os.Getenv("CIRCADIAN_COLLECTOR_TOPICS"); v != "" {
		c.CollectorTopics = splitList(v)
	}
	if v := os.Getenv("CIRCADIAN_LUX_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.LuxRetentionDays = days
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	c.RegisterFlags(pflag.CommandLine)
	pflag.Parse()
}

// RegisterFlags binds every config field to a flag on the given set
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	// MQTT flags
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres SSL mode")
	fs.BoolVar(&c.EnableHistory, "enable-history", c.EnableHistory, "Record lighting events in Postgres")

	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Location flags
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Geographic latitude for solar time")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Geographic longitude for solar time")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "IANA timezone name")

	// Lighting flags
	fs.StringVar(&c.ProfilePath, "profile", c.ProfilePath, "Lighting profile YAML file")
	fs.StringSliceVar(&c.Areas, "areas", c.Areas, "Areas refreshed on startup (comma separated)")
	fs.StringVar(&c.DefaultColorMode, "color-mode", c.DefaultColorMode, "Default light color mode (kelvin, rgb, xy)")
	fs.IntVar(&c.RefreshIntervalSec, "refresh-interval", c.RefreshIntervalSec, "Refresh loop interval in seconds")
	fs.IntVar(&c.MinRefreshIntervalMs, "min-refresh-interval-ms", c.MinRefreshIntervalMs, "Minimum time between refreshes per area (ms)")
	fs.Float64Var(&c.StepRatePerSec, "step-rate", c.StepRatePerSec, "Manual steps allowed per second per area")
	fs.IntVar(&c.StepBurst, "step-burst", c.StepBurst, "Manual step burst size per area")

	// Outdoor flags
	fs.StringVar(&c.OutdoorSource, "outdoor-source", c.OutdoorSource, "Preferred outdoor brightness source (lux, weather, angle)")
	fs.StringVar(&c.OutdoorLocation, "outdoor-location", c.OutdoorLocation, "Sensor location holding outdoor lux readings")
	fs.Float64Var(&c.LuxSmoothingSec, "lux-smoothing", c.LuxSmoothingSec, "Lux EMA time constant in seconds")
	fs.Float64Var(&c.LuxFloor, "lux-floor", c.LuxFloor, "Dark-day lux baseline (0 = learn)")
	fs.Float64Var(&c.LuxCeiling, "lux-ceiling", c.LuxCeiling, "Bright-day lux baseline (0 = learn)")
	fs.Float64Var(&c.MaxDataAgeHours, "max-data-age-hours", c.MaxDataAgeHours, "Maximum age of lux readings to consider (hours)")
	fs.IntVar(&c.BaselineLearnDays, "baseline-learn-days", c.BaselineLearnDays, "Days of lux history used to learn baselines")

	// Collector flags
	fs.StringSliceVar(&c.CollectorTopics, "collector-topics", c.CollectorTopics, "Raw illuminance topics stored by the lux collector")
	fs.IntVar(&c.LuxRetentionDays, "lux-retention-days", c.LuxRetentionDays, "Days of lux readings kept in Redis")
}

// Validate checks the full circadian agent configuration
func (c *Config) Validate() error {
	if err := c.ValidateService(); err != nil {
		return err
	}

	if !c.HasLocation() {
		return fmt.Errorf("latitude and longitude are required")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}

	switch c.DefaultColorMode {
	case "kelvin", "rgb", "xy":
	default:
		return fmt.Errorf("invalid color mode: %s (must be kelvin, rgb, or xy)", c.DefaultColorMode)
	}
	switch c.OutdoorSource {
	case "lux", "weather", "angle":
	default:
		return fmt.Errorf("invalid outdoor source: %s (must be lux, weather, or angle)", c.OutdoorSource)
	}

	if c.RefreshIntervalSec <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.StepRatePerSec <= 0 || c.StepBurst <= 0 {
		return fmt.Errorf("step rate and burst must be positive")
	}

	if c.EnableHistory && c.PostgresHost == "" {
		return fmt.Errorf("Postgres host is required when history is enabled")
	}

	return nil
}

// ValidateService checks the connection and service settings shared by
// every binary, including the lux collector which needs no location
func (c *Config) ValidateService() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.LuxRetentionDays <= 0 {
		return fmt.Errorf("lux retention must be at least one day")
	}
	return nil
}

// HasLocation reports whether both coordinates were provided
func (c *Config) HasLocation() bool {
	return !math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude)
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// RefreshInterval returns the refresh loop period
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// LuxRetention is how long the collector keeps lux readings
func (c *Config) LuxRetention() time.Duration {
	return time.Duration(c.LuxRetentionDays) * 24 * time.Hour
}

// MinRefreshInterval returns the per-area refresh throttle
func (c *Config) MinRefreshInterval() time.Duration {
	return time.Duration(c.MinRefreshIntervalMs) * time.Millisecond
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
