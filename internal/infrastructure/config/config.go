package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Farm Hub gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Farm      FarmConfig      `yaml:"farm"`
	Devices   []DeviceConfig  `yaml:"devices"`
	Weather   WeatherConfig   `yaml:"weather"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FarmConfig contains farm-level identity shown on the dashboard.
type FarmConfig struct {
	Name     string         `yaml:"name"`
	Domain   string         `yaml:"domain"`
	Features []string       `yaml:"features"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains the farm's geographic coordinates, used as the
// default weather query location when a request supplies none.
type LocationConfig struct {
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
}

// DeviceConfig describes one field controller. Devices are a YAML sequence,
// not a map, so configuration order is preserved through parsing. Generated
// routing rules and status responses follow this order.
type DeviceConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
}

// WeatherConfig contains the upstream forecast query settings.
type WeatherConfig struct {
	// BaseURL is the forecast endpoint. Override in tests; the default is
	// the public open-meteo API.
	BaseURL      string `yaml:"base_url"`
	CacheMinutes int    `yaml:"cache_minutes"`
	TimeoutSecs  int    `yaml:"timeout_seconds"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the status-stream WebSocket endpoint.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// ProxyConfig contains settings for generating and applying the nginx
// routing configuration.
type ProxyConfig struct {
	// Manage enables writing, validating, and reloading the nginx config
	// at startup. When false the gateway only serves its own API and the
	// routing file is left untouched.
	Manage bool `yaml:"manage"`

	// ConfigPath is where the generated site config is written.
	// Default: /etc/nginx/sites-available/farmhub
	ConfigPath string `yaml:"config_path"`

	// ValidateCommand is run after writing the candidate config. A non-zero
	// exit restores the previous config. Default: "nginx -t"
	ValidateCommand string `yaml:"validate_command"`

	// ReloadCommand is run after successful validation.
	// Default: "systemctl reload nginx"
	ReloadCommand string `yaml:"reload_command"`

	// TLS certificate paths emitted into the generated config.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// WebRoot is the static dashboard root emitted into the generated config.
	WebRoot string `yaml:"web_root"`

	// BackendAddr is the address nginx proxies /api/ traffic to. This should
	// match api.host/api.port.
	BackendAddr string `yaml:"backend_addr"`

	// Rate limits, requests per second.
	APIRateLimit int `yaml:"api_rate_limit"`
	WSRateLimit  int `yaml:"ws_rate_limit"`
}

// MQTTConfig contains the optional status publisher settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FARMHUB_SECTION_KEY
// For example: FARMHUB_API_PORT, FARMHUB_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Farm: FarmConfig{
			Name:   "Farm Hub",
			Domain: "farm.local",
		},
		Weather: WeatherConfig{
			BaseURL:      "https://api.open-meteo.com/v1/forecast",
			CacheMinutes: 10,
			TimeoutSecs:  10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Proxy: ProxyConfig{
			ConfigPath:      "/etc/nginx/sites-available/farmhub",
			ValidateCommand: "nginx -t",
			ReloadCommand:   "systemctl reload nginx",
			CertFile:        "/etc/nginx/ssl/farmhub.crt",
			KeyFile:         "/etc/nginx/ssl/farmhub.key",
			WebRoot:         "/var/www/farmhub",
			BackendAddr:     "127.0.0.1:3000",
			APIRateLimit:    10,
			WSRateLimit:     5,
		},
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "farmhub-gateway",
			QoS:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FARMHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FARMHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("FARMHUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("FARMHUB_WEATHER_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("FARMHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("FARMHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("FARMHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Farm.Name == "" {
		errs = append(errs, "farm.name is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Weather.CacheMinutes < 1 {
		errs = append(errs, "weather.cache_minutes must be at least 1")
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].id is required", i))
			continue
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Sprintf("devices[%d].id %q is duplicated", i, d.ID))
		}
		seen[d.ID] = true
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			errs = append(errs, "mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// WeatherTTL returns the weather cache TTL as a Duration.
func (c *Config) WeatherTTL() time.Duration {
	return time.Duration(c.Weather.CacheMinutes) * time.Minute
}

// WeatherTimeout returns the upstream weather request timeout as a Duration.
func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.Weather.TimeoutSecs) * time.Second
}
