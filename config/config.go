// Package config loads promtools client configuration from YAML or JSON
// files and from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xscopehub/promtools/apierr"
)

// DefaultEnvPrefix is the prefix used by FromEnv when none is supplied.
const DefaultEnvPrefix = "PROMTOOLS"

// Config bundles per-service client configuration. Either section may be nil
// when that service is not used.
type Config struct {
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`
	Grafana    *GrafanaConfig    `yaml:"grafana,omitempty" json:"grafana,omitempty"`
}

// PrometheusConfig describes one Prometheus endpoint. Values are immutable
// for the lifetime of a client built from them.
type PrometheusConfig struct {
	URL        string            `yaml:"url" json:"url"`
	Username   string            `yaml:"username,omitempty" json:"username,omitempty"`
	Password   string            `yaml:"password,omitempty" json:"password,omitempty"`
	Token      string            `yaml:"token,omitempty" json:"token,omitempty"`
	Timeout    time.Duration     `yaml:"timeout" json:"timeout"`
	MaxRetries int               `yaml:"max_retries" json:"max_retries"`
	RateLimit  float64           `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	VerifySSL  bool              `yaml:"verify_ssl" json:"verify_ssl"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Cache      CacheConfig       `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// GrafanaConfig describes one Grafana endpoint.
type GrafanaConfig struct {
	URL        string            `yaml:"url" json:"url"`
	APIKey     string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Username   string            `yaml:"username,omitempty" json:"username,omitempty"`
	Password   string            `yaml:"password,omitempty" json:"password,omitempty"`
	OrgID      int               `yaml:"org_id,omitempty" json:"org_id,omitempty"`
	Timeout    time.Duration     `yaml:"timeout" json:"timeout"`
	MaxRetries int               `yaml:"max_retries" json:"max_retries"`
	RateLimit  float64           `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	VerifySSL  bool              `yaml:"verify_ssl" json:"verify_ssl"`
	Headers    map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// CacheConfig configures the optional ristretto query result cache.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	NumCounters int64         `yaml:"num_counters,omitempty" json:"num_counters,omitempty"`
	MaxCost     int64         `yaml:"max_cost,omitempty" json:"max_cost,omitempty"`
	BufferItems int64         `yaml:"buffer_items,omitempty" json:"buffer_items,omitempty"`
	TTL         time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// DefaultPrometheus returns a PrometheusConfig with defaults applied.
func DefaultPrometheus() PrometheusConfig {
	return PrometheusConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		VerifySSL:  true,
		Cache: CacheConfig{
			NumCounters: 1e4,
			MaxCost:     1 << 26,
			BufferItems: 64,
			TTL:         time.Minute,
		},
	}
}

// DefaultGrafana returns a GrafanaConfig with defaults applied.
func DefaultGrafana() GrafanaConfig {
	return GrafanaConfig{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		VerifySSL:  true,
	}
}

// Load reads configuration from a YAML or JSON file. Sections present in the
// file are unmarshalled over defaults, so omitted keys keep their default
// values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("read config %s: %v", path, err)}
	}

	cfg := Config{}
	prom := DefaultPrometheus()
	graf := DefaultGrafana()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var sections map[string]yaml.Node
		if err := yaml.Unmarshal(data, &sections); err != nil {
			return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("unmarshal config %s: %v", path, err)}
		}
		if node, ok := sections["prometheus"]; ok {
			if err := node.Decode(&prom); err != nil {
				return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("prometheus section: %v", err)}
			}
			cfg.Prometheus = &prom
		}
		if node, ok := sections["grafana"]; ok {
			if err := node.Decode(&graf); err != nil {
				return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("grafana section: %v", err)}
			}
			cfg.Grafana = &graf
		}
	case ".json":
		var sections map[string]json.RawMessage
		if err := json.Unmarshal(data, &sections); err != nil {
			return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("unmarshal config %s: %v", path, err)}
		}
		if raw, ok := sections["prometheus"]; ok {
			if err := json.Unmarshal(raw, &prom); err != nil {
				return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("prometheus section: %v", err)}
			}
			cfg.Prometheus = &prom
		}
		if raw, ok := sections["grafana"]; ok {
			if err := json.Unmarshal(raw, &graf); err != nil {
				return Config{}, &apierr.ConfigurationError{Reason: fmt.Sprintf("grafana section: %v", err)}
			}
			cfg.Grafana = &graf
		}
	default:
		return Config{}, &apierr.ConfigurationError{Reason: "unsupported config file format " + filepath.Ext(path)}
	}

	return cfg, nil
}

// FromEnv builds configuration from environment variables using the given
// prefix. A section is present only when its _URL variable is set.
func FromEnv(prefix string) Config {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	cfg := Config{}

	if url := os.Getenv(prefix + "_PROMETHEUS_URL"); url != "" {
		prom := DefaultPrometheus()
		prom.URL = url
		prom.Username = os.Getenv(prefix + "_PROMETHEUS_USERNAME")
		prom.Password = os.Getenv(prefix + "_PROMETHEUS_PASSWORD")
		prom.Token = os.Getenv(prefix + "_PROMETHEUS_TOKEN")
		prom.Timeout = envDuration(prefix+"_PROMETHEUS_TIMEOUT", prom.Timeout)
		prom.MaxRetries = envInt(prefix+"_PROMETHEUS_MAX_RETRIES", prom.MaxRetries)
		prom.RateLimit = envFloat(prefix+"_PROMETHEUS_RATE_LIMIT", 0)
		prom.VerifySSL = envBool(prefix+"_PROMETHEUS_VERIFY_SSL", true)
		cfg.Prometheus = &prom
	}

	if url := os.Getenv(prefix + "_GRAFANA_URL"); url != "" {
		graf := DefaultGrafana()
		graf.URL = url
		graf.APIKey = os.Getenv(prefix + "_GRAFANA_API_KEY")
		graf.Username = os.Getenv(prefix + "_GRAFANA_USERNAME")
		graf.Password = os.Getenv(prefix + "_GRAFANA_PASSWORD")
		graf.OrgID = envInt(prefix+"_GRAFANA_ORG_ID", 0)
		graf.Timeout = envDuration(prefix+"_GRAFANA_TIMEOUT", graf.Timeout)
		graf.MaxRetries = envInt(prefix+"_GRAFANA_MAX_RETRIES", graf.MaxRetries)
		graf.RateLimit = envFloat(prefix+"_GRAFANA_RATE_LIMIT", 0)
		graf.VerifySSL = envBool(prefix+"_GRAFANA_VERIFY_SSL", true)
		cfg.Grafana = &graf
	}

	return cfg
}

// Resolve loads configuration from an optional file, overrides sections set
// in the environment, and validates the outcome.
func Resolve(path, envPrefix string) (Config, error) {
	cfg := Config{}

	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	env := FromEnv(envPrefix)
	if env.Prometheus != nil {
		cfg.Prometheus = env.Prometheus
	}
	if env.Grafana != nil {
		cfg.Grafana = env.Grafana
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that present sections carry a URL and usable credentials.
func (c Config) Validate() error {
	if c.Prometheus != nil {
		if c.Prometheus.URL == "" {
			return &apierr.ConfigurationError{Reason: "prometheus url is required"}
		}
		if c.Prometheus.Token == "" && (c.Prometheus.Username == "" || c.Prometheus.Password == "") {
			return &apierr.ConfigurationError{Reason: "prometheus requires a token or username and password"}
		}
	}
	if c.Grafana != nil {
		if c.Grafana.URL == "" {
			return &apierr.ConfigurationError{Reason: "grafana url is required"}
		}
		if c.Grafana.APIKey == "" && (c.Grafana.Username == "" || c.Grafana.Password == "") {
			return &apierr.ConfigurationError{Reason: "grafana requires an api key or username and password"}
		}
	}
	return nil
}

// Save writes the configuration to a YAML or JSON file based on extension.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &apierr.ConfigurationError{Reason: fmt.Sprintf("create config dir: %v", err)}
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return &apierr.ConfigurationError{Reason: "unsupported config file format " + filepath.Ext(path)}
	}
	if err != nil {
		return &apierr.ConfigurationError{Reason: fmt.Sprintf("marshal config: %v", err)}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &apierr.ConfigurationError{Reason: fmt.Sprintf("write config %s: %v", path, err)}
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}

// envDuration accepts Go duration strings and bare second counts.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
