// README: Config loader: optional YAML/JSON file, RIDESHARE_ env overrides, defaults and validation.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/notify"
	"rideshare/internal/modules/pricing"
)

const EnvPrefix = "RIDESHARE_"

type HTTPConfig struct {
	Addr        string   `json:"addr"`
	// CORSOrigins enables CORS for the listed origins; "*" allows any.
	CORSOrigins []string `json:"cors_origins"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type DispatchConfig struct {
	MatchingPolicy string         `json:"matching_policy"`
	Fare           pricing.Config `json:"fare"`
}

type RedisConfig struct {
	Addr    string `json:"addr"`
	Channel string `json:"channel"`
}

type DBConfig struct {
	DSN string `json:"dsn"`
}

type FirebaseConfig struct {
	ProjectID       string `json:"project_id"`
	CredentialsFile string `json:"credentials_file"`
}

type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	Log      LogConfig      `json:"log"`
	Dispatch DispatchConfig `json:"dispatch"`
	Redis    RedisConfig    `json:"redis"`
	DB       DBConfig       `json:"db"`
	Firebase FirebaseConfig `json:"firebase"`
	MQTT     MQTTConfig     `json:"mqtt"`
	Influx   InfluxConfig   `json:"influx"`
	Metrics  MetricsConfig  `json:"metrics"`
}

func Default() Config {
	cfg := Config{
		Dispatch: DispatchConfig{Fare: pricing.DefaultConfig()},
		Metrics:  MetricsConfig{Enabled: true},
	}
	cfg.SetDefaults()
	return cfg
}

// Load reads path when non-empty, then applies environment overrides such as
// RIDESHARE_HTTP__ADDR or RIDESHARE_DISPATCH__FARE__SURGE.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Dispatch.MatchingPolicy == "" {
		c.Dispatch.MatchingPolicy = matching.PolicyNearest
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = notify.DefaultRedisChannel
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "rideshare"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = notify.DefaultTopicPrefix
	}
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true, "disabled": true,
}

func (c *Config) Validate() error {
	if !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if _, err := matching.ByName(c.Dispatch.MatchingPolicy); err != nil {
		return fmt.Errorf("dispatch.matching_policy: %w", err)
	}
	if _, err := pricing.FromConfig(c.Dispatch.Fare); err != nil {
		return fmt.Errorf("dispatch.fare: %w", err)
	}
	if c.Firebase.CredentialsFile != "" && c.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase.credentials_file requires firebase.project_id")
	}
	if c.Influx.URL != "" && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("influx.url requires influx.org and influx.bucket")
	}
	return nil
}

func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }
func (c *Config) LedgerEnabled() bool { return c.DB.DSN != "" }
func (c *Config) PushEnabled() bool { return c.Firebase.ProjectID != "" }
func (c *Config) MQTTEnabled() bool { return c.MQTT.Broker != "" }
func (c *Config) InfluxEnabled() bool { return c.Influx.URL != "" }
func (c *Config) CORSEnabled() bool { return len(c.HTTP.CORSOrigins) > 0 }
