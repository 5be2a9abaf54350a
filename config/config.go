package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/pkg/tlsutil"
)

// Default connection values
const (
	DefaultPort         = "443"
	DefaultInputBuffer  = 1024
	DefaultHistoryCount = 1
)

// Config is the complete configuration of a videostream bot.
type Config struct {
	Endpoint Endpoint             `json:"endpoint" yaml:"endpoint"`
	Channel  ChannelConfig        `json:"channel" yaml:"channel"`
	Bot      BotConfig            `json:"bot,omitempty" yaml:"bot,omitempty"`
	TLS      tlsutil.ClientConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
	Logging  LoggingConfig        `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// Endpoint identifies the messaging service to connect to.
type Endpoint struct {
	Host   string `json:"host" yaml:"host"`
	Port   string `json:"port,omitempty" yaml:"port,omitempty"`
	AppKey string `json:"appkey" yaml:"appkey"`
}

// URL renders the WebSocket URL for this endpoint.
func (e Endpoint) URL() string {
	return fmt.Sprintf("wss://%s:%s/v2?appkey=%s", e.Host, e.Port, e.AppKey)
}

// ChannelConfig names the video channel a bot consumes and, optionally,
// tunes its inbound buffering.
type ChannelConfig struct {
	Name string `json:"name" yaml:"name"`

	// InputBuffer bounds the number of inbound messages held before
	// processing. Oldest entries are dropped on overflow.
	InputBuffer int `json:"input_buffer,omitempty" yaml:"input_buffer,omitempty"`

	// HistoryCount is the number of historical messages requested when
	// subscribing to the metadata channel.
	HistoryCount int `json:"history_count,omitempty" yaml:"history_count,omitempty"`
}

// BotConfig carries bot identity and free-form bot parameters.
type BotConfig struct {
	ID     string          `json:"id,omitempty" yaml:"id,omitempty"`
	Params json.RawMessage `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoggingConfig configures the optional NATS log mirror.
type LoggingConfig struct {
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`
}

// Load reads, defaults, and validates a configuration file. The format is
// chosen by extension: .yaml/.yml are parsed as YAML, anything else as JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var viaYAML any
		if err := yaml.Unmarshal(data, &viaYAML); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse YAML")
		}
		// normalize through JSON so schema validation sees one format
		data, err = json.Marshal(normalizeYAML(viaYAML))
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "normalize YAML")
		}
	}

	return Parse(data)
}

// Parse builds a Config from raw JSON, applying defaults and validating.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "unmarshal config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint.Port == "" {
		c.Endpoint.Port = DefaultPort
	}
	if c.Channel.InputBuffer <= 0 {
		c.Channel.InputBuffer = DefaultInputBuffer
	}
	if c.Channel.HistoryCount <= 0 {
		c.Channel.HistoryCount = DefaultHistoryCount
	}
	if c.TLS.MinVersion == "" {
		c.TLS.MinVersion = "1.2"
	}
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Endpoint.Host == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "endpoint.host is required")
	}
	if c.Endpoint.AppKey == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "endpoint.appkey is required")
	}
	if c.Channel.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "channel.name is required")
	}
	if strings.ContainsAny(c.Channel.Name, " \t\n") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("channel name %q contains whitespace", c.Channel.Name))
	}
	return nil
}

// normalizeYAML converts yaml.v3's map[string]any/map[any]any trees into
// json.Marshal-compatible values.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
