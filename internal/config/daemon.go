package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultHost         = "127.0.0.1"
	DefaultInterval     = 1
	DefaultSyncInterval = 60
	DefaultLog          = "STDOUT"
	DefaultSinkType     = "file"
	DefaultSinkOptions  = "append"
)

// Config is the daemon configuration: where to listen and how to route logs.
// It is rebuilt wholesale on every reload.
type Config struct {
	Host         string      `toml:"host"`
	Port         any         `toml:"port"`
	PIDFile      string      `toml:"pidfile"`
	Daemonize    bool        `toml:"daemonize"`
	Interval     int         `toml:"interval"`
	SyncInterval int         `toml:"syncinterval"`
	DefaultLog   string      `toml:"default_log"`
	Levels       any         `toml:"levels"`
	Logs         []LogConfig `toml:"logs"`
	Signals      Signals     `toml:"signals"`
}

// LogConfig is one [[logs]] entry. Service may be a single name or a list
// of names; Levels accepts every shape understood by severity.Normalize.
type LogConfig struct {
	Service any    `toml:"service"`
	Levels  any    `toml:"levels"`
	Logfile any    `toml:"logfile"`
	Type    string `toml:"type"`
	Options string `toml:"options"`
	Cull    any    `toml:"cull"`
}

// Signals lists signal names per lifecycle transition. Empty lists fall back
// to the lifecycle defaults.
type Signals struct {
	Exit    []string `toml:"exit"`
	Reload  []string `toml:"reload"`
	Restart []string `toml:"restart"`
}

// Load reads, defaults and validates the daemon configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(ErrCodeParseFailed, "failed to read "+path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, NewConfigError(ErrCodeParseFailed, "failed to parse TOML config", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields. Blank values count as unset.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = DefaultHost
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if strings.TrimSpace(c.DefaultLog) == "" {
		c.DefaultLog = DefaultLog
	}
	for i := range c.Logs {
		if strings.TrimSpace(c.Logs[i].Type) == "" {
			c.Logs[i].Type = DefaultSinkType
		}
		if strings.TrimSpace(c.Logs[i].Options) == "" {
			c.Logs[i].Options = DefaultSinkOptions
		}
	}
}

// Validate checks the fields the daemon cannot run without.
func (c *Config) Validate() error {
	if _, err := c.PortNumber(); err != nil {
		return err
	}
	if c.Interval < 0 {
		return NewConfigError(ErrCodeInvalidInterval, fmt.Sprintf("invalid interval: %d", c.Interval), nil)
	}
	if c.SyncInterval < 0 {
		return NewConfigError(ErrCodeInvalidInterval, fmt.Sprintf("invalid syncinterval: %d", c.SyncInterval), nil)
	}
	for i, lc := range c.Logs {
		if _, err := lc.Services(); err != nil {
			return NewConfigError(ErrCodeInvalidService, fmt.Sprintf("logs[%d]", i), err)
		}
	}
	return nil
}

// PortNumber parses Port into a positive integer.
func (c *Config) PortNumber() (int, error) {
	var port int64
	switch v := c.Port.(type) {
	case nil:
		return 0, NewConfigError(ErrCodeMissingPort, "missing port", nil)
	case int64:
		port = v
	case int:
		port = int64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, NewConfigError(ErrCodeMissingPort, "missing port", nil)
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, NewConfigError(ErrCodeInvalidPort, "invalid port: "+v, err)
		}
		port = parsed
	default:
		return 0, NewConfigError(ErrCodeInvalidPort, fmt.Sprintf("invalid port: %v", v), nil)
	}
	if port <= 0 || port > 65535 {
		return 0, NewConfigError(ErrCodeInvalidPort, fmt.Sprintf("invalid port: %d", port), nil)
	}
	return int(port), nil
}

// WriteInterval returns the write-cycle period.
func (c *Config) WriteInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// SyncPeriod returns the sync-cycle period.
func (c *Config) SyncPeriod() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

// Services expands the service field into route keys.
func (lc LogConfig) Services() ([]string, error) {
	var names []string
	switch v := lc.Service.(type) {
	case string:
		names = []string{v}
	case []string:
		names = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("service name %v is not a string", item)
			}
			names = append(names, s)
		}
	case nil:
		return nil, fmt.Errorf("service is required")
	default:
		return nil, fmt.Errorf("unsupported service value %v", v)
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("service name is empty")
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("service list is empty")
	}
	return out, nil
}
