package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"

	"github.com/vango-dev/vtree/internal/errors"
)

// FileNames are the configuration file names Load looks for, in order.
var FileNames = []string{"vtree.yaml", "vtree.yml", "vtree.json"}

const (
	DefaultAddress        = ":8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "auto"
	DefaultFlushLimit     = 100
	DefaultBenchItems     = 1000
	DefaultBenchIters     = 100
	DefaultBenchPrefix    = "bench/"
	DefaultBenchRegion    = "us-east-1"
	DefaultSendQueue      = 256
	DefaultMaxMessageSize = 64 * 1024
)

// Config is the complete vtree configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Log       LogConfig       `json:"log"`
	Metrics   MetricsConfig   `json:"metrics"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Bench     BenchConfig     `json:"bench"`

	// path is the file the config was loaded from, if any.
	path string
}

// ServerConfig configures the mirror server.
type ServerConfig struct {
	// Address is the address to listen on.
	Address string `json:"address,omitempty"`

	ReadTimeout       Duration `json:"readTimeout,omitempty"`
	WriteTimeout      Duration `json:"writeTimeout,omitempty"`
	HeartbeatInterval Duration `json:"heartbeatInterval,omitempty"`

	// MaxMessageSize bounds incoming websocket messages, in bytes.
	MaxMessageSize int64 `json:"maxMessageSize,omitempty"`

	// SendQueue is the per-viewer outgoing frame buffer.
	SendQueue int `json:"sendQueue,omitempty"`

	// AllowedOrigins restricts websocket origins. Empty allows all.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text, json or auto.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures Prometheus collection.
type MetricsConfig struct {
	Disabled bool `json:"disabled,omitempty"`
}

// SchedulerConfig configures the reactive scheduler.
type SchedulerConfig struct {
	// FlushLimit bounds Drain iterations.
	FlushLimit int `json:"flushLimit,omitempty"`

	// AffinityCheck panics on signal writes from the wrong goroutine.
	AffinityCheck bool `json:"affinityCheck,omitempty"`
}

// BenchConfig configures `vtree bench`.
type BenchConfig struct {
	Items      int `json:"items,omitempty"`
	Iterations int `json:"iterations,omitempty"`

	// Bucket is the S3 bucket reports are uploaded to. Empty disables
	// uploads.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"30s\", got %s", data)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// New creates a Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Find returns the first configuration file in dir, or "" if none exists.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the configuration file in dir and applies overrides. A
// directory without a configuration file yields the defaults.
func Load(dir string, overrides ...string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		return Parse(nil, "", overrides...)
	}
	return LoadFile(path, overrides...)
}

// LoadFile reads configuration from path and applies overrides.
func LoadFile(path string, overrides ...string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E100").Wrap(err).WithSuggestion("Check that " + path + " exists and is readable")
	}
	cfg, err := Parse(data, path, overrides...)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration data. path selects the format by extension
// and is used in error locations; empty data means no file.
func Parse(data []byte, path string, overrides ...string) (*Config, error) {
	doc := []byte("{}")
	if len(bytes.TrimSpace(data)) > 0 {
		var err error
		if doc, err = toJSON(data, path); err != nil {
			return nil, err
		}
	}

	for _, o := range overrides {
		patch, err := ParseOverride(o)
		if err != nil {
			return nil, err
		}
		if doc, err = jsonpatch.MergePatch(doc, patch); err != nil {
			return nil, errors.New("E103").Wrap(err).WithDetail("Cannot apply override " + o)
		}
	}

	cfg := &Config{path: path}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, decodeError(err, path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// toJSON converts a configuration file to JSON.
func toJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if !json.Valid(data) {
			var v any
			err := json.Unmarshal(data, &v)
			return nil, jsonSyntaxError(err, data, path)
		}
		return data, nil
	case ".yaml", ".yml", "":
		out, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, yamlError(err, path)
		}
		return out, nil
	default:
		return nil, errors.New("E104").WithDetail("Unsupported configuration file " + path)
	}
}

func yamlError(err error, path string) error {
	e := errors.New("E101").Wrap(err)
	var yerr yaml.Error
	if path != "" && stderrors.As(err, &yerr) {
		if tk := yerr.GetToken(); tk != nil && tk.Position != nil {
			e.WithLocation(path, tk.Position.Line, tk.Position.Column)
		}
		e.Wrapped = stderrors.New(yerr.GetMessage())
	}
	return e
}

func jsonSyntaxError(err error, data []byte, path string) error {
	e := errors.New("E101").Wrap(err)
	var serr *json.SyntaxError
	if path != "" && stderrors.As(err, &serr) {
		line, col := lineCol(data, serr.Offset)
		e.WithLocation(path, line, col)
	}
	return e
}

// decodeError converts a decode failure of the merged document.
func decodeError(err error, path string) error {
	e := errors.New("E102").Wrap(err)
	var terr *json.UnmarshalTypeError
	if stderrors.As(err, &terr) {
		e.WithDetail(fmt.Sprintf("Field %s must be a %s, got %s.", terr.Field, terr.Type, terr.Value))
	}
	if path != "" {
		e.WithSuggestion("Check " + filepath.Base(path) + " and any --set overrides")
	}
	return e
}

// lineCol converts a byte offset to a 1-based line and column.
func lineCol(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := int(offset) - bytes.LastIndexByte(before, '\n')
	return line, max(col-1, 1)
}

// ParseOverride converts key.path=value into a JSON merge patch. The value
// is used as JSON when it parses as JSON, otherwise as a string; "null"
// removes the key.
func ParseOverride(s string) ([]byte, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return nil, errors.New("E103").WithDetail(fmt.Sprintf("Override %q is not key=value.", s)).
			WithSuggestion("Use --set server.address=:9090")
	}

	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		v = value
	}

	parts := strings.Split(key, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "" {
			return nil, errors.New("E103").WithDetail(fmt.Sprintf("Override key %q has an empty segment.", key))
		}
		v = map[string]any{parts[i]: v}
	}
	return json.Marshal(v)
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(60 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(10 * time.Second)
	}
	if c.Server.HeartbeatInterval == 0 {
		c.Server.HeartbeatInterval = Duration(30 * time.Second)
	}
	if c.Server.MaxMessageSize == 0 {
		c.Server.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.Server.SendQueue == 0 {
		c.Server.SendQueue = DefaultSendQueue
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Scheduler
	if c.Scheduler.FlushLimit == 0 {
		c.Scheduler.FlushLimit = DefaultFlushLimit
	}

	// Bench
	if c.Bench.Items == 0 {
		c.Bench.Items = DefaultBenchItems
	}
	if c.Bench.Iterations == 0 {
		c.Bench.Iterations = DefaultBenchIters
	}
	if c.Bench.Prefix == "" {
		c.Bench.Prefix = DefaultBenchPrefix
	}
	if c.Bench.Region == "" {
		c.Bench.Region = DefaultBenchRegion
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("E102").WithDetail(fmt.Sprintf(format, args...))
	}
	switch {
	case c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.HeartbeatInterval < 0:
		return invalid("Server timeouts must not be negative.")
	case c.Server.MaxMessageSize < 0:
		return invalid("server.maxMessageSize must not be negative, got %d.", c.Server.MaxMessageSize)
	case c.Server.SendQueue < 0:
		return invalid("server.sendQueue must not be negative, got %d.", c.Server.SendQueue)
	case c.Scheduler.FlushLimit < 0:
		return invalid("scheduler.flushLimit must not be negative, got %d.", c.Scheduler.FlushLimit)
	case c.Bench.Items < 0 || c.Bench.Iterations < 0:
		return invalid("bench.items and bench.iterations must not be negative.")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid("log.level %q is not debug, info, warn or error.", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "auto":
	default:
		return invalid("log.format %q is not text, json or auto.", c.Log.Format)
	}
	return nil
}

// Marshal encodes the config as "json" or "yaml".
func (c *Config) Marshal(format string) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "json":
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.JSONToYAML(data)
	default:
		return nil, errors.New("E104").WithDetail(fmt.Sprintf("Unknown output format %q.", format))
	}
}

// CheckOrigin returns an origin check for AllowedOrigins, or nil when all
// origins are allowed.
func (s ServerConfig) CheckOrigin() func(origin string) bool {
	if len(s.AllowedOrigins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(s.AllowedOrigins))
	for _, o := range s.AllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := allowed[strings.TrimRight(origin, "/")]
		return ok
	}
}
