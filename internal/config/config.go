package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/pkg/param/exprmigrate"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "paramstate.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PARAMSTATE_"

	// DefaultPort is the default server port.
	DefaultPort = 7070

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultBackend is the default storage backend.
	DefaultBackend = BackendMemory

	// DefaultSQLitePath is the database file used by the sqlite backend.
	DefaultSQLitePath = "paramstate.db"

	// DefaultTimeout bounds every storage operation.
	DefaultTimeout = "5s"

	// DefaultNamespace is the Prometheus namespace.
	DefaultNamespace = "paramstate"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendNATS   = "nats"
)

// Parameter kinds.
const (
	KindLocal  = "local"
	KindQuery  = "query"
	KindMemory = "memory"
)

// Parameter encoders.
const (
	EncoderJSON   = "json"
	EncoderSparse = "sparse"
	EncoderString = "string"
	EncoderNumber = "number"
	EncoderBool   = "bool"
)

// Config represents paramstate.json.
type Config struct {
	// Server configures the HTTP and live session server.
	Server ServerConfig `json:"server" envPrefix:"SERVER_"`

	// Storage selects and configures the durable store.
	Storage StorageConfig `json:"storage" envPrefix:"STORAGE_"`

	// Params declares the parameters the server registers.
	Params []ParamConfig `json:"params,omitempty"`

	// Migrations run over the parameters when a session starts and on
	// `paramstate migrate`.
	Migrations []exprmigrate.Rule `json:"migrations,omitempty"`

	// Log configures the slog handler.
	Log LogConfig `json:"log" envPrefix:"LOG_"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `json:"metrics" envPrefix:"METRICS_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" env:"HOST"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" env:"PORT"`

	// SessionPrefix scopes stored keys per live session.
	SessionPrefix string `json:"sessionPrefix,omitempty" env:"SESSION_PREFIX"`

	// AllowedOrigins lists origins accepted by the websocket upgrader. Empty
	// means same origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// StorageConfig contains storage backend settings.
type StorageConfig struct {
	// Backend is one of memory, sqlite, s3 or nats.
	Backend string `json:"backend,omitempty" env:"BACKEND"`

	// Path is the sqlite database file.
	Path string `json:"path,omitempty" env:"PATH"`

	// Timeout bounds each storage operation (e.g., "5s").
	Timeout string `json:"timeout,omitempty" env:"TIMEOUT"`

	// Prefix is prepended to every key.
	Prefix string `json:"prefix,omitempty" env:"PREFIX"`

	S3   S3Config   `json:"s3,omitempty" envPrefix:"S3_"`
	NATS NATSConfig `json:"nats,omitempty" envPrefix:"NATS_"`
}

// S3Config contains S3 backend settings.
type S3Config struct {
	Bucket          string `json:"bucket,omitempty" env:"BUCKET"`
	Prefix          string `json:"prefix,omitempty" env:"PREFIX"`
	Region          string `json:"region,omitempty" env:"REGION"`
	Endpoint        string `json:"endpoint,omitempty" env:"ENDPOINT"`
	AccessKeyID     string `json:"accessKeyId,omitempty" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `json:"usePathStyle,omitempty" env:"USE_PATH_STYLE"`
}

// NATSConfig contains JetStream key/value backend settings.
type NATSConfig struct {
	URL    string `json:"url,omitempty" env:"URL"`
	Bucket string `json:"bucket,omitempty" env:"BUCKET"`
}

// ParamConfig declares one parameter.
type ParamConfig struct {
	// Name is the registry name. For local and query parameters it is also
	// the storage key or query key.
	Name string `json:"name"`

	// Kind is local (durable store), query (URL) or memory.
	Kind string `json:"kind"`

	// Encoder is json (default), sparse, string, number or bool.
	Encoder string `json:"encoder,omitempty"`

	// Base64 wraps the encoder in URL-safe base64.
	Base64 bool `json:"base64,omitempty"`

	// Mode is replace (default) or push, for query parameters.
	Mode string `json:"mode,omitempty"`

	// Default is the default value as JSON.
	Default json.RawMessage `json:"default,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" env:"LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" env:"FORMAT"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" env:"ENABLED"`
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          DefaultHost,
			Port:          DefaultPort,
			SessionPrefix: "session:",
		},
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Path:    DefaultSQLitePath,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
	}
}

// Load reads paramstate.json from dir, then applies environment overrides
// from dir/.env and the process environment.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from path. Environment overrides are not
// applied.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E200").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'paramstate init' to create one").
				Wrap(err)
		}
		return nil, errors.New("E200").Wrap(err)
	}
	return Parse(path, data)
}

// Parse decodes data, the contents of path, over the defaults.
func Parse(path string, data []byte) (*Config, error) {
	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		e := errors.New("E201").Wrap(err).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON with known fields")
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntax):
			e.WithOffset(path, data, syntax.Offset)
		case stderrors.As(err, &typeErr):
			e.WithOffset(path, data, typeErr.Offset)
		}
		return nil, e
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// LoadEnv applies PARAMSTATE_* overrides. Variables in files (dotenv
// format) are loaded first without replacing variables already set; missing
// files are skipped.
func (c *Config) LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return errors.New("E205").WithDetail("Failed to read " + existing[0]).Wrap(err)
		}
	}
	return c.applyEnv(env.Options{Prefix: EnvPrefix})
}

// applyEnv parses overrides with opts. Tests pass an explicit Environment.
func (c *Config) applyEnv(opts env.Options) error {
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.New("E205").Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E201").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E200").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultSQLitePath
	}
	if c.Storage.Timeout == "" {
		c.Storage.Timeout = DefaultTimeout
	}

	for i := range c.Params {
		p := &c.Params[i]
		if p.Encoder == "" {
			p.Encoder = EncoderJSON
		}
		if p.Kind == KindQuery && p.Mode == "" {
			p.Mode = "replace"
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("E204").
			WithDetail("server.port is " + strconv.Itoa(c.Server.Port) + ", it must be between 1 and 65535")
	}

	if _, err := time.ParseDuration(c.Storage.Timeout); err != nil {
		return errors.New("E203").
			WithDetail("storage.timeout must be a duration such as \"5s\"").
			Wrap(err)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			return errors.New("E203").WithDetail("storage.path is required for the sqlite backend")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("E203").
				WithDetail("storage.s3.bucket is required for the s3 backend").
				WithSuggestion("Set PARAMSTATE_STORAGE_S3_BUCKET or storage.s3.bucket")
		}
	case BackendNATS:
		if c.Storage.NATS.URL == "" || c.Storage.NATS.Bucket == "" {
			return errors.New("E203").
				WithDetail("storage.nats.url and storage.nats.bucket are required for the nats backend")
		}
	default:
		return errors.New("E202").
			Wrap(fmt.Errorf("backend %q", c.Storage.Backend)).
			WithSuggestion("Use memory, sqlite, s3 or nats")
	}

	seen := make(map[string]bool, len(c.Params))
	for i, p := range c.Params {
		if err := p.validate(); err != nil {
			return errors.New("E206").
				WithDetail(fmt.Sprintf("params[%d] (%q): %v", i, p.Name, err))
		}
		if seen[p.Name] {
			return errors.New("E206").
				WithDetail(fmt.Sprintf("params[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
	}

	for i, m := range c.Migrations {
		if !seen[m.Param] {
			return errors.New("E401").
				WithDetail(fmt.Sprintf("migrations[%d] targets %q, which is not in params", i, m.Param))
		}
	}
	return nil
}

func (p ParamConfig) validate() error {
	if p.Name == "" {
		return stderrors.New("name is required")
	}
	switch p.Kind {
	case KindLocal, KindQuery, KindMemory:
	default:
		return fmt.Errorf("unknown kind %q, use local, query or memory", p.Kind)
	}
	switch p.Mode {
	case "", "replace", "push":
	default:
		return fmt.Errorf("unknown mode %q, use replace or push", p.Mode)
	}

	var def any
	if len(p.Default) > 0 {
		if err := json.Unmarshal(p.Default, &def); err != nil {
			return fmt.Errorf("default: %w", err)
		}
	}
	switch p.Encoder {
	case EncoderJSON:
	case EncoderSparse:
		if _, ok := def.(map[string]any); !ok {
			return stderrors.New("the sparse encoder needs an object default")
		}
	case EncoderString:
		if _, ok := def.(string); !ok && def != nil {
			return stderrors.New("the string encoder needs a string default")
		}
	case EncoderNumber:
		if _, ok := def.(float64); !ok && def != nil {
			return stderrors.New("the number encoder needs a number default")
		}
	case EncoderBool:
		if _, ok := def.(bool); !ok && def != nil {
			return stderrors.New("the bool encoder needs a boolean default")
		}
	default:
		return fmt.Errorf("unknown encoder %q", p.Encoder)
	}
	return nil
}

// Address returns host:port for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// StorageTimeout returns the parsed storage timeout, or the default when it
// does not parse.
func (c *Config) StorageTimeout() time.Duration {
	d, err := time.ParseDuration(c.Storage.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// SQLitePath returns the sqlite database path, relative to the config file
// unless absolute or in-memory.
func (c *Config) SQLitePath() string {
	path := c.Storage.Path
	if path == ":memory:" || filepath.IsAbs(path) || c.Dir() == "" {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Param returns the parameter declared under name.
func (c *Config) Param(name string) (ParamConfig, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamConfig{}, false
}

// Exists checks if a config file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindRoot walks up from startDir to the directory holding
// paramstate.json.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E200").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'paramstate init' to create one")
		}
		dir = parent
	}
}
