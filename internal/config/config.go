package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv names the environment variable holding the transit API key.
const APIKeyEnv = "FRIDA_API_KEY"

const (
	defaultConfigPath     = "config.yaml"
	defaultRenderInterval = time.Second
	minRenderInterval     = 100 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBackoff     = 5 * time.Minute
	defaultLoopTimeout    = 5 * time.Second
	defaultLogLevel       = "info"
	defaultLogFile        = "logs/frida.log"
	defaultMQTTTopic      = "frida/arrivals"
	defaultMQTTClientID   = "frida"
)

// ErrNotFound is returned by Load when the config document does not exist.
var ErrNotFound = errors.New("config file not found")

// Config is the immutable settings set loaded once at startup.
type Config struct {
	DevelopmentMode bool           `yaml:"development_mode" toml:"development_mode"`
	Display         DisplayConfig  `yaml:"display" toml:"display"`
	Transit         TransitConfig  `yaml:"transit" toml:"transit"`
	Shutdown        ShutdownConfig `yaml:"shutdown" toml:"shutdown"`
	Logging         LoggingConfig  `yaml:"logging" toml:"logging"`
	MQTT            MQTTConfig     `yaml:"mqtt" toml:"mqtt"`

	// Path is the resolved location the document was read from.
	Path string `yaml:"-" toml:"-"`
}

// DisplayConfig selects and orients the display panel.
type DisplayConfig struct {
	Model          string   `yaml:"model" toml:"model" validate:"required"`
	Rotation       int      `yaml:"rotation" toml:"rotation" validate:"oneof=0 90 180 270"`
	RenderInterval Duration `yaml:"render_interval" toml:"render_interval"`
	SPIPort        string   `yaml:"spi_port" toml:"spi_port"`
}

// TransitConfig describes the upstream predictions API.
type TransitConfig struct {
	APIURL                 string   `yaml:"api_url" toml:"api_url" validate:"required,url"`
	StopID                 string   `yaml:"stop_id" toml:"stop_id" validate:"required"`
	RefreshIntervalSeconds int      `yaml:"refresh_interval" toml:"refresh_interval" validate:"gt=0"`
	RequestTimeout         Duration `yaml:"request_timeout" toml:"request_timeout" validate:"gt=0"`
	Backoff                bool     `yaml:"backoff" toml:"backoff"`
	MaxBackoff             Duration `yaml:"max_backoff" toml:"max_backoff" validate:"gt=0"`

	// APIKey comes from FRIDA_API_KEY, never from the document.
	APIKey Secret `yaml:"-" toml:"-"`
}

// ShutdownConfig bounds how long the supervisor waits for each loop.
type ShutdownConfig struct {
	LoopTimeout Duration `yaml:"loop_timeout" toml:"loop_timeout" validate:"gt=0"`
}

// LoggingConfig controls the process-wide log sink.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=debug info warn warning error"`
	File  string `yaml:"file" toml:"file"`
}

// MQTTConfig enables the optional snapshot publisher when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker" toml:"broker" validate:"omitempty,url"`
	Topic    string `yaml:"topic" toml:"topic"`
	ClientID string `yaml:"client_id" toml:"client_id"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return strings.TrimSpace(m.Broker) != ""
}

// RefreshInterval returns the fetch cadence as a duration.
func (t TransitConfig) RefreshInterval() time.Duration {
	return time.Duration(t.RefreshIntervalSeconds) * time.Second
}

// Default returns a Config holding every optional default. Required fields
// are left empty.
func Default() Config {
	return Config{
		Display: DisplayConfig{
			RenderInterval: Duration(defaultRenderInterval),
		},
		Transit: TransitConfig{
			RequestTimeout: Duration(defaultRequestTimeout),
			MaxBackoff:     Duration(defaultMaxBackoff),
		},
		Shutdown: ShutdownConfig{LoopTimeout: Duration(defaultLoopTimeout)},
		Logging:  LoggingConfig{Level: defaultLogLevel, File: defaultLogFile},
		MQTT:     MQTTConfig{Topic: defaultMQTTTopic, ClientID: defaultMQTTClientID},
	}
}

// Load reads, decodes and validates the document at path. An empty path means
// config.yaml in the working directory. A missing document wraps ErrNotFound.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrNotFound, resolved)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := decode(resolved, data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Path = resolved
	cfg.Transit.APIKey = Secret(strings.TrimSpace(os.Getenv(APIKeyEnv)))
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c *Config) normalize() {
	c.Display.Model = strings.TrimSpace(c.Display.Model)
	c.Display.SPIPort = strings.TrimSpace(c.Display.SPIPort)
	c.Transit.APIURL = strings.TrimSpace(c.Transit.APIURL)
	c.Transit.StopID = strings.TrimSpace(c.Transit.StopID)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		c.Logging.File = mustExpand(file)
	} else {
		c.Logging.File = ""
	}
	c.MQTT.Broker = strings.TrimSpace(c.MQTT.Broker)
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		c.MQTT.Topic = defaultMQTTTopic
	}
	if strings.TrimSpace(c.MQTT.ClientID) == "" {
		c.MQTT.ClientID = defaultMQTTClientID
	}
}

// Validate checks field rules and cross-field constraints.
func (c Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	var problems []string
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}
	if c.Display.RenderInterval.Duration() < minRenderInterval {
		problems = append(problems, fmt.Sprintf("display.render_interval: must be at least %s", minRenderInterval))
	}
	if c.Transit.Backoff && c.Transit.MaxBackoff.Duration() < c.Transit.RefreshInterval() {
		problems = append(problems, "transit.max_backoff: must not be shorter than transit.refresh_interval")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: invalid %s", strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "gt":
		return field + ": must be greater than " + fe.Param()
	case "url":
		return field + ": must be a URL"
	case "oneof":
		return field + ": must be one of " + fe.Param()
	default:
		return fmt.Sprintf("%s: failed %q", field, fe.Tag())
	}
}

// Duration is a time.Duration decoded from strings like "1s" or "5m", or from
// integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '1s', '5m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// UnmarshalYAML routes integer and string scalars through UnmarshalText.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration at line %d: expected scalar", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret holds a credential that must never be printed or logged.
type Secret string

const redacted = "[redacted]"

// String hides the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString hides the value from %#v.
func (s Secret) GoString() string {
	return s.String()
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// Reveal returns the raw credential for use in outgoing requests.
func (s Secret) Reveal() string {
	return string(s)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
