package config

import (
	_ "embed"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const currentVersion = "v1"

//go:embed config.defaults.yaml
var defaultsYAML []byte

// Config is the configuration of lessonmark. Fields missing from a file
// keep their default values.
type Config struct {
	Version  string         `yaml:"version" validate:"required,eq=v1"`
	Log      LogConfig      `yaml:"log"`
	Render   RenderConfig   `yaml:"render"`
	Content  ContentConfig  `yaml:"content"`
	Server   ServerConfig   `yaml:"server"`
	Identity IdentityConfig `yaml:"identity"`
}

type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Verbose bool   `yaml:"verbose"`
}

type RenderConfig struct {
	// ContentRoot is the URL prefix under which course assets are served.
	ContentRoot    string        `yaml:"content_root" validate:"required,startswith=/"`
	CopyReset      time.Duration `yaml:"copy_reset" validate:"gte=0"`
	HighlightStyle string        `yaml:"highlight_style"`
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type ContentConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=file sqlite"`
	Dir    string `yaml:"dir" validate:"required_if=Driver file"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver sqlite"`
}

type ServerConfig struct {
	Address string    `yaml:"address" validate:"required,hostname_port"`
	Tracing bool      `yaml:"tracing"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig enables HTTPS. A self-signed certificate is generated into
// CertFile and KeyFile when they do not exist or are about to expire.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file" validate:"required_if=Enabled true"`
	KeyFile  string `yaml:"key_file" validate:"required_if=Enabled true"`
}

type IdentityConfig struct {
	Issuer string        `yaml:"issuer" validate:"required"`
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl" validate:"gt=0"`
}

var (
	defaults Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

func init() {
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		panic(err)
	}
	if err := validateConfig(&defaults); err != nil {
		panic(err)
	}
}

// Default returns a copy of the default configuration.
func Default() *Config {
	cfg := defaults
	return &cfg
}

// ParseYAML parses data on top of the defaults.
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := mergeYAML(cfg, data); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

type versionOnly struct {
	Version string `yaml:"version"`
}

func parseVersionFromYAML(data []byte) (string, error) {
	var result versionOnly
	if err := yaml.Unmarshal(data, &result); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal version")
	}
	return result.Version, nil
}

func mergeYAML(cfg *Config, data []byte) error {
	version, err := parseVersionFromYAML(data)
	if err != nil {
		return err
	}
	if version != "" && version != currentVersion {
		return errors.Errorf("unknown version: %s", version)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to unmarshal yaml")
	}
	return nil
}

func validateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.WithStack(err)
	}

	var result error
	for _, fe := range fieldErrs {
		result = multierr.Append(result, errors.Errorf("%s: failed on %q", fe.Namespace(), fe.Tag()))
	}
	return result
}
