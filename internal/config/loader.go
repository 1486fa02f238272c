package config

import (
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrConfigNotFound = errors.New("configuration file not found")

// Loader reads configuration files from a file system. A course
// directory may carry its own file which overrides the root one.
type Loader struct {
	fsys fs.FS

	// configName is a name of the configuration file, for example
	// "lessonmark.yaml".
	configName string

	logger *zap.Logger
}

type LoaderOption func(*Loader)

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func NewLoader(configName string, fsys fs.FS, opts ...LoaderOption) *Loader {
	if configName == "" {
		panic("config name is not set")
	}

	l := &Loader{
		fsys:       fsys,
		configName: configName,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = zap.NewNop()
	}

	return l
}

func (l *Loader) RootConfig() ([]byte, error) {
	data, err := fs.ReadFile(l.fsys, l.configName)
	if err != nil {
		return nil, ErrConfigNotFound
	}
	return data, nil
}

// FindConfigChain returns the configuration files from the root down
// to dir, in that order.
func (l *Loader) FindConfigChain(dir string) ([]string, error) {
	dir = path.Clean(strings.TrimPrefix(dir, "/"))

	var result []string
	if _, err := fs.Stat(l.fsys, l.configName); err == nil {
		result = append(result, l.configName)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.WithStack(err)
	}

	if dir == "." || dir == "" {
		return result, nil
	}

	curDir := ""
	for _, fragment := range strings.Split(dir, "/") {
		curDir = path.Join(curDir, fragment)
		configPath := path.Join(curDir, l.configName)
		l.logger.Debug("checking nested configuration file", zap.String("path", configPath))

		_, err := fs.Stat(l.fsys, configPath)
		if err == nil {
			result = append(result, configPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.WithStack(err)
		}
	}

	return result, nil
}

// Load merges the chain for dir on top of the defaults and validates
// the result. Without any file the defaults are returned.
func (l *Loader) Load(dir string) (*Config, error) {
	paths, err := l.FindConfigChain(dir)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loading config", zap.Strings("files", paths))

	cfg := Default()
	for _, p := range paths {
		data, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", p)
		}
		if err := mergeYAML(cfg, data); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", p)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}
