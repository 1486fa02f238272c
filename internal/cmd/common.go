package cmd

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/internal/config"
	"github.com/lessonmark/lessonmark/internal/log"
	"github.com/lessonmark/lessonmark/pkg/renderer"
)

// loadConfig reads the configuration from the working directory. An
// explicit --config file wins over discovery.
func loadConfig() (*config.Config, error) {
	if fConfig != "" {
		data, err := os.ReadFile(fConfig)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %q", fConfig)
		}
		return config.ParseYAML(data)
	}

	loader := config.NewLoader(configFileName, os.DirFS(fChdir), config.WithLogger(log.Get()))
	return loader.Load(".")
}

// getLogger builds the logger for a command and installs it as the
// package logger. Verbose mode forces development logging to stderr.
func getLogger(cfg *config.Config) (*zap.Logger, error) {
	c := cfg.Log
	if fVerbose {
		c.Enabled = true
		c.Verbose = true
	}

	logger, err := log.New(c)
	if err != nil {
		return nil, err
	}
	log.Set(logger)
	return logger, nil
}

func newRenderer(cfg *config.Config, logger *zap.Logger) *renderer.Renderer {
	return renderer.New(
		renderer.WithLogger(logger),
		renderer.WithContentRoot(cfg.Render.ContentRoot),
		renderer.WithCopyReset(cfg.Render.CopyReset),
		renderer.WithHighlightStyle(cfg.Render.HighlightStyle),
	)
}

// contentDir resolves the file store directory against --chdir.
func contentDir(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Content.Dir) {
		return cfg.Content.Dir
	}
	return filepath.Join(fChdir, cfg.Content.Dir)
}

func readMarkdown(cmd *cobra.Command, source string) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.Wrap(err, "failed to read from stdin")
		}
	} else if strings.HasPrefix(source, "https://") {
		client := http.Client{
			Timeout: time.Second * 5,
		}
		resp, err := client.Get(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get a file %q", source)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("failed to get a file %q: %s", source, resp.Status)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read body")
		}
	} else {
		if !filepath.IsAbs(source) {
			source = filepath.Join(fChdir, source)
		}
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read from file %q", source)
		}
	}

	return data, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// colorizer returns a color for w which is disabled unless w is a
// terminal and --no-color is not set.
func colorizer(w io.Writer, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if fNoColor || !isTerminal(w) {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}
