package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	expected := &Config{
		Version: "v1",
		Render: RenderConfig{
			ContentRoot: "/content/courses",
			CopyReset:   2 * time.Second,
		},
		Content: ContentConfig{
			Driver: DriverFile,
			Dir:    "./courses",
		},
		Server: ServerConfig{
			Address: "localhost:8080",
		},
		Identity: IdentityConfig{
			Issuer: "lessonmark",
			TTL:    24 * time.Hour,
		},
	}
	got := Default()
	require.True(t, cmp.Equal(expected, got), "%s", cmp.Diff(expected, got))

	// Default returns a copy.
	got.Server.Address = "changed:1"
	require.Equal(t, "localhost:8080", Default().Server.Address)
}

func TestParseYAML(t *testing.T) {
	testCases := []struct {
		name           string
		rawConfig      string
		check          func(t *testing.T, cfg *Config)
		errorSubstring string
	}{
		{
			name: "sqlite content",
			rawConfig: `version: v1
content:
  driver: sqlite
  dsn: file:courses.db
log:
  enabled: true
  verbose: true
`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, DriverSQLite, cfg.Content.Driver)
				require.Equal(t, "file:courses.db", cfg.Content.DSN)
				require.True(t, cfg.Log.Enabled)
				require.True(t, cfg.Log.Verbose)
			},
		},
		{
			name: "without version",
			rawConfig: `identity:
  ttl: 1h
`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, time.Hour, cfg.Identity.TTL)
			},
		},
		{
			name:           "unknown version",
			rawConfig:      "version: v2\n",
			errorSubstring: "unknown version: v2",
		},
		{
			name: "sqlite without dsn",
			rawConfig: `content:
  driver: sqlite
`,
			errorSubstring: "Config.Content.DSN",
		},
		{
			name: "multiple errors",
			rawConfig: `render:
  content_root: relative
server:
  address: ""
`,
			errorSubstring: "Config.Render.ContentRoot",
		},
		{
			name: "tls without files",
			rawConfig: `server:
  tls:
    enabled: true
`,
			errorSubstring: "Config.Server.TLS.CertFile",
		},
		{
			name:           "invalid yaml",
			rawConfig:      "render: [",
			errorSubstring: "failed to unmarshal",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseYAML([]byte(tc.rawConfig))
			if tc.errorSubstring != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errorSubstring)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
