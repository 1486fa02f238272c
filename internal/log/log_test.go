package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lessonmark/lessonmark/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		l, err := New(config.LogConfig{Path: "/does/not/matter"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lessonmark.log")
		l, err := New(config.LogConfig{Enabled: true, Verbose: true, Path: path})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

		l.Debug("rendered lesson", zap.String("course", "go"))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "rendered lesson")
	})

	t.Run("production", func(t *testing.T) {
		l, err := New(config.LogConfig{Enabled: true})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})
}

func TestSet(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	l := zap.NewExample()
	Set(l)
	assert.Same(t, l, Get())

	Set(nil)
	assert.NotNil(t, Get())
	Flush()
}
