package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"termin/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	appCfg := config.AppConfig{
		Name:        "termin-test",
		Environment: "test",
		Version:     "1.0.0",
	}

	t.Run("DefaultStdout", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "info", Output: "stdout"}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
	})

	t.Run("Stderr", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "debug", Output: "stderr"}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
	})

	t.Run("Console", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "warn", Output: "stdout", Format: "console"}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		cfg := config.LoggingConfig{Level: "info", Output: "file", FilePath: path}
		logger, closer, err := New(cfg, appCfg)
		require.NoError(t, err)
		require.NotNil(t, closer)
		defer closer.Close()

		logger.Info().Msg("hello")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})

	t.Run("FileWithoutPath", func(t *testing.T) {
		cfg := config.LoggingConfig{Output: "file"}
		_, _, err := New(cfg, appCfg)
		assert.Error(t, err)
	})

	t.Run("UnknownLevelFallsBackToInfo", func(t *testing.T) {
		cfg := config.LoggingConfig{Level: "chatty"}
		logger, _, err := New(cfg, appCfg)
		require.NoError(t, err)
		assert.Equal(t, "info", logger.GetLevel().String())
	})

	t.Run("EmptyLevelFallsBackToInfo", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{}, appCfg)
		require.NoError(t, err)
		assert.Equal(t, "info", logger.GetLevel().String())
	})
}

func TestComponentTagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	log := Component(&base, "database")
	log.Info().Msg("ready")

	assert.Contains(t, buf.String(), `"component":"database"`)
	assert.Contains(t, buf.String(), `"message":"ready"`)
}
