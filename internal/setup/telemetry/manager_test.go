package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesSessionLogs(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	manager := NewManager(ServiceCLI, logDir, &config.Debug{LogLevel: "debug", MaxLogsToKeep: 3, MaxLogLines: 100})
	t.Cleanup(manager.Close)

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("hello")
	dbLogger.Debug("query")

	sessionDir := manager.GetCurrentSessionDir()
	assert.Equal(t, filepath.Join(logDir, "cli"), filepath.Dir(sessionDir))
	assert.FileExists(t, filepath.Join(sessionDir, "main.log"))
	assert.FileExists(t, filepath.Join(sessionDir, "database.log"))

	data, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestManagerRotatesOldSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for _, name := range []string{"2024-01-01_00-00-00", "2024-01-02_00-00-00", "2024-01-03_00-00-00"} {
		require.NoError(t, os.MkdirAll(filepath.Join(logDir, "bot", name), os.ModePerm))
	}

	manager := NewManager(ServiceBot, logDir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 2})
	t.Cleanup(manager.Close)

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)

	sessions, err := filepath.Glob(filepath.Join(logDir, "bot", "*"))
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.NoDirExists(t, filepath.Join(logDir, "bot", "2024-01-01_00-00-00"))
	assert.NoDirExists(t, filepath.Join(logDir, "bot", "2024-01-02_00-00-00"))
}

func TestManagerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := NewManager(ServiceBot, t.TempDir(), &config.Debug{LogLevel: "loud"})
	t.Cleanup(manager.Close)

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
