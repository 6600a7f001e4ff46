package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRotatorKeepsRecentLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	rotator, err := logger.NewLogRotator(path, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rotator.Close() })

	for i := range 6 {
		_, err := fmt.Fprintf(rotator, "line %d\n", i)
		require.NoError(t, err)
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, strings.Split(strings.TrimSpace(string(content)), "\n"))
}

func TestLogRotatorBelowThreshold(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	rotator, err := logger.NewLogRotator(path, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rotator.Close() })

	_, err = rotator.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	require.NoError(t, rotator.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(content))
}
