package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "marketintel", cmd.Use)

	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout", "server"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %s must be registered", flag)
	}
}

func TestGetCLIContext_NotInitialized(t *testing.T) {
	cmd := &cobra.Command{Use: "orphan"}
	cmd.SetContext(context.Background())

	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestGetCLIContext_RoundTrip(t *testing.T) {
	cmd := &cobra.Command{Use: "child"}
	want := &CLIContext{OutputFormat: "json"}
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, want))

	got, err := GetCLIContext(cmd)
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestOutputFormat_LocalOverridesGlobal(t *testing.T) {
	cmd := &cobra.Command{Use: "child"}
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, &CLIContext{OutputFormat: "table"}))

	assert.Equal(t, "json", outputFormat(cmd, "JSON"))
	assert.Equal(t, "table", outputFormat(cmd, ""))
}

func TestReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"date":"2026-01-01","price":95000}]`), 0o644))

	var points []struct {
		Date  string  `json:"date"`
		Price float64 `json:"price"`
	}
	require.NoError(t, readJSONFile(path, &points))
	require.Len(t, points, 1)
	assert.Equal(t, "2026-01-01", points[0].Date)

	err := readJSONFile(filepath.Join(t.TempDir(), "missing.json"), &points)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{truncated"), 0o644))
	assert.Error(t, readJSONFile(bad, &points))
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "950", formatVND(950))
	assert.Equal(t, "95.000", formatVND(95000))
	assert.Equal(t, "1.250.000", formatVND(1250000))
	assert.Equal(t, "-95.000", formatVND(-95000))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "long te...", truncateString("long text that overflows", 10))
}
