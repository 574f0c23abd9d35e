package logging

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test helpers
// ─────────────────────────────────────────────────────────────────────────────

// newObservedLogger returns a Logger whose output is captured in memory so
// tests can assert on emitted entries without touching stdout.
func newObservedLogger(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

// fieldMap flattens an observed entry's context into a key → value map.
func fieldMap(entry observer.LoggedEntry) map[string]interface{} {
	out := make(map[string]interface{}, len(entry.Context))
	for _, f := range entry.Context {
		switch f.Type {
		case zapcore.StringType:
			out[f.Key] = f.String
		case zapcore.Int64Type:
			out[f.Key] = f.Integer
		case zapcore.BoolType:
			out[f.Key] = f.Integer == 1
		case zapcore.Float64Type:
			out[f.Key] = math.Float64frombits(uint64(f.Integer))
		default:
			out[f.Key] = f.Interface
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Field constructor tests
// ─────────────────────────────────────────────────────────────────────────────

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name      string
		field     Field
		wantKey   string
		wantValue interface{}
	}{
		{"String", String("product_id", "p-123"), "product_id", "p-123"},
		{"Int", Int("count", 42), "count", 42},
		{"Int64", Int64("offset", int64(9000)), "offset", int64(9000)},
		{"Float64", Float64("score", 0.85), "score", 0.85},
		{"Bool", Bool("cached", true), "cached", true},
		{"Duration", Duration("elapsed", 5 * time.Second), "elapsed", 5 * time.Second},
		{"Any", Any("payload", []int{1, 2}), "payload", []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.field.Key)
			assert.Equal(t, tt.wantValue, tt.field.Value)
		})
	}
}

func TestErr_NonNilError(t *testing.T) {
	f := Err(errors.New("connection refused"))
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "connection refused", f.Value)
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

// ─────────────────────────────────────────────────────────────────────────────
// zapLogger behaviour
// ─────────────────────────────────────────────────────────────────────────────

func TestZapLogger_EmitsMessageAndFields(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Info("model trained",
		String("product_id", "p-42"),
		Int("data_points", 30),
		Float64("accuracy", 92.5),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "model trained", entry.Message)

	fields := fieldMap(entry)
	assert.Equal(t, "p-42", fields["product_id"])
	assert.Equal(t, int64(30), fields["data_points"])
	assert.Equal(t, 92.5, fields["accuracy"])
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	log, logs := newObservedLogger(zapcore.InfoLevel)

	log.Debug("filtered out")
	log.Info("kept")
	log.Warn("kept too")
	log.Error("and this")

	require.Equal(t, 3, logs.Len())
	levels := make([]zapcore.Level, 0, 3)
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}, levels)
}

func TestZapLogger_With_ChildInheritsFields(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	child := log.With(String("component", "forecast"))
	child.Info("training started", String("product_id", "p-7"))

	// The parent is not mutated.
	log.Info("no inherited fields")

	require.Equal(t, 2, logs.Len())

	childFields := fieldMap(logs.All()[0])
	assert.Equal(t, "forecast", childFields["component"])
	assert.Equal(t, "p-7", childFields["product_id"])

	parentFields := fieldMap(logs.All()[1])
	assert.NotContains(t, parentFields, "component")
}

func TestZapLogger_Named(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Named("http").Named("search").Info("query handled")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "http.search", logs.All()[0].LoggerName)
}

// ─────────────────────────────────────────────────────────────────────────────
// NewLogger construction
// ─────────────────────────────────────────────────────────────────────────────

func TestNewLogger_JSONDefaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Defaults are info level; Debug must be a no-op, Info must not panic.
	log.Debug("suppressed")
	log.Info("startup")
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	log, err := NewLogger(LogConfig{
		Level:  "debug",
		Format: "console",
	})
	require.NoError(t, err)
	require.NotNil(t, log)
	log.Debug("visible in console mode")
}

func TestNewLogger_InvalidOutputPathFails(t *testing.T) {
	_, err := NewLogger(LogConfig{
		OutputPaths: []string{"unknown-scheme://nowhere"},
	})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// nopLogger and global default
// ─────────────────────────────────────────────────────────────────────────────

func TestNopLogger_AllMethodsAreSafe(t *testing.T) {
	log := NewNopLogger()

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	assert.NotNil(t, log.With(String("k", "v")))
	assert.NotNil(t, log.Named("child"))
}

func TestSetDefault_ReplacesAndIgnoresNil(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	log, logs := newObservedLogger(zapcore.DebugLevel)
	SetDefault(log)
	Default().Info("via default")
	require.Equal(t, 1, logs.Len())

	// nil is ignored; the previous default stays in place.
	SetDefault(nil)
	Default().Info("still routed")
	assert.Equal(t, 2, logs.Len())
}
