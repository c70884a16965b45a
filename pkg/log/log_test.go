package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Debug("hidden")
	logger.Info("column repaired", ColumnKey, "A", RowsDroppedKey, 2)
	logger.Warn("column dropped", ColumnKey, "C", ReasonKey, "missing ratio")
	logger.Error("training failed", fmt.Errorf("boom"), ModelNameKey, "LinearSVC")

	assert.False(t, logger.ContainsMessage("hidden"))
	assert.True(t, logger.ContainsMessage("column repaired"))
	assert.True(t, logger.ContainsField(ColumnKey, "C"))
	assert.True(t, logger.ContainsField(RowsDroppedKey, 2.0))
	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))
	assert.True(t, logger.ContainsField(ModelNameKey, "LinearSVC"))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestTestLoggerWith(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	child := logger.With(ModelNameKey, "SGDRegressor", TierKey, "Fast")

	child.Info("fit done", OperationKey, OperationFit)

	assert.True(t, logger.ContainsField(ModelNameKey, "SGDRegressor"))
	assert.True(t, logger.ContainsField(TierKey, "Fast"))
	assert.True(t, logger.ContainsField(OperationKey, OperationFit))
}

func TestTestLoggerEnabled(t *testing.T) {
	ctx := context.Background()
	provider, _ := NewTestLoggerProvider(LevelWarn)
	logger := provider.GetLogger()

	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelError))

	provider.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(ctx, LevelDebug))
}

func TestTestLoggerConcurrent(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With(FoldsKey, i).Debug("fold scored", "score", float64(i))
		}(i)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelDebug)
	logger := provider.GetLoggerWithName("training").With(ModelNameKey, "KMeans")

	logger.Info("search finished", CandidatesKey, 240, BestScoreKey, 0.71)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "search finished", entry["message"])
	assert.Equal(t, "training", entry[ComponentKey])
	assert.Equal(t, "KMeans", entry[ModelNameKey])
	assert.Equal(t, 240.0, entry[CandidatesKey])
}

func TestZerologLoggerErrorStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, LevelDebug).GetLogger()

	logger.Error("fit failed", errors.NewValueError("Fit", "bad input"))

	out := buf.String()
	assert.Contains(t, out, `"error":"autotrain: Fit: bad input"`)
	assert.Contains(t, out, StacktraceAttrKey)
}

func TestZerologLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelWarn)
	logger := provider.GetLogger()

	logger.Info("dropped")
	assert.Empty(t, buf.String())
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))

	logger.Warn("kept")
	assert.True(t, strings.Contains(buf.String(), "kept"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("info", &buf))
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewConvergenceWarning("LinearSVC", 500, ""))

	out := buf.String()
	assert.Contains(t, out, "LinearSVC failed to converge")
	assert.Contains(t, out, `"type":"ConvergenceWarning"`)
	assert.Contains(t, out, `"ml.component":"warnings"`)

	assert.Error(t, SetupLogger("loud", &buf))
}

func TestOrDefault(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	assert.Same(t, logger, OrDefault(logger, "x"))
	assert.NotNil(t, OrDefault(nil, "x"))
}
