package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, uint64(42), c.Seed)
	assert.Equal(t, 0.2, c.TestSize)
	assert.Equal(t, 5, c.CVFolds)
	assert.Equal(t, "plotting", c.PlotSubdir)
	assert.Equal(t, 3, c.Wash.MinCategoryCount)
	assert.Equal(t, "drop", c.Wash.AbnormalPolicy)
	assert.Equal(t, filepath.Join(home, ".autotrain", "results.db"), c.DBPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "autotrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
seed: 7
cv_folds: 3
wash:
  min_category_count: 1
  abnormal_policy: coerce
`), 0o644))
	t.Setenv("AUTOTRAIN_SEED", "11")
	t.Setenv("AUTOTRAIN_WASH_MISSING_THRESHOLD", "0.7")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, uint64(11), c.Seed, "env wins over the file")
	assert.Equal(t, 3, c.CVFolds)
	assert.Equal(t, 0.7, c.Wash.MissingThreshold)
	assert.Equal(t, 1, c.Wash.MinCategoryCount)
	assert.Equal(t, "coerce", c.Wash.AbnormalPolicy)

	tc := c.TrainingConfig(log.OrDefault(nil, "test"))
	assert.Equal(t, uint64(11), tc.Seed)
	assert.Equal(t, 3, tc.CVFolds)
	require.NotNil(t, tc.Artifacts)
	assert.Len(t, c.WasherOptions(nil), 5)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"test size", "AUTOTRAIN_TEST_SIZE", "1.5"},
		{"folds", "AUTOTRAIN_CV_FOLDS", "1"},
		{"log level", "AUTOTRAIN_LOG_LEVEL", "loud"},
		{"abnormal policy", "AUTOTRAIN_WASH_ABNORMAL_POLICY", "keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := Load("")
			var invalid *errors.ValidationError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.Seed = 99
	c.Wash.AbnormalPolicy = "coerce"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(c, path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Path("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".autotrain", "config.yaml"), p)

	p, err = Path("/etc/autotrain.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/autotrain.yaml", p)
}
