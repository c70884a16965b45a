// Package config loads the autotrain CLI configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/training"
	"github.com/YuminosukeSato/autotrain/visualization"
	"github.com/YuminosukeSato/autotrain/washing"
)

// EnvPrefix prefixes every environment override, e.g. AUTOTRAIN_SEED or
// AUTOTRAIN_WASH_MISSING_THRESHOLD.
const EnvPrefix = "AUTOTRAIN"

// Wash holds the data washer thresholds.
type Wash struct {
	MissingThreshold  float64 `mapstructure:"missing_threshold" yaml:"missing_threshold"`
	MajorityThreshold float64 `mapstructure:"majority_threshold" yaml:"majority_threshold"`
	MinCategoryCount  int     `mapstructure:"min_category_count" yaml:"min_category_count"`
	AbnormalPolicy    string  `mapstructure:"abnormal_policy" yaml:"abnormal_policy"`
}

// Global configuration structure.
type Global struct {
	LogLevel   string  `mapstructure:"log_level" yaml:"log_level"`
	PlotRoot   string  `mapstructure:"plot_root" yaml:"plot_root"`
	PlotSubdir string  `mapstructure:"plot_subdir" yaml:"plot_subdir"`
	DBPath     string  `mapstructure:"db_path" yaml:"db_path"`
	Seed       uint64  `mapstructure:"seed" yaml:"seed"`
	TestSize   float64 `mapstructure:"test_size" yaml:"test_size"`
	CVFolds    int     `mapstructure:"cv_folds" yaml:"cv_folds"`
	Workers    int     `mapstructure:"workers" yaml:"workers"`
	Wash       Wash    `mapstructure:"wash" yaml:"wash"`
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".autotrain"), nil
}

// Load loads configuration from defaults, the config file and env.
// Precedence: env > config file > defaults. An explicit cfgFile must be
// readable; the default ~/.autotrain/config.yaml is optional.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := training.DefaultConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("plot_root", ".")
	v.SetDefault("plot_subdir", visualization.DefaultSubdir)
	v.SetDefault("db_path", "")
	v.SetDefault("seed", d.Seed)
	v.SetDefault("test_size", d.TestSize)
	v.SetDefault("cv_folds", d.CVFolds)
	v.SetDefault("workers", 0)
	v.SetDefault("wash.missing_threshold", 0.5)
	v.SetDefault("wash.majority_threshold", 0.5)
	v.SetDefault("wash.min_category_count", 3)
	v.SetDefault("wash.abnormal_policy", washing.AbnormalDrop.String())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfgFile)
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if c.DBPath == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.DBPath = filepath.Join(dir, "results.db")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the ranges the components rely on.
func (c *Global) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", "unknown level", c.LogLevel)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return errors.NewValidationError("test_size", "must be in (0, 1)", c.TestSize)
	}
	if c.CVFolds < 2 {
		return errors.NewValidationError("cv_folds", "must be at least 2", c.CVFolds)
	}
	if _, ok := washing.ParseAbnormalPolicy(c.Wash.AbnormalPolicy); !ok {
		return errors.NewValidationError("wash.abnormal_policy", "must be drop or coerce", c.Wash.AbnormalPolicy)
	}
	return nil
}

// Path resolves cfgFile, falling back to ~/.autotrain/config.yaml.
func Path(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := defaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the given configuration to cfgFile, or to
// ~/.autotrain/config.yaml when cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	path, err := Path(cfgFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// TrainingConfig builds the trainer configuration.
func (c *Global) TrainingConfig(logger log.Logger) training.Config {
	return training.Config{
		Seed:      c.Seed,
		TestSize:  c.TestSize,
		CVFolds:   c.CVFolds,
		Workers:   c.Workers,
		Artifacts: &visualization.ArtifactStore{Root: c.PlotRoot, Subdir: c.PlotSubdir},
		Logger:    logger,
	}
}

// WasherOptions builds the washer options.
func (c *Global) WasherOptions(logger log.Logger) []washing.Option {
	policy, _ := washing.ParseAbnormalPolicy(c.Wash.AbnormalPolicy)
	return []washing.Option{
		washing.WithMissingThreshold(c.Wash.MissingThreshold),
		washing.WithMajorityThreshold(c.Wash.MajorityThreshold),
		washing.WithMinCategoryCount(c.Wash.MinCategoryCount),
		washing.WithAbnormalPolicy(policy),
		washing.WithLogger(logger),
	}
}
