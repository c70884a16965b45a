package training

import (
	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/visualization"
)

// Request is one training call: a cleaned table, the target column for the
// supervised trainers, and a tier.
type Request struct {
	Data   *dataframe.Dataset
	Target Target
	Tier   Tier
}

// Config carries everything a trainer needs besides the request. Trainers
// never read global state.
type Config struct {
	// Seed drives the train/validation split, fold shuffling and estimator
	// randomness.
	Seed uint64
	// TestSize is the validation share of the rows.
	TestSize float64
	// CVFolds is the number of cross-validation folds of the grid tiers.
	CVFolds int
	// Workers bounds the grid search goroutines; <= 0 means one per core.
	Workers int
	// Artifacts receives the plots. Nil skips plotting.
	Artifacts *visualization.ArtifactStore
	Logger    log.Logger
}

// DefaultConfig returns seed 42, an 80/20 split and 5 folds.
func DefaultConfig() Config {
	return Config{
		Seed:     42,
		TestSize: 0.2,
		CVFolds:  5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TestSize <= 0 || c.TestSize >= 1 {
		c.TestSize = d.TestSize
	}
	if c.CVFolds < 2 {
		c.CVFolds = d.CVFolds
	}
	c.Logger = log.OrDefault(c.Logger, "training")
	return c
}
