package training

import (
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// Tier selects how broadly a trainer searches its hyperparameters.
type Tier string

const (
	// TierFast fits one fixed configuration (or, for k-means, a short list of
	// cluster counts) without cross-validation.
	TierFast Tier = "Fast"
	// TierBalance runs a moderate grid search with 5-fold cross-validation.
	TierBalance Tier = "Balance"
	// TierHighPrecision runs a much wider grid with tighter tolerances.
	TierHighPrecision Tier = "High Precision"
)

// Tiers lists the valid tiers from cheapest to most expensive.
var Tiers = []Tier{TierFast, TierBalance, TierHighPrecision}

// ParseTier accepts exactly "Fast", "Balance" or "High Precision".
func ParseTier(s string) (Tier, error) {
	for _, t := range Tiers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.NewValidationError("tier", `must be one of "Fast", "Balance", "High Precision"`, s)
}

// Valid reports whether t is one of Tiers.
func (t Tier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}
