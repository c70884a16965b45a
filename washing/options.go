package washing

import "github.com/YuminosukeSato/autotrain/pkg/log"

// AbnormalPolicy decides the fate of a column with no type majority whose
// values are not mostly non-alphanumeric strings.
type AbnormalPolicy int

const (
	// AbnormalDrop removes the column.
	AbnormalDrop AbnormalPolicy = iota
	// AbnormalCoerce repairs the column as numeric: cells that do not parse
	// as numbers become missing and their rows are dropped.
	AbnormalCoerce
)

// String returns the configuration name of the policy.
func (p AbnormalPolicy) String() string {
	if p == AbnormalCoerce {
		return "coerce"
	}
	return "drop"
}

// ParseAbnormalPolicy accepts "drop" or "coerce".
func ParseAbnormalPolicy(s string) (AbnormalPolicy, bool) {
	switch s {
	case "drop", "":
		return AbnormalDrop, true
	case "coerce":
		return AbnormalCoerce, true
	}
	return AbnormalDrop, false
}

// Option configures a Washer.
type Option func(*Washer)

// WithMissingThreshold sets the missing ratio above which a column is dropped.
func WithMissingThreshold(ratio float64) Option {
	return func(w *Washer) { w.missingThreshold = ratio }
}

// WithMajorityThreshold sets the share a type must exceed to win the vote.
func WithMajorityThreshold(ratio float64) Option {
	return func(w *Washer) { w.majorityThreshold = ratio }
}

// WithMinCategoryCount sets the minimum occurrences every code of a
// categorical column needs for the column to be kept.
func WithMinCategoryCount(n int) Option {
	return func(w *Washer) { w.minCategoryCount = n }
}

// WithAbnormalPolicy sets the default for unresolved abnormal columns.
func WithAbnormalPolicy(p AbnormalPolicy) Option {
	return func(w *Washer) { w.abnormalPolicy = p }
}

// WithLogger sets the logger used for per-column decisions.
func WithLogger(l log.Logger) Option {
	return func(w *Washer) { w.logger = l }
}
