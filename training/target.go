package training

import (
	"strconv"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// Target names the column a supervised trainer predicts, either by name or
// by zero-based position. The zero value is unset.
type Target struct {
	name   string
	index  int
	byName bool
	set    bool
}

// TargetName selects the target column by name.
func TargetName(name string) Target {
	return Target{name: name, byName: true, set: true}
}

// TargetIndex selects the target column by zero-based position.
func TargetIndex(i int) Target {
	return Target{index: i, set: true}
}

// ParseTarget reads a command-line target. A string that parses as an
// integer is a position, anything else a name. An empty string is unset.
func ParseTarget(s string) Target {
	if s == "" {
		return Target{}
	}
	if i, err := strconv.Atoi(s); err == nil {
		return TargetIndex(i)
	}
	return TargetName(s)
}

// IsSet reports whether a target was given.
func (t Target) IsSet() bool { return t.set }

func (t Target) String() string {
	switch {
	case !t.set:
		return "<unset>"
	case t.byName:
		return t.name
	default:
		return strconv.Itoa(t.index)
	}
}

// Resolve returns the column position of the target in ds.
func (t Target) Resolve(ds *dataframe.Dataset) (int, error) {
	names := ds.Names()
	switch {
	case !t.set:
		return -1, errors.NewTargetError(t.String(), "no target column given", names)
	case t.byName:
		if j := ds.Index(t.name); j >= 0 {
			return j, nil
		}
		return -1, errors.NewTargetError(t.name, "column not found", names)
	default:
		if t.index < 0 || t.index >= len(names) {
			return -1, errors.NewTargetError(t.String(),
				"index out of range [0, "+strconv.Itoa(len(names))+")", names)
		}
		return t.index, nil
	}
}
