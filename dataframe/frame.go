// Package dataframe holds the two table shapes the pipeline passes around:
// Frame, a raw column-major table of heterogeneous cells as read from an
// upload, and Dataset, the cleaned fully numeric table produced by washing.
package dataframe

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// Frame is a raw table. Cells may be nil, float64, float32, any integer
// type, bool, string or time.Time. nil and NaN are missing.
//
// Frame values handed to the washer are never modified; mutating methods
// are meant for working copies obtained with Clone.
type Frame struct {
	names []string
	cols  [][]any
	nrows int
}

// NewFrame builds a Frame from column names and column-major cells.
// Every column must have the same length and names must be unique.
func NewFrame(names []string, cols [][]any) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "%d names for %d columns", len(names), len(cols))
	}
	seen := make(map[string]struct{}, len(names))
	nrows := 0
	for j, name := range names {
		if _, dup := seen[name]; dup {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "duplicate column name %q", name)
		}
		seen[name] = struct{}{}
		if j == 0 {
			nrows = len(cols[j])
		} else if len(cols[j]) != nrows {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "column %q has %d rows, expected %d", name, len(cols[j]), nrows)
		}
		for i, v := range cols[j] {
			if !supportedCell(v) {
				return nil, errors.Wrapf(errors.ErrMalformedInput, "column %q row %d: unsupported cell type %T", name, i, v)
			}
		}
	}

	f := &Frame{names: append([]string(nil), names...), nrows: nrows}
	f.cols = make([][]any, len(cols))
	for j := range cols {
		f.cols[j] = append([]any(nil), cols[j]...)
	}
	return f, nil
}

// MustFrame is NewFrame for literals in tests and examples; it panics on error.
func MustFrame(names []string, cols ...[]any) *Frame {
	f, err := NewFrame(names, cols)
	if err != nil {
		panic(err)
	}
	return f
}

func supportedCell(v any) bool {
	switch v.(type) {
	case nil, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, bool, string, time.Time:
		return true
	}
	return false
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return f.nrows }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.names) }

// Names returns a copy of the column names in table order.
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	for j, n := range f.names {
		if n == name {
			return j
		}
	}
	return -1
}

// Column returns a copy of column j.
func (f *Frame) Column(j int) []any { return append([]any(nil), f.cols[j]...) }

// At returns the cell at row i, column j.
func (f *Frame) At(i, j int) any { return f.cols[j][i] }

// Clone returns a copy that can be mutated without affecting f.
func (f *Frame) Clone() *Frame {
	out := &Frame{names: f.Names(), nrows: f.nrows, cols: make([][]any, len(f.cols))}
	for j := range f.cols {
		out.cols[j] = f.Column(j)
	}
	return out
}

// DropColumn removes column j in place.
func (f *Frame) DropColumn(j int) {
	f.names = append(f.names[:j], f.names[j+1:]...)
	f.cols = append(f.cols[:j], f.cols[j+1:]...)
}

// KeepRows retains only the rows where keep[i] is true, in place,
// and returns the number of rows removed.
func (f *Frame) KeepRows(keep []bool) int {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	removed := f.nrows - n
	if removed == 0 {
		return 0
	}
	for j, col := range f.cols {
		out := make([]any, 0, n)
		for i, v := range col {
			if keep[i] {
				out = append(out, v)
			}
		}
		f.cols[j] = out
	}
	f.nrows = n
	return removed
}

// SetColumn replaces the cells of column j in place.
func (f *Frame) SetColumn(j int, cells []any) error {
	if len(cells) != f.nrows {
		return errors.NewDimensionError("SetColumn", f.nrows, len(cells), 0)
	}
	f.cols[j] = cells
	return nil
}

// IsMissing reports whether a cell counts as missing: nil or a NaN float.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// IsNumeric reports whether a non-missing cell holds a number. Booleans
// count as numbers.
func IsNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, bool:
		return !IsMissing(v)
	}
	return false
}

// ToFloat converts a numeric cell to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// String renders a short description, mainly for test failures.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d×%d %v)", f.nrows, len(f.names), f.names)
}
