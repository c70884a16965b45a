package dataframe

import (
	"encoding/csv"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// Kind is the class of a cleaned column.
type Kind int

const (
	// Numeric columns hold real values.
	Numeric Kind = iota
	// Categorical columns hold integer label codes.
	Categorical
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Dataset is a cleaned table: every cell is a finite float64 and there are
// no missing values. Categorical columns carry integer codes and the sorted
// labels the codes index into. A Dataset is immutable; accessors return
// copies.
type Dataset struct {
	names      []string
	kinds      []Kind
	categories [][]string
	cols       [][]float64
	nrows      int
}

// Column describes one cleaned column for NewDataset.
type Column struct {
	Name       string
	Kind       Kind
	Values     []float64
	Categories []string // labels for Categorical columns, indexed by code
}

// NewDataset validates and assembles a Dataset. nrows is only consulted
// when there are no columns.
func NewDataset(nrows int, columns ...Column) (*Dataset, error) {
	ds := &Dataset{nrows: nrows}
	if len(columns) > 0 {
		ds.nrows = len(columns[0].Values)
	}
	for _, c := range columns {
		if len(c.Values) != ds.nrows {
			return nil, errors.NewDimensionError("NewDataset", ds.nrows, len(c.Values), 0)
		}
		if err := errors.CheckNumericalStability("NewDataset:"+c.Name, c.Values, 0); err != nil {
			return nil, err
		}
		ds.names = append(ds.names, c.Name)
		ds.kinds = append(ds.kinds, c.Kind)
		ds.categories = append(ds.categories, append([]string(nil), c.Categories...))
		ds.cols = append(ds.cols, append([]float64(nil), c.Values...))
	}
	return ds, nil
}

// Dims returns the number of rows and columns.
func (d *Dataset) Dims() (rows, cols int) { return d.nrows, len(d.names) }

// Names returns a copy of the column names.
func (d *Dataset) Names() []string { return append([]string(nil), d.names...) }

// Kind returns the kind of column j.
func (d *Dataset) Kind(j int) Kind { return d.kinds[j] }

// Categories returns the labels of categorical column j (nil for numeric).
func (d *Dataset) Categories(j int) []string { return append([]string(nil), d.categories[j]...) }

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for j, n := range d.names {
		if n == name {
			return j
		}
	}
	return -1
}

// Column returns a copy of column j.
func (d *Dataset) Column(j int) []float64 { return append([]float64(nil), d.cols[j]...) }

// Matrix returns all columns as an n×p dense matrix.
func (d *Dataset) Matrix() (*mat.Dense, error) {
	return d.matrixExcept(-1)
}

// Features splits the table into a feature matrix made of every column
// except target, and the target vector.
func (d *Dataset) Features(target int) (*mat.Dense, *mat.VecDense, error) {
	if target < 0 || target >= len(d.names) {
		return nil, nil, errors.NewValueError("Features", "target column out of range: "+strconv.Itoa(target))
	}
	if d.nrows == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "Features")
	}
	X, err := d.matrixExcept(target)
	if err != nil {
		return nil, nil, err
	}
	return X, mat.NewVecDense(d.nrows, d.Column(target)), nil
}

func (d *Dataset) matrixExcept(skip int) (*mat.Dense, error) {
	p := len(d.names)
	if skip >= 0 {
		p--
	}
	if d.nrows == 0 || p <= 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset has %d rows and %d feature columns", d.nrows, p)
	}
	X := mat.NewDense(d.nrows, p, nil)
	c := 0
	for j, col := range d.cols {
		if j == skip {
			continue
		}
		X.SetCol(c, col)
		c++
	}
	return X, nil
}

// Frame converts the dataset back into a raw Frame of float64 cells.
func (d *Dataset) Frame() *Frame {
	f := &Frame{names: d.Names(), nrows: d.nrows, cols: make([][]any, len(d.cols))}
	for j, col := range d.cols {
		cells := make([]any, len(col))
		for i, v := range col {
			cells[i] = v
		}
		f.cols[j] = cells
	}
	return f
}

// Equal reports whether both datasets have the same column names and
// cell values. Column kinds are not compared: a categorical code column
// re-read as numbers holds the same values.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.nrows != o.nrows || len(d.names) != len(o.names) {
		return false
	}
	for j := range d.names {
		if d.names[j] != o.names[j] {
			return false
		}
		for i := range d.cols[j] {
			if d.cols[j][i] != o.cols[j][i] {
				return false
			}
		}
	}
	return true
}

// WriteCSV writes the dataset with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.names); err != nil {
		return errors.Wrap(err, "write header")
	}
	record := make([]string, len(d.names))
	for i := 0; i < d.nrows; i++ {
		for j, col := range d.cols {
			if d.kinds[j] == Categorical {
				record[j] = strconv.FormatInt(int64(col[i]), 10)
			} else {
				record[j] = strconv.FormatFloat(col[i], 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return cw.Error()
}
