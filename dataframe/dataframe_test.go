package dataframe

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

func TestNewFrameValidation(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		cols  [][]any
	}{
		{"name count mismatch", []string{"a"}, [][]any{{1.0}, {2.0}}},
		{"ragged columns", []string{"a", "b"}, [][]any{{1.0, 2.0}, {1.0}}},
		{"duplicate names", []string{"a", "a"}, [][]any{{1.0}, {2.0}}},
		{"unsupported cell", []string{"a"}, [][]any{{struct{}{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrame(tt.names, tt.cols)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedInput))
		})
	}
}

func TestFrameCloneIsIndependent(t *testing.T) {
	f := MustFrame([]string{"a", "b"}, []any{1.0, 2.0, 3.0}, []any{"x", "y", nil})
	c := f.Clone()

	c.KeepRows([]bool{true, false, true})
	c.DropColumn(0)
	require.NoError(t, c.SetColumn(0, []any{"p", "q"}))

	assert.Equal(t, 3, f.NRows())
	assert.Equal(t, []string{"a", "b"}, f.Names())
	assert.Equal(t, []any{"x", "y", nil}, f.Column(1))
	assert.Equal(t, 2, c.NRows())
	assert.Equal(t, []string{"b"}, c.Names())
}

func TestCellPredicates(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(""))
	assert.True(t, IsNumeric(3))
	assert.True(t, IsNumeric(true))
	assert.False(t, IsNumeric(math.NaN()))
	assert.False(t, IsNumeric("3"))

	v, ok := ToFloat(uint8(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestReadCSV(t *testing.T) {
	in := "A, B ,C,D\n1,a,,2023-01-01\n2.5,b,NA,2023-01-02\n,true,x\n"

	f, err := ReadCSV(strings.NewReader(in), CSVOptions{ParseDates: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, f.Names())
	assert.Equal(t, 3, f.NRows())
	assert.Equal(t, []any{1.0, 2.5, nil}, f.Column(0))
	assert.Equal(t, []any{"a", "b", true}, f.Column(1))
	assert.Equal(t, []any{nil, nil, "x"}, f.Column(2))
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), f.At(0, 3))
	assert.Nil(t, f.At(2, 3), "short rows are padded with missing cells")
}

func TestReadCSVWithoutDateParsing(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("d\n2023-01-01\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", f.At(0, 0))
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), CSVOptions{})
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestReadCSVEmptyAndMaxRows(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.NCols())

	f, err = ReadCSV(strings.NewReader("a\n1\n2\n3\n"), CSVOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, f.NRows())
}

func TestReadCSVFileTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a\tb\n1\tx\n"), 0o600))

	f, err := ReadCSVFile(path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Names())
	assert.Equal(t, "x", f.At(0, 1))
}

func TestDatasetFeaturesAndMatrix(t *testing.T) {
	ds, err := NewDataset(0,
		Column{Name: "x1", Kind: Numeric, Values: []float64{1, 2, 3}},
		Column{Name: "label", Kind: Categorical, Values: []float64{0, 1, 0}, Categories: []string{"no", "yes"}},
		Column{Name: "x2", Kind: Numeric, Values: []float64{4, 5, 6}},
	)
	require.NoError(t, err)

	r, c := ds.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 1, ds.Index("label"))
	assert.Equal(t, []string{"no", "yes"}, ds.Categories(1))

	X, y, err := ds.Features(1)
	require.NoError(t, err)
	xr, xc := X.Dims()
	assert.Equal(t, 3, xr)
	assert.Equal(t, 2, xc)
	assert.Equal(t, 5.0, X.At(1, 1))
	assert.Equal(t, 1.0, y.AtVec(1))

	_, _, err = ds.Features(5)
	assert.Error(t, err)
}

func TestDatasetRejectsNonFinite(t *testing.T) {
	_, err := NewDataset(0, Column{Name: "x", Values: []float64{1, math.Inf(1)}})
	assert.Error(t, err)
}

func TestDatasetEmptyMatrix(t *testing.T) {
	ds, err := NewDataset(0)
	require.NoError(t, err)
	_, err = ds.Matrix()
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestDatasetFrameRoundTripAndCSV(t *testing.T) {
	ds, err := NewDataset(0,
		Column{Name: "x", Kind: Numeric, Values: []float64{1.5, 2}},
		Column{Name: "c", Kind: Categorical, Values: []float64{1, 0}, Categories: []string{"a", "b"}},
	)
	require.NoError(t, err)

	f := ds.Frame()
	assert.Equal(t, []any{1.5, 2.0}, f.Column(0))

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))
	assert.Equal(t, "x,c\n1.5,1\n2,0\n", buf.String())

	other, err := NewDataset(0,
		Column{Name: "x", Kind: Numeric, Values: []float64{1.5, 2}},
		Column{Name: "c", Kind: Numeric, Values: []float64{1, 0}},
	)
	require.NoError(t, err)
	assert.True(t, ds.Equal(other))
}
