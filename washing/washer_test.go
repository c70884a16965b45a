package washing

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
)

func quietWasher(opts ...Option) *Washer {
	logger, _ := log.NewTestLogger(log.LevelError)
	return NewWasher(append([]Option{WithLogger(logger)}, opts...)...)
}

func scenarioFrame() *dataframe.Frame {
	nan := math.NaN()
	return dataframe.MustFrame([]string{"A", "B", "C"},
		[]any{1.0, 2.0, nan, 4.0, 5.0},
		[]any{"a", "b", "c", nan, "e"},
		[]any{nan, nan, nan, nan, nan},
	)
}

func TestWashScenario(t *testing.T) {
	t.Run("default drops rare categories", func(t *testing.T) {
		ds, report, err := quietWasher().WashWithReport(scenarioFrame())
		require.NoError(t, err)

		assert.Equal(t, []string{"A"}, ds.Names())
		assert.Equal(t, []float64{1, 2, 5}, ds.Column(0))
		assert.ElementsMatch(t, []string{"B", "C"}, report.Dropped())

		c, ok := report.Column("C")
		require.True(t, ok)
		assert.Equal(t, ClassMissing, c.Class)
		assert.Equal(t, 1.0, c.MissingRatio)
	})

	t.Run("min category count 1 keeps B", func(t *testing.T) {
		ds, err := quietWasher(WithMinCategoryCount(1)).Wash(scenarioFrame())
		require.NoError(t, err)

		assert.Equal(t, []string{"A", "B"}, ds.Names())
		assert.Equal(t, []float64{1, 2, 5}, ds.Column(0))
		assert.Equal(t, []float64{0, 1, 2}, ds.Column(1))
		assert.Equal(t, dataframe.Categorical, ds.Kind(1))
		assert.Equal(t, []string{"a", "b", "e"}, ds.Categories(1))
		for _, v := range ds.Column(0) {
			assert.False(t, math.IsNaN(v))
		}
	})
}

func TestWashDoesNotMutateInput(t *testing.T) {
	f := scenarioFrame()
	before := f.Clone()

	_, err := quietWasher().Wash(f)
	require.NoError(t, err)

	assert.Equal(t, before.Names(), f.Names())
	assert.Equal(t, before.NRows(), f.NRows())
	assert.Equal(t, "c", f.At(2, 1))
}

func TestWashMixedColumns(t *testing.T) {
	var mu sync.Mutex
	var warnings []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	f := dataframe.MustFrame([]string{"A", "B"},
		[]any{1, "2", 3, "invalid", 5, 6, 7},
		[]any{"a", 1, "a", 2, "b", "b", "b"},
	)

	ds, report, err := quietWasher(WithMinCategoryCount(1)).WashWithReport(f)
	require.NoError(t, err)

	// A: "2" parses, "invalid" is dropped with its row.
	a, _ := report.Column("A")
	assert.Equal(t, ClassNumeric, a.Class)
	assert.Equal(t, 1, a.RowsDropped)

	// B then sees a,1,a,b,b,b and drops the row holding the number.
	b, _ := report.Column("B")
	assert.Equal(t, ClassCategorical, b.Class)
	assert.Equal(t, 1, b.RowsDropped)

	assert.Equal(t, []float64{1, 3, 5, 6, 7}, ds.Column(0))
	assert.Equal(t, []float64{0, 0, 1, 1, 1}, ds.Column(1))

	require.Len(t, warnings, 1)
	var conv *errors.DataConversionWarning
	require.True(t, errors.As(warnings[0], &conv))
	assert.Equal(t, "A", conv.Column)
}

func TestWashThresholds(t *testing.T) {
	tests := []struct {
		name   string
		cells  []any
		opts   []Option
		class  ColumnClass
		action Action
	}{
		{
			name:   "exactly half missing is not dropped for missingness",
			cells:  []any{1.0, nil, 3.0, nil},
			class:  ClassAbnormal,
			action: ActionDropped,
		},
		{
			name:   "exactly half missing coerced",
			cells:  []any{1.0, nil, 3.0, nil},
			opts:   []Option{WithAbnormalPolicy(AbnormalCoerce)},
			class:  ClassAbnormal,
			action: ActionKept,
		},
		{
			name:   "more than half missing",
			cells:  []any{1.0, nil, nil, nil, 5.0},
			class:  ClassMissing,
			action: ActionDropped,
		},
		{
			name:   "numeric majority",
			cells:  []any{1.0, 2, true, nil, "x"},
			class:  ClassNumeric,
			action: ActionKept,
		},
		{
			name: "datetime majority",
			cells: []any{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
				nil,
			},
			class:  ClassDatetime,
			action: ActionDropped,
		},
		{
			name:   "blank strings do not vote as strings",
			cells:  []any{"a", " ", "", 1.0, 2.0},
			class:  ClassAbnormal,
			action: ActionDropped,
		},
		{
			name:   "looser missing threshold",
			cells:  []any{1.0, nil, nil, nil, 5.0},
			opts:   []Option{WithMissingThreshold(0.9), WithMajorityThreshold(0.3)},
			class:  ClassNumeric,
			action: ActionKept,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := dataframe.MustFrame([]string{"X"}, tt.cells)
			_, report, err := quietWasher(tt.opts...).WashWithReport(f)
			require.NoError(t, err)

			cr, ok := report.Column("X")
			require.True(t, ok)
			assert.Equal(t, tt.class, cr.Class)
			assert.Equal(t, tt.action, cr.Action)
		})
	}
}

func TestWashInfinityIsMissing(t *testing.T) {
	f := dataframe.MustFrame([]string{"X"}, []any{1.0, math.Inf(1), 3.0, "-inf"})
	ds, err := quietWasher().Wash(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, ds.Column(0))
}

func TestWashEmptyAndMalformed(t *testing.T) {
	_, err := quietWasher().Wash(nil)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))

	empty, err := dataframe.NewFrame(nil, nil)
	require.NoError(t, err)
	ds, err := quietWasher().Wash(empty)
	require.NoError(t, err)
	r, c := ds.Dims()
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)

	noRows := dataframe.MustFrame([]string{"a", "b"}, []any{}, []any{})
	ds, err = quietWasher().Wash(noRows)
	require.NoError(t, err)
	r, c = ds.Dims()
	assert.Equal(t, 0, r)
	assert.Equal(t, 2, c)
}

func TestWashIsIdempotent(t *testing.T) {
	f := dataframe.MustFrame([]string{"n", "s", "d"},
		[]any{1.0, "2", 3.0, nil, 5.0, 6.0, 7.0, 8.0},
		[]any{"x", "y", "x", "y", "x", "y", "x", "y"},
		[]any{"$", "%", 1.0, nil, nil, "x", nil, nil},
	)
	w := quietWasher()

	once, err := w.Wash(f)
	require.NoError(t, err)
	twice, err := w.Wash(once.Frame())
	require.NoError(t, err)

	assert.True(t, once.Equal(twice), "once=%v twice=%v", once.Names(), twice.Names())
}

func TestWashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n1,a\n2,b\n,c\n4,a\n5,b\n6,a\n7,b\n"), 0o600))

	ds, report, err := quietWasher().WashFile(path, dataframe.CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ds.Names())
	assert.Equal(t, 6, report.OutputRows)

	_, _, err = quietWasher().WashFile(filepath.Join(t.TempDir(), "nope.csv"), dataframe.CSVOptions{})
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestWashLogsDecisions(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	_, err := NewWasher(WithLogger(logger)).Wash(scenarioFrame())
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("column washed"))
	assert.True(t, logger.ContainsField(log.ColumnKey, "C"))
	assert.True(t, logger.ContainsField(log.ActionKey, string(ActionDropped)))
	assert.True(t, logger.ContainsMessage("washing finished"))
}

func TestParseAbnormalPolicy(t *testing.T) {
	p, ok := ParseAbnormalPolicy("coerce")
	assert.True(t, ok)
	assert.Equal(t, AbnormalCoerce, p)
	assert.Equal(t, "coerce", p.String())

	_, ok = ParseAbnormalPolicy("keep")
	assert.False(t, ok)
}
