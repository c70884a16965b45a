// Package washing turns a raw Frame into a cleaned Dataset.
//
// Columns are handled one at a time in table order. Each column sees the
// rows left over by the columns before it, so a row removed while repairing
// an earlier numeric column is already gone when a later categorical column
// is encoded.
package washing

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/preprocessing"
)

// Washer applies the per-column cleaning policy.
type Washer struct {
	missingThreshold  float64
	majorityThreshold float64
	minCategoryCount  int
	abnormalPolicy    AbnormalPolicy
	logger            log.Logger
}

// NewWasher creates a Washer with the default thresholds: drop columns more
// than half missing, require a strict majority for a type, and require
// every category code to occur at least 3 times.
func NewWasher(opts ...Option) *Washer {
	w := &Washer{
		missingThreshold:  0.5,
		majorityThreshold: 0.5,
		minCategoryCount:  3,
		abnormalPolicy:    AbnormalDrop,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.OrDefault(w.logger, "washing")
	return w
}

// Wash returns the cleaned table. The input Frame is not modified. The only
// error is errors.ErrMalformedInput for a nil frame; data-quality problems
// are resolved by dropping or repairing and never fail.
func (w *Washer) Wash(f *dataframe.Frame) (*dataframe.Dataset, error) {
	ds, _, err := w.WashWithReport(f)
	return ds, err
}

// WashFile reads a CSV file and washes it. Unreadable or unparseable files
// return errors.ErrMalformedInput.
func (w *Washer) WashFile(path string, opt dataframe.CSVOptions) (*dataframe.Dataset, *Report, error) {
	f, err := dataframe.ReadCSVFile(path, opt)
	if err != nil {
		return nil, nil, err
	}
	return w.WashWithReport(f)
}

// WashWithReport is Wash plus a record of the decision taken for every column.
func (w *Washer) WashWithReport(f *dataframe.Frame) (*dataframe.Dataset, *Report, error) {
	if f == nil {
		return nil, nil, errors.Wrap(errors.ErrMalformedInput, "nil frame")
	}

	work := f.Clone()
	report := &Report{InputRows: f.NRows(), InputCols: f.NCols()}
	cleaned := make(map[string]dataframe.Column, f.NCols())

	for j := 0; j < work.NCols(); {
		name := work.Names()[j]
		cr, col, keep := w.washColumn(work, j)
		report.Columns = append(report.Columns, cr)
		w.logDecision(cr)
		if !keep {
			work.DropColumn(j)
			continue
		}
		cleaned[name] = col
		j++
	}

	names := work.Names()
	columns := make([]dataframe.Column, 0, len(names))
	for j, name := range names {
		// Rows dropped by later columns must be removed from earlier ones.
		col := cleaned[name]
		col.Values = floatColumn(work, j)
		columns = append(columns, col)
	}

	ds, err := dataframe.NewDataset(work.NRows(), columns...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "assemble cleaned table")
	}
	report.OutputRows, report.OutputCols = ds.Dims()

	w.logger.Info("washing finished",
		log.OperationKey, log.OperationWash,
		"input_rows", report.InputRows,
		"input_cols", report.InputCols,
		"output_rows", report.OutputRows,
		"output_cols", report.OutputCols,
	)
	return ds, report, nil
}

// washColumn classifies column j and repairs it in place. keep=false means
// the caller must drop the column.
func (w *Washer) washColumn(work *dataframe.Frame, j int) (ColumnReport, dataframe.Column, bool) {
	name := work.Names()[j]
	cells := work.Column(j)
	total := len(cells)
	cr := ColumnReport{Name: name}

	if total == 0 {
		// Every row is gone; the column survives as an empty numeric column.
		cr.Class, cr.Action, cr.Reason = ClassNumeric, ActionKept, "no rows remain"
		return cr, dataframe.Column{Name: name, Kind: dataframe.Numeric}, true
	}

	var missing, numeric, str, stamp, nonAlnum int
	for _, v := range cells {
		switch {
		case dataframe.IsMissing(v):
			missing++
		case dataframe.IsNumeric(v):
			numeric++
		case isTimestamp(v):
			stamp++
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			str++
			if !isAlnum(s) {
				nonAlnum++
			}
		}
	}
	n := float64(total)
	cr.MissingRatio = float64(missing) / n

	if cr.MissingRatio > w.missingThreshold {
		cr.Class, cr.Action, cr.Reason = ClassMissing, ActionDropped, "missing ratio above threshold"
		return cr, dataframe.Column{}, false
	}

	switch {
	case float64(numeric)/n > w.majorityThreshold:
		cr.Class = ClassNumeric
		return w.repairNumeric(work, j, cr)
	case float64(str)/n > w.majorityThreshold:
		cr.Class = ClassCategorical
		return w.repairCategorical(work, j, cr)
	case float64(stamp)/n > w.majorityThreshold:
		cr.Class, cr.Action, cr.Reason = ClassDatetime, ActionDropped, "datetime columns are not retained"
		return cr, dataframe.Column{}, false
	}

	cr.Class = ClassAbnormal
	if float64(nonAlnum)/n > w.majorityThreshold {
		cr.Action, cr.Reason = ActionDropped, "mostly non-alphanumeric strings"
		return cr, dataframe.Column{}, false
	}
	if w.abnormalPolicy == AbnormalCoerce {
		cr.Reason = "no type majority, coerced to numeric"
		return w.repairNumeric(work, j, cr)
	}
	cr.Action, cr.Reason = ActionDropped, "no type majority"
	return cr, dataframe.Column{}, false
}

// repairNumeric coerces every cell to a finite float, drops the rows that
// fail, then mean-imputes what is left.
func (w *Washer) repairNumeric(work *dataframe.Frame, j int, cr ColumnReport) (ColumnReport, dataframe.Column, bool) {
	cells := work.Column(j)
	values := make([]float64, len(cells))
	keep := make([]bool, len(cells))
	converted := 0
	for i, v := range cells {
		f, ok := coerceFloat(v)
		if _, isStr := v.(string); ok && isStr {
			converted++
		}
		keep[i] = ok
		if ok {
			values[i] = f
		} else {
			values[i] = math.NaN()
		}
	}
	if converted > 0 {
		errors.Warn(errors.NewDataConversionWarning(cr.Name, "string", "float64",
			strconv.Itoa(converted)+" text cells parsed as numbers"))
	}

	cr.RowsDropped = work.KeepRows(keep)
	kept := values[:0]
	for i, v := range values {
		if keep[i] {
			kept = append(kept, v)
		}
	}

	if len(kept) > 0 {
		imputed, err := meanImpute(kept)
		if err != nil {
			// Only reachable when every value is missing, which the row drop rules out.
			cr.Action, cr.Reason = ActionDropped, err.Error()
			return cr, dataframe.Column{}, false
		}
		kept = imputed
	}

	cells = make([]any, len(kept))
	for i, v := range kept {
		cells[i] = v
	}
	if err := work.SetColumn(j, cells); err != nil {
		cr.Action, cr.Reason = ActionDropped, err.Error()
		return cr, dataframe.Column{}, false
	}

	cr.Action = ActionKept
	return cr, dataframe.Column{Name: cr.Name, Kind: dataframe.Numeric}, true
}

func meanImpute(values []float64) ([]float64, error) {
	imp := preprocessing.NewSimpleImputer(preprocessing.ImputeMean)
	out, err := imp.FitTransform(mat.NewDense(len(values), 1, values))
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, out), nil
}

// repairCategorical drops rows that do not hold a non-blank string, encodes
// the rest in sorted label order, and gives up on the column when any code
// is rarer than minCategoryCount.
func (w *Washer) repairCategorical(work *dataframe.Frame, j int, cr ColumnReport) (ColumnReport, dataframe.Column, bool) {
	cells := work.Column(j)
	keep := make([]bool, len(cells))
	labels := make([]string, 0, len(cells))
	for i, v := range cells {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			keep[i] = true
			labels = append(labels, s)
		}
	}
	cr.RowsDropped = work.KeepRows(keep)

	enc := preprocessing.NewLabelEncoder()
	codes, err := enc.FitTransform(labels)
	if err != nil {
		cr.Action, cr.Reason = ActionDropped, err.Error()
		return cr, dataframe.Column{}, false
	}
	classes := enc.Classes()

	counts := make([]int, len(classes))
	for _, c := range codes {
		counts[c]++
	}
	for code, c := range counts {
		if c < w.minCategoryCount {
			cr.Action = ActionDropped
			cr.Reason = "category " + strconv.Quote(classes[code]) + " occurs " + strconv.Itoa(c) + " times"
			return cr, dataframe.Column{}, false
		}
	}

	encoded := make([]any, len(codes))
	for i, c := range codes {
		encoded[i] = float64(c)
	}
	if err := work.SetColumn(j, encoded); err != nil {
		cr.Action, cr.Reason = ActionDropped, err.Error()
		return cr, dataframe.Column{}, false
	}

	cr.Action = ActionKept
	return cr, dataframe.Column{Name: cr.Name, Kind: dataframe.Categorical, Categories: classes}, true
}

func (w *Washer) logDecision(cr ColumnReport) {
	fields := []any{
		log.ColumnKey, cr.Name,
		log.ColumnClassKey, string(cr.Class),
		log.ActionKey, string(cr.Action),
		log.RowsDroppedKey, cr.RowsDropped,
	}
	if cr.Reason != "" {
		fields = append(fields, log.ReasonKey, cr.Reason)
	}
	w.logger.Debug("column washed", fields...)
}

// coerceFloat converts a cell to a finite float64. Strings are parsed after
// trimming; ±Inf counts as a failed conversion.
func coerceFloat(v any) (float64, bool) {
	if dataframe.IsMissing(v) {
		return 0, false
	}
	f, ok := dataframe.ToFloat(v)
	if !ok {
		s, isStr := v.(string)
		if !isStr {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatColumn(f *dataframe.Frame, j int) []float64 {
	out := make([]float64, f.NRows())
	for i := range out {
		out[i], _ = dataframe.ToFloat(f.At(i, j))
	}
	return out
}

func isTimestamp(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
