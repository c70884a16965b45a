package washing

// ColumnClass is the type a column was classified as.
type ColumnClass string

const (
	ClassMissing     ColumnClass = "missing"
	ClassNumeric     ColumnClass = "numeric"
	ClassCategorical ColumnClass = "categorical"
	ClassDatetime    ColumnClass = "datetime"
	ClassAbnormal    ColumnClass = "abnormal"
)

// Action is what happened to a column.
type Action string

const (
	ActionKept    Action = "kept"
	ActionDropped Action = "dropped"
)

// ColumnReport records the decision for one input column.
type ColumnReport struct {
	Name         string      `json:"name"`
	Class        ColumnClass `json:"class"`
	Action       Action      `json:"action"`
	Reason       string      `json:"reason,omitempty"`
	RowsDropped  int         `json:"rows_dropped"`
	MissingRatio float64     `json:"missing_ratio"`
}

// Report summarises a washing run.
type Report struct {
	InputRows  int            `json:"input_rows"`
	InputCols  int            `json:"input_cols"`
	OutputRows int            `json:"output_rows"`
	OutputCols int            `json:"output_cols"`
	Columns    []ColumnReport `json:"columns"`
}

// Dropped returns the names of the columns that were removed.
func (r *Report) Dropped() []string {
	var out []string
	for _, c := range r.Columns {
		if c.Action == ActionDropped {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column returns the report for the named column.
func (r *Report) Column(name string) (ColumnReport, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnReport{}, false
}
