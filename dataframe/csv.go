package dataframe

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// CSVOptions controls how text cells are typed while reading.
type CSVOptions struct {
	// Delimiter for fields. 0 picks tab for .tsv paths and comma otherwise.
	Delimiter rune
	// NAValues are the tokens read as missing. nil means DefaultNAValues.
	NAValues []string
	// ParseDates turns cells matching a known date layout into time.Time.
	ParseDates bool
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// DefaultNAValues mirrors the tokens common spreadsheet exports use for
// missing cells.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ReadCSVFile opens path and reads it with ReadCSV. Open failures wrap
// ErrMalformedInput.
func ReadCSVFile(path string, opt CSVOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "open %s: %v", path, err)
	}
	defer f.Close()

	if opt.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opt.Delimiter = '\t'
	}
	return ReadCSV(f, opt)
}

// ReadCSV reads a header row followed by data rows. Short rows are padded
// with missing cells; rows longer than the header are malformed.
func ReadCSV(r io.Reader, opt CSVOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return &Frame{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "read header: %v", err)
	}
	names := make([]string, len(header))
	for j, h := range header {
		names[j] = strings.TrimSpace(h)
	}

	na := opt.NAValues
	if na == nil {
		na = DefaultNAValues
	}
	naSet := make(map[string]struct{}, len(na))
	for _, tok := range na {
		naSet[tok] = struct{}{}
	}

	cols := make([][]any, len(names))
	line := 1
	for rows := 0; opt.MaxRows <= 0 || rows < opt.MaxRows; rows++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "read row %d: %v", line, err)
		}
		line++
		if len(rec) > len(names) {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "row %d has %d fields, header has %d", line, len(rec), len(names))
		}
		for j := range names {
			var cell any
			if j < len(rec) {
				cell = parseCell(rec[j], naSet, opt.ParseDates)
			}
			cols[j] = append(cols[j], cell)
		}
	}
	return NewFrame(names, cols)
}

func parseCell(raw string, na map[string]struct{}, parseDates bool) any {
	s := strings.TrimSpace(raw)
	if _, missing := na[s]; missing {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	switch s {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if parseDates {
		if t, ok := parseTimeMaybe(s); ok {
			return t
		}
	}
	return raw
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
