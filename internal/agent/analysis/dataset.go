package analysis

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Dataset is the read-only tabular dataset the analysis pipeline operates
// on. It is loaded once at startup and shared by concurrent requests; the
// pipeline never mutates it.
type Dataset struct {
	path    string
	columns []string
	types   []string
	rows    [][]string
}

// missing values that are skipped when sampling and inferring types.
var missingValues = map[string]bool{
	"": true, "na": true, "nan": true, "null": true, "none": true,
}

// LoadDataset reads a CSV file with a header row.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s has no header row", path)
	}

	d := &Dataset{
		path:    path,
		columns: records[0],
		rows:    records[1:],
	}
	d.types = make([]string, len(d.columns))
	for i := range d.columns {
		d.types[i] = d.inferType(i)
	}
	return d, nil
}

// Path returns the file the dataset was loaded from.
func (d *Dataset) Path() string { return d.path }

// Columns returns the ordered column names.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Shape returns row and column counts, header excluded.
func (d *Dataset) Shape() (rows, cols int) {
	return len(d.rows), len(d.columns)
}

// ColumnTypes renders "name: type" lines in column order.
func (d *Dataset) ColumnTypes() string {
	lines := make([]string, len(d.columns))
	for i, c := range d.columns {
		lines[i] = fmt.Sprintf("%s: %s", c, d.types[i])
	}
	return strings.Join(lines, "\n")
}

// SampleValues renders up to limit distinct non-missing values per column,
// one line per column, in column order.
func (d *Dataset) SampleValues(limit int) string {
	lines := make([]string, len(d.columns))
	for i, c := range d.columns {
		lines[i] = fmt.Sprintf("%s: [%s]", c, strings.Join(d.distinct(i, limit), ", "))
	}
	return strings.Join(lines, "\n")
}

func (d *Dataset) distinct(col, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range d.rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if missingValues[strings.ToLower(v)] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (d *Dataset) inferType(col int) string {
	sawValue := false
	isInt, isFloat := true, true
	for _, row := range d.rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if missingValues[strings.ToLower(v)] {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if !isInt && !isFloat {
			break
		}
	}
	switch {
	case !sawValue:
		return "str"
	case isInt:
		return "int"
	case isFloat:
		return "float"
	default:
		return "str"
	}
}
