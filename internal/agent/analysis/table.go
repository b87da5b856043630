package analysis

import (
	"strings"

	"github.com/docuchat/server/internal/agent/model"
)

// ParseTable attempts to read captured output as a whitespace-delimited
// table: a header line followed by data lines with a matching field count.
// Data lines may carry one extra leading field, the way pandas prints an
// unnamed index column.
func ParseTable(output string) (*model.Table, bool) {
	var lines []string
	for _, l := range strings.Split(output, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil, false
	}

	header := strings.Fields(lines[0])
	if len(header) < 2 {
		return nil, false
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		fields := strings.Fields(l)
		switch len(fields) {
		case len(header):
			rows = append(rows, fields)
		case len(header) + 1:
			rows = append(rows, fields[1:])
		default:
			return nil, false
		}
	}

	return &model.Table{Columns: header, Rows: rows}, true
}
