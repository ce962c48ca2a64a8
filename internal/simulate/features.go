package simulate

import (
	"strconv"
	"strings"

	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/scoring"
)

// Features builds the scoring request for row: every column except the
// label and timestamp columns.
func Features(schema dataset.Schema, row dataset.Row) scoring.Features {
	cols := row.Columns()
	f := make(scoring.Features, len(cols))
	for _, col := range cols {
		if col == schema.LabelColumn || col == schema.TimestampColumn {
			continue
		}
		f[col] = row.Value(col)
	}
	return f
}

// Telemetry picks the whitelisted sensor columns. Absent cells become "".
func Telemetry(schema dataset.Schema, row dataset.Row) map[string]any {
	t := make(map[string]any, len(schema.TelemetryColumns))
	for _, col := range schema.TelemetryColumns {
		v := row.Value(col)
		if v.IsAbsent() {
			t[col] = ""
			continue
		}
		t[col] = v
	}
	return t
}

// eventID is the row's integer id, or count when the id is missing, zero or
// not an integer.
func eventID(schema dataset.Schema, row dataset.Row, count int) int64 {
	raw, ok := schema.ID(row)
	if !ok {
		return int64(count)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return int64(count)
	}
	return id
}
