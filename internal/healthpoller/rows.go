package healthpoller

// PlaceholderCheck names the single row shown when a report has no checks.
// It is a display default, not a real check.
const PlaceholderCheck = "db"

// CheckRow is one rendered line of the checks table.
type CheckRow struct {
	Name string
	OK   bool
	// DurationMs is nil when no finite timing was reported.
	DurationMs *float64
	// ErrorText is nil when no error was reported.
	ErrorText *string
}

// Rows derives the table rows for r: one per check key in received order,
// or the placeholder row when there are none.
func Rows(r Report) []CheckRow {
	checks := r.Checks
	if len(checks) == 0 {
		checks = []Check{{Name: PlaceholderCheck}}
	}

	rows := make([]CheckRow, 0, len(checks))
	for _, c := range checks {
		row := CheckRow{Name: c.Name, OK: c.OK()}
		if ms, ok := r.Timing(c.Name); ok {
			row.DurationMs = &ms
		}
		if text, ok := r.Error(c.Name); ok {
			row.ErrorText = &text
		}
		rows = append(rows, row)
	}
	return rows
}

// StatusText is the pill text for the row.
func (c CheckRow) StatusText() string {
	if c.OK {
		return "OK"
	}
	return "Fail"
}

// TimingText renders the duration or the placeholder dash.
func (c CheckRow) TimingText() string {
	if c.DurationMs == nil {
		return Placeholder
	}
	return formatNumber(*c.DurationMs) + " ms"
}

// ErrorDisplay renders the error or the placeholder dash.
func (c CheckRow) ErrorDisplay() string {
	if c.ErrorText == nil {
		return Placeholder
	}
	return *c.ErrorText
}
