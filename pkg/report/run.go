// Package report renders the outcome of reserving a batch of ranges as a
// terminal table, JSON, YAML or an HTML chart page.
package report

import (
	"github.com/Sumatoshi-tech/rangekeeper/pkg/ledger"
)

// Status of one candidate range.
type Status string

// Row statuses.
const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusInvalid  Status = "invalid"
)

// Blocker identifies the stored range that caused a rejection.
type Blocker struct {
	Label  string  `json:"label,omitempty"  yaml:"label,omitempty"`
	Start  float64 `json:"start"            yaml:"start"`
	End    float64 `json:"end"              yaml:"end"`
	Source string  `json:"source,omitempty" yaml:"source,omitempty"`
	Line   int     `json:"line,omitempty"   yaml:"line,omitempty"`
}

// Row is one candidate range and what happened to it.
type Row struct {
	Source    string   `json:"source,omitempty"     yaml:"source,omitempty"`
	Line      int      `json:"line,omitempty"       yaml:"line,omitempty"`
	Label     string   `json:"label,omitempty"      yaml:"label,omitempty"`
	Start     float64  `json:"start"                yaml:"start"`
	End       float64  `json:"end"                  yaml:"end"`
	Status    Status   `json:"status"               yaml:"status"`
	BlockedBy *Blocker `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	Error     string   `json:"error,omitempty"      yaml:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Accepted int `json:"accepted" yaml:"accepted"`
	Rejected int `json:"rejected" yaml:"rejected"`
	Invalid  int `json:"invalid"  yaml:"invalid"`

	// Covered is the total length of accepted ranges.
	Covered float64 `json:"covered" yaml:"covered"`
}

// Run collects rows in submission order.
type Run struct {
	Rows    []Row   `json:"rows"    yaml:"rows"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Record adds the outcome of a ledger reservation.
func (run *Run) Record(out ledger.Outcome) {
	booking := out.Range.Payload()
	row := Row{
		Source: booking.Source,
		Line:   booking.Line,
		Label:  booking.Label,
		Start:  out.Range.Start(),
		End:    out.Range.End(),
		Status: StatusAccepted,
	}

	if out.Accepted {
		run.Summary.Accepted++
		run.Summary.Covered += out.Range.Duration()
	} else {
		row.Status = StatusRejected
		run.Summary.Rejected++

		if out.BlockedBy != nil {
			blocker := out.BlockedBy.Payload()
			row.BlockedBy = &Blocker{
				Label:  blocker.Label,
				Start:  out.BlockedBy.Start(),
				End:    out.BlockedBy.End(),
				Source: blocker.Source,
				Line:   blocker.Line,
			}
		}
	}

	run.Rows = append(run.Rows, row)
}

// RecordInvalid adds a candidate the ledger refused to consider.
func (run *Run) RecordInvalid(booking ledger.Booking, start, end float64, err error) {
	run.Summary.Invalid++
	run.Rows = append(run.Rows, Row{
		Source: booking.Source,
		Line:   booking.Line,
		Label:  booking.Label,
		Start:  start,
		End:    end,
		Status: StatusInvalid,
		Error:  err.Error(),
	})
}

// Clean reports whether every candidate was accepted.
func (run *Run) Clean() bool {
	return run.Summary.Rejected == 0 && run.Summary.Invalid == 0
}
