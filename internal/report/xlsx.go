package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-validator/internal/model"
)

// Row is one processed file in a batch.
type Row struct {
	File   string
	RunID  string
	Result *model.ValidationResult
	Cost   float64
	Err    error
}

// Header is the batch report column order.
var Header = []string{
	"File", "Run ID", "Status", "Needs Review", "Review Reasons",
	"Name", "Phone", "ZIP", "Confidence", "Cost (USD)", "Error",
}

// Values renders a row in Header order. Failed files carry only the file,
// run ID and error.
func (r Row) Values() []string {
	vals := make([]string, len(Header))
	vals[0] = r.File
	vals[1] = r.RunID
	if r.Err != nil {
		vals[2] = "error"
		vals[10] = r.Err.Error()
		return vals
	}
	if r.Result == nil {
		return vals
	}
	res := r.Result
	vals[2] = string(res.Status)
	vals[3] = yesNo(res.NeedsManualReview)
	vals[4] = strings.Join(res.ManualReviewReasons, "; ")
	vals[5] = res.FullName()
	vals[6] = res.PhoneNumber
	vals[7] = res.Zip
	return vals
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteXLSX writes the batch report to path with one row per file.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range Header {
		hdr.AddCell().SetString(h)
	}

	for _, r := range rows {
		xr := sheet.AddRow()
		vals := r.Values()
		for i, v := range vals {
			c := xr.AddCell()
			switch {
			case i == 8 && r.Result != nil && r.Err == nil:
				c.SetFloat(r.Result.ConfidenceScore)
			case i == 9 && r.Err == nil:
				c.SetFloat(r.Cost)
			default:
				c.SetString(v)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

// Summary counts batch outcomes.
type Summary struct {
	Total     int     `json:"total"`
	Approved  int     `json:"approved"`
	Rejected  int     `json:"rejected"`
	Review    int     `json:"needs_review"`
	Flagged   int     `json:"flagged_for_manual_review"`
	Failed    int     `json:"failed"`
	TotalCost float64 `json:"total_cost_usd"`
}

// Summarize tallies rows by classification and failure.
func Summarize(rows []Row) Summary {
	var s Summary
	for _, r := range rows {
		s.Total++
		s.TotalCost += r.Cost
		if r.Err != nil || r.Result == nil {
			s.Failed++
			continue
		}
		switch r.Result.Status {
		case model.ClassificationApproved:
			s.Approved++
		case model.ClassificationRejected:
			s.Rejected++
		default:
			s.Review++
		}
		if r.Result.NeedsManualReview {
			s.Flagged++
		}
	}
	return s
}
