// Package report reads batch manifests and writes batch results as XLSX,
// JSON or YAML.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ManifestEntry is one recording listed in a batch manifest.
type ManifestEntry struct {
	Ref string // path or URL of the recording
	Row int    // 1-based row in the manifest, header included
}

// refColumns are the header names accepted for the recording column.
var refColumns = []string{"recording", "ref", "file", "url", "path"}

// IsManifest reports whether path looks like a manifest rather than a
// recording or directory.
func IsManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// ReadManifest reads recording references from an XLSX or CSV manifest. The
// first row is a header; the recording column is found by name, falling back
// to the first column. Blank rows are skipped.
func ReadManifest(path string) ([]ManifestEntry, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, eris.Errorf("report: unsupported manifest type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return entriesFromRows(rows)
}

func entriesFromRows(rows [][]string) ([]ManifestEntry, error) {
	if len(rows) == 0 {
		return nil, eris.New("report: manifest is empty")
	}

	col := refColumn(rows[0])
	var out []ManifestEntry
	for i, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		ref := strings.TrimSpace(row[col])
		if ref == "" {
			continue
		}
		out = append(out, ManifestEntry{Ref: ref, Row: i + 2})
	}
	return out, nil
}

func refColumn(header []string) int {
	for _, name := range refColumns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return 0
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open xlsx manifest")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("report: xlsx manifest has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open csv manifest")
	}
	defer f.Close() //nolint:errcheck
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "report: read csv manifest")
	}
	return rows, nil
}
