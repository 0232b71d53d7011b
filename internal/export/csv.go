package export

import (
	"encoding/csv"
	"io"

	contextutils "corpsite/internal/utils"
)

// utf8BOM lets spreadsheet applications detect the encoding
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a UTF-8 BOM followed by the header and rows
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write csv: %v", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write csv header: %v", err)
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, cellString(cell))
		}
		if err := cw.Write(record); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write csv row: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to flush csv: %v", err)
	}
	return nil
}
