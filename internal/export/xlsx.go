package export

import (
	"io"
	"unicode/utf8"

	contextutils "corpsite/internal/utils"

	"github.com/xuri/excelize/v2"
)

const (
	headerFill    = "#CCCCCC"
	minColWidth   = 8
	maxColWidth   = 60
	defaultSheet  = "Sheet1"
	colWidthExtra = 2
)

// WriteXLSX writes a single-sheet workbook with a bold, grey-filled header row
// and columns sized to their content.
func WriteXLSX(w io.Writer, t Table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to close workbook: %v", cerr)
		}
	}()

	sheet := t.Sheet
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to name sheet: %v", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to create header style: %v", err)
	}

	widths := make([]int, len(t.Header))
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
		widths[i] = displayWidth(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write header: %v", err)
	}
	if len(t.Header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to address header: %v", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to style header: %v", err)
		}
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to address row %d: %v", i+2, err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write row %d: %v", i+2, err)
		}
		for col, v := range row {
			if col < len(widths) {
				widths[col] = max(widths[col], displayWidth(cellString(v)))
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to convert column number: %v", err)
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(max(width+colWidthExtra, minColWidth), maxColWidth))); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to set column width: %v", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrExportFailed, "failed to write workbook: %v", err)
	}
	return nil
}

// displayWidth approximates the rendered width of s, counting wide runes twice
func displayWidth(s string) int {
	width := 0
	for _, r := range s {
		if utf8.RuneLen(r) > 2 {
			width += 2
		} else {
			width++
		}
	}
	return width
}
