// Package export renders feedback lists and stored reports as CSV or XLSX downloads.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"corpsite/internal/models"
	contextutils "corpsite/internal/utils"
)

// Format is a download file format
type Format string

// Supported formats. "excel" is the query value used by the admin console.
const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

const (
	ContentTypeCSV  = "text/csv; charset=UTF-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	timestampLayout = "2006-01-02 15:04:05"
	filenameLayout  = "20060102_150405"
)

// FeedbackHeader is the first row of a feedback export
var FeedbackHeader = []string{"ID", "日時", "タイプ", "名前", "メール", "電話番号", "内容", "ステータス", "対応履歴", "メモ履歴"}

// ReportHeader is the first row of a report export
var ReportHeader = []string{"区分", "項目", "件数", "対応済み"}

// ParseFormat validates a format query value. The empty string selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatExcel, "xlsx":
		return FormatExcel, nil
	}
	return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown export format %q", raw)
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return "csv"
}

// ContentType returns the response MIME type
func (f Format) ContentType() string {
	if f == FormatExcel {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Filename builds "<prefix>_YYYYMMDD_HHMMSS.<ext>" from the local time now
func Filename(prefix string, now time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format(filenameLayout), f.Extension())
}

// Table is a sheet of rows under a header
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]interface{}
}

// Write renders t in format f
func Write(w io.Writer, f Format, t Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatExcel:
		return WriteXLSX(w, t)
	}
	return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown export format %q", f)
}

// FeedbackTable lays out feedback rows, newest first as given. Timestamps are
// rendered in loc and history columns list the most recent entry first.
func FeedbackTable(items []models.Feedback, loc *time.Location) Table {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]interface{}, 0, len(items))
	for _, f := range items {
		statuses := make([]string, 0, len(f.History))
		notes := make([]string, 0, len(f.History))
		for _, h := range f.History {
			statuses = append(statuses, string(h.Status))
			notes = append(notes, h.Notes)
		}
		rows = append(rows, []interface{}{
			f.ID,
			f.CreatedAt.In(loc).Format(timestampLayout),
			f.Type,
			textCell(f.Name.String),
			textCell(f.Email.String),
			textCell(f.Phone.String),
			textCell(f.Content),
			string(f.Status),
			strings.Join(statuses, ","),
			textCell(strings.Join(notes, ",")),
		})
	}
	return Table{Sheet: "Feedback", Header: FeedbackHeader, Rows: rows}
}

// textCell keeps free text from being read as a formula when the file is
// opened in a spreadsheet
func textCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// ReportTable flattens a stored report into summary, breakdown and trend rows
func ReportTable(r *models.Report) Table {
	d := r.Data
	summary := "概要"
	rows := [][]interface{}{
		{summary, "レポート種別", r.Type.Label(), ""},
		{summary, "対象日", r.Date, ""},
		{summary, "期間", d.PeriodStart + " - " + d.PeriodEnd, ""},
		{summary, "総フィードバック数", d.TotalFeedback, d.ResolvedCount},
		{summary, "未対応", d.PendingCount, ""},
		{summary, "対応中", d.InProgressCount, ""},
		{summary, "対応済み", d.CompletedCount, ""},
		{summary, "タイプ数", d.TypeCount, ""},
		{summary, "平均対応時間", averageHours(d.ResponseTime.AvgResponseTime), ""},
	}
	for _, b := range d.TypeBreakdown {
		rows = append(rows, []interface{}{"タイプ別集計", b.Type, b.Count, b.ResolvedCount})
	}
	for _, t := range d.DailyTrends {
		rows = append(rows, []interface{}{"日次トレンド", t.Date, t.TotalFeedback, t.ResolvedCount})
	}
	for _, t := range d.WeeklyTrends {
		rows = append(rows, []interface{}{"週次トレンド", t.Week, t.TotalFeedback, t.ResolvedCount})
	}
	return Table{Sheet: r.Type.Label() + "レポート", Header: ReportHeader, Rows: rows}
}

func averageHours(v *float64) string {
	if v == nil {
		return "0.0時間"
	}
	return fmt.Sprintf("%.1f時間", *v)
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
