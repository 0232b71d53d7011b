package services

import (
	"fmt"
	"time"

	"corpsite/internal/models"
	contextutils "corpsite/internal/utils"
)

// Period is the inclusive range of calendar days a report covers.
// First and Last are local midnights in the site timezone.
type Period struct {
	Type  models.ReportType
	First time.Time
	Last  time.Time
}

// ISOWeek is one ISO-8601 week intersecting a period
type ISOWeek struct {
	Label string
	Year  int
	Week  int
}

// PeriodFor returns the days covered by a report of type t anchored at anchor.
// Daily covers the anchor day, weekly the seven days ending on the anchor,
// monthly the anchor's calendar month.
func PeriodFor(t models.ReportType, anchor time.Time) (Period, error) {
	day := contextutils.StartOfDay(anchor)
	switch t {
	case models.ReportDaily:
		return Period{Type: t, First: day, Last: day}, nil
	case models.ReportWeekly:
		return Period{Type: t, First: day.AddDate(0, 0, -6), Last: day}, nil
	case models.ReportMonthly:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Period{Type: t, First: first, Last: first.AddDate(0, 1, -1)}, nil
	}
	return Period{}, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report type %q", t)
}

// Bounds returns the half-open instant range [from, until) of the period
func (p Period) Bounds() (from, until time.Time) {
	return p.First, p.Last.AddDate(0, 0, 1)
}

// Days lists every calendar day of the period in ascending order
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.First; !d.After(p.Last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ISOWeeks lists the ISO weeks overlapping the period in ascending order
func (p Period) ISOWeeks() []ISOWeek {
	var weeks []ISOWeek
	seen := map[string]bool{}
	for _, d := range p.Days() {
		year, week := d.ISOWeek()
		label := ISOWeekLabel(d)
		if seen[label] {
			continue
		}
		seen[label] = true
		weeks = append(weeks, ISOWeek{Label: label, Year: year, Week: week})
	}
	return weeks
}

// ISOWeekLabel formats the ISO week containing t as YYYY-Www
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ISOWeekday returns 1 for Monday through 7 for Sunday
func ISOWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

// IsScheduleDue reports whether a schedule of type t fires on day today.
// Daily always fires, weekly on Mondays, monthly on the first of the month.
func IsScheduleDue(t models.ReportType, today time.Time) bool {
	switch t {
	case models.ReportDaily:
		return true
	case models.ReportWeekly:
		return ISOWeekday(today) == 1
	case models.ReportMonthly:
		return today.Day() == 1
	}
	return false
}

// ScheduleAnchor returns the report date a schedule of type t mails on day today:
// today for daily and weekly (the week ending today) and the first of the
// previous month for monthly. Reports are stored under this date.
func ScheduleAnchor(t models.ReportType, today time.Time) (time.Time, error) {
	day := contextutils.StartOfDay(today)
	switch t {
	case models.ReportDaily, models.ReportWeekly:
		return day, nil
	case models.ReportMonthly:
		firstOfMonth := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return firstOfMonth.AddDate(0, -1, 0), nil
	}
	return time.Time{}, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report type %q", t)
}
