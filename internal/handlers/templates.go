package handlers

import (
	"embed"
	"html/template"
	"time"
	"unicode/utf8"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	pageTimeLayout = "2006/01/02 15:04"
	excerptRunes   = 50
)

// LoadTemplates parses the embedded admin pages. Timestamps render in loc.
func LoadTemplates(loc *time.Location) (*template.Template, error) {
	if loc == nil {
		loc = time.UTC
	}
	funcs := template.FuncMap{
		"localTime": func(t time.Time) string { return t.In(loc).Format(pageTimeLayout) },
		"excerpt":   excerpt,
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
	}
	return template.New("admin").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptRunes {
		return s
	}
	return string([]rune(s)[:excerptRunes]) + "..."
}
