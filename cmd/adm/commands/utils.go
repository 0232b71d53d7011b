package commands

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	contextutils "corpsite/internal/utils"

	"golang.org/x/term"
)

const timeLayout = "2006-01-02 15:04"

// PasswordReader reads a secret after printing prompt
type PasswordReader func(prompt string) (string, error)

// TerminalPasswordReader reads a password from the terminal without echo
func TerminalPasswordReader(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read password: %v", err)
	}
	return string(b), nil
}

// maskDatabaseURL masks sensitive parts of the database URL for display
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			return "postgres://***:***@" + parts[1]
		}
	}
	return url
}

func nullString(s sql.NullString) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return "-"
}

func nullTime(t sql.NullTime, loc *time.Location) string {
	if !t.Valid {
		return "-"
	}
	return t.Time.In(loc).Format(timeLayout)
}
