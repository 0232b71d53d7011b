package main

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"corpsite/internal/database"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"gopkg.in/yaml.v3"
)

const fixtureTimeLayout = "2006-01-02 15:04"

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the seed data loaded into a fresh test database
type Fixtures struct {
	Admins    []AdminFixture    `yaml:"admins"`
	Feedback  []FeedbackFixture `yaml:"feedback"`
	Schedules []ScheduleFixture `yaml:"schedules"`
}

// AdminFixture creates an admin account through the admin service
type AdminFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Status   string `yaml:"status"`
}

// FeedbackFixture is a feedback row with its status history, oldest entry first
type FeedbackFixture struct {
	Type      string           `yaml:"type"`
	Content   string           `yaml:"content"`
	Name      string           `yaml:"name"`
	Email     string           `yaml:"email"`
	Phone     string           `yaml:"phone"`
	CreatedAt string           `yaml:"created_at"`
	History   []HistoryFixture `yaml:"history"`
}

// HistoryFixture is one status change made by the admin with the given email
type HistoryFixture struct {
	Status string `yaml:"status"`
	Notes  string `yaml:"notes"`
	Admin  string `yaml:"admin"`
	At     string `yaml:"at"`
}

// ScheduleFixture is a report schedule. Active defaults to true.
type ScheduleFixture struct {
	Type      string `yaml:"type"`
	Email     string `yaml:"email"`
	Active    *bool  `yaml:"active"`
	CreatedBy string `yaml:"created_by"`
}

// ParseFixtures decodes fixture YAML
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "failed to parse fixtures: %v", err)
	}
	return &f, nil
}

// Loader writes fixtures into the database
type Loader struct {
	db        *sql.DB
	admins    serviceinterfaces.AdminServiceInterface
	schedules serviceinterfaces.ScheduleServiceInterface
	loc       *time.Location
	logger    *observability.Logger

	adminIDs map[string]int
}

// NewLoader creates a Loader. Fixture timestamps are read in loc.
func NewLoader(db *sql.DB, admins serviceinterfaces.AdminServiceInterface, schedules serviceinterfaces.ScheduleServiceInterface, loc *time.Location, logger *observability.Logger) *Loader {
	return &Loader{
		db:        db,
		admins:    admins,
		schedules: schedules,
		loc:       loc,
		logger:    logger,
		adminIDs:  make(map[string]int),
	}
}

// Reset empties every application table. Roles are seed data and stay.
func (l *Loader) Reset(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `TRUNCATE report_schedules, reports, feedback_history, feedback, admin_login_history, admins RESTART IDENTITY CASCADE`)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to truncate tables: %v", err)
	}
	return nil
}

// Load writes admins first so feedback history and schedules can reference them
func (l *Loader) Load(ctx context.Context, f *Fixtures) error {
	for _, a := range f.Admins {
		if err := l.loadAdmin(ctx, a); err != nil {
			return err
		}
	}
	for i, fb := range f.Feedback {
		if err := l.loadFeedback(ctx, fb); err != nil {
			return contextutils.WrapErrorf(err, "feedback fixture %d", i)
		}
	}
	for _, s := range f.Schedules {
		if err := l.loadSchedule(ctx, s); err != nil {
			return err
		}
	}
	l.logger.Info(ctx, "Fixtures loaded", map[string]interface{}{
		"admins":    len(f.Admins),
		"feedback":  len(f.Feedback),
		"schedules": len(f.Schedules),
	})
	return nil
}

func (l *Loader) loadAdmin(ctx context.Context, a AdminFixture) error {
	admin, err := l.admins.CreateAdmin(ctx, a.Name, a.Email, a.Password, a.Role)
	if err != nil {
		return contextutils.WrapErrorf(err, "admin fixture %s", a.Email)
	}
	l.adminIDs[a.Email] = admin.ID

	if a.Status != "" && a.Status != string(models.AdminActive) {
		if _, err := l.db.ExecContext(ctx, `UPDATE admins SET status = $1 WHERE id = $2`, a.Status, admin.ID); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to set status of %s: %v", a.Email, err)
		}
	}
	return nil
}

func (l *Loader) loadFeedback(ctx context.Context, fb FeedbackFixture) error {
	created, err := l.parseTime(fb.CreatedAt)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		status := models.StatusPending
		updated := created
		if n := len(fb.History); n > 0 {
			status = models.FeedbackStatus(fb.History[n-1].Status)
			if updated, err = l.parseTime(fb.History[n-1].At); err != nil {
				return err
			}
		}

		var id int
		err := tx.QueryRowContext(ctx,
			`INSERT INTO feedback (type, content, name, email, phone, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			fb.Type, fb.Content, nullable(fb.Name), nullable(fb.Email), nullable(fb.Phone), string(status), created, updated,
		).Scan(&id)
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert feedback: %v", err)
		}

		for _, h := range fb.History {
			at, err := l.parseTime(h.At)
			if err != nil {
				return err
			}
			var adminID interface{}
			if aid, ok := l.adminIDs[h.Admin]; ok {
				adminID = aid
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO feedback_history (feedback_id, status, notes, admin_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
				id, h.Status, h.Notes, adminID, at,
			); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert feedback history: %v", err)
			}
		}
		return nil
	})
}

func (l *Loader) loadSchedule(ctx context.Context, s ScheduleFixture) error {
	reportType, err := models.ParseReportType(s.Type)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "schedule fixture %s: %v", s.Email, err)
	}
	sch, err := l.schedules.CreateSchedule(ctx, reportType, s.Email, l.adminIDs[s.CreatedBy])
	if err != nil {
		return contextutils.WrapErrorf(err, "schedule fixture %s", s.Email)
	}
	if s.Active != nil && !*s.Active {
		if _, err := l.schedules.ToggleSchedule(ctx, sch.ID); err != nil {
			return contextutils.WrapErrorf(err, "schedule fixture %s", s.Email)
		}
	}
	return nil
}

func (l *Loader) parseTime(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(fixtureTimeLayout, raw, l.loc)
	if err != nil {
		return time.Time{}, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid fixture time %q", raw)
	}
	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
