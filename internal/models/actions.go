package models

import (
	"fmt"
	"strings"
)

// BulkActionKind discriminates BulkAction
type BulkActionKind int

// Bulk action kinds
const (
	BulkDelete BulkActionKind = iota + 1
	BulkSetStatus
)

const bulkStatusPrefix = "status_"

// BulkAction is either a delete or a status write applied to many feedback ids.
// Status is set only for BulkSetStatus.
type BulkAction struct {
	Kind   BulkActionKind
	Status FeedbackStatus
}

// ParseBulkAction parses "delete" or "status_<value>"
func ParseBulkAction(raw string) (BulkAction, error) {
	if raw == "delete" {
		return BulkAction{Kind: BulkDelete}, nil
	}
	if rest, ok := strings.CutPrefix(raw, bulkStatusPrefix); ok {
		status, err := ParseFeedbackStatus(rest)
		if err != nil {
			return BulkAction{}, err
		}
		return BulkAction{Kind: BulkSetStatus, Status: status}, nil
	}
	return BulkAction{}, fmt.Errorf("unknown bulk action %q", raw)
}

// String renders the action in its wire form
func (a BulkAction) String() string {
	switch a.Kind {
	case BulkDelete:
		return "delete"
	case BulkSetStatus:
		return bulkStatusPrefix + string(a.Status)
	}
	return ""
}

// ScheduleAction is an operation on a report schedule
type ScheduleAction string

// Schedule actions
const (
	ScheduleCreate ScheduleAction = "create"
	ScheduleToggle ScheduleAction = "toggle"
	ScheduleDelete ScheduleAction = "delete"
)

// ParseScheduleAction validates a raw schedule action
func ParseScheduleAction(raw string) (ScheduleAction, error) {
	switch a := ScheduleAction(raw); a {
	case ScheduleCreate, ScheduleToggle, ScheduleDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown schedule action %q", raw)
}

// AdminAction is an operation on an admin account
type AdminAction string

// AdminToggle flips an account between active and inactive
const AdminToggle AdminAction = "toggle"

// ParseAdminAction validates a raw admin action
func ParseAdminAction(raw string) (AdminAction, error) {
	if a := AdminAction(raw); a == AdminToggle {
		return a, nil
	}
	return "", fmt.Errorf("unknown admin action %q", raw)
}
