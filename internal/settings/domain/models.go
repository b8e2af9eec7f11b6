package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Setting is one key/value configuration row.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

const (
	KeyReconcileEnabled = "reconcile.enabled"
	KeyReconcileRunAt   = "reconcile.run_at"
)

// DefaultRunAt is the fallback schedule when reconcile.run_at is missing or
// malformed.
var DefaultRunAt = TimeOfDay{Hour: 2}

var ErrInvalidTimeOfDay = errors.New("invalid_time_of_day")

// TimeOfDay is a wall-clock HH:MM schedule point.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Next returns the first occurrence of this time of day strictly after now.
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Schedule is the reconciliation schedule read once per scheduler cycle.
type Schedule struct {
	Enabled bool
	RunAt   TimeOfDay
}
