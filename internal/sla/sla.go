// Package sla computes deadlines, overdue state and reminder thresholds for an
// assigned workflow step. Nothing here reads the clock; callers pass now.
package sla

import (
	"time"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// Reminder is the reminder band a step is in.
type Reminder string

const (
	ReminderNone Reminder = "none"
	ReminderAt50 Reminder = "at50"
	ReminderAt80 Reminder = "at80"
)

// AssignedStep is a step handed to a role, owned by the caller.
type AssignedStep struct {
	AssignedAt     time.Time     `json:"assignedAt"`
	TimeLimitHours int           `json:"timeLimitHours"`
	Status         models.Status `json:"status"`
}

// Status summarizes a step's position against its deadline.
type Status struct {
	Deadline  time.Time `json:"deadline"`
	Overdue   bool      `json:"overdue"`
	HoursOver float64   `json:"hoursOver"`
	Elapsed   float64   `json:"elapsedRatio"`
	Reminder  Reminder  `json:"reminder"`
}

func window(timeLimitHours int) time.Duration {
	return time.Duration(timeLimitHours) * time.Hour
}

// Deadline returns assignedAt plus the time limit. A non-positive limit has no
// deadline and returns the zero time.
func Deadline(assignedAt time.Time, timeLimitHours int) time.Time {
	if timeLimitHours <= 0 {
		return time.Time{}
	}
	return assignedAt.Add(window(timeLimitHours))
}

// Overdue reports whether now is strictly past the deadline and by how many
// hours. Exactly at the deadline is not overdue.
func Overdue(assignedAt time.Time, timeLimitHours int, now time.Time) (bool, float64) {
	if timeLimitHours <= 0 {
		return false, 0
	}
	deadline := Deadline(assignedAt, timeLimitHours)
	if !now.After(deadline) {
		return false, 0
	}
	return true, now.Sub(deadline).Hours()
}

// ElapsedRatio returns the fraction of the window used so far. It is 0 before
// assignment and exceeds 1 once overdue.
func ElapsedRatio(assignedAt time.Time, timeLimitHours int, now time.Time) float64 {
	if timeLimitHours <= 0 || !now.After(assignedAt) {
		return 0
	}
	return float64(now.Sub(assignedAt)) / float64(window(timeLimitHours))
}

// ReminderThreshold flags when 50% or 80% of the window has elapsed.
func ReminderThreshold(assignedAt time.Time, timeLimitHours int, now time.Time) Reminder {
	r := ElapsedRatio(assignedAt, timeLimitHours, now)
	switch {
	case r >= 0.8:
		return ReminderAt80
	case r >= 0.5:
		return ReminderAt50
	default:
		return ReminderNone
	}
}

// Check evaluates step at now.
func Check(step AssignedStep, now time.Time) Status {
	overdue, over := Overdue(step.AssignedAt, step.TimeLimitHours, now)
	return Status{
		Deadline:  Deadline(step.AssignedAt, step.TimeLimitHours),
		Overdue:   overdue,
		HoursOver: over,
		Elapsed:   ElapsedRatio(step.AssignedAt, step.TimeLimitHours, now),
		Reminder:  ReminderThreshold(step.AssignedAt, step.TimeLimitHours, now),
	}
}
