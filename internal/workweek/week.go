// Package workweek projects a professional's working periods onto the seven
// rows of the weekly availability editor and plans the backend calls needed
// to save an edited week.
package workweek

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/managerapp/internal/backend"
)

const timeLayout = "15:04"

var (
	// ErrInvalidWindow indicates an enabled day whose start is not before its end.
	ErrInvalidWindow = errors.New("workweek: start must be before end")
	// ErrInvalidTime indicates a value that is not HH:MM.
	ErrInvalidTime = errors.New("workweek: invalid time")
	// ErrUnknownDay indicates a day name that does not match any row.
	ErrUnknownDay = errors.New("workweek: unknown day")
)

// Day is one row of the weekly editor.
type Day struct {
	Key             string       `json:"key"`
	Label           string       `json:"label"`
	Weekday         time.Weekday `json:"-"`
	Enabled         bool         `json:"enabled"`
	StartTime       string       `json:"startTime"`
	EndTime         string       `json:"endTime"`
	WorkingPeriodID int64        `json:"workingPeriodId,omitempty"`
}

// Week holds the rows Monday through Sunday.
type Week [7]Day

// Default returns the week shown before anything is loaded: every day
// disabled, weekdays 09:00-18:00 and weekends 09:00-13:00.
func Default() Week {
	return Week{
		{Key: "MONDAY", Label: "Seg", Weekday: time.Monday, StartTime: "09:00", EndTime: "18:00"},
		{Key: "TUESDAY", Label: "Ter", Weekday: time.Tuesday, StartTime: "09:00", EndTime: "18:00"},
		{Key: "WEDNESDAY", Label: "Qua", Weekday: time.Wednesday, StartTime: "09:00", EndTime: "18:00"},
		{Key: "THURSDAY", Label: "Qui", Weekday: time.Thursday, StartTime: "09:00", EndTime: "18:00"},
		{Key: "FRIDAY", Label: "Sex", Weekday: time.Friday, StartTime: "09:00", EndTime: "18:00"},
		{Key: "SATURDAY", Label: "Sáb", Weekday: time.Saturday, StartTime: "09:00", EndTime: "13:00"},
		{Key: "SUNDAY", Label: "Dom", Weekday: time.Sunday, StartTime: "09:00", EndTime: "13:00"},
	}
}

// NormalizeTime trims seconds from backend times ("09:00:00" -> "09:00").
func NormalizeTime(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 5 {
		return value[:5]
	}
	return value
}

// Project maps backend periods onto the default week. Days without a period
// stay disabled with their default hours.
func Project(periods []backend.WorkingPeriod) Week {
	week := Default()
	for i := range week {
		day := &week[i]
		for _, period := range periods {
			if !strings.EqualFold(period.DayOfWeek, day.Key) {
				continue
			}
			day.Enabled = period.Active == nil || *period.Active
			day.WorkingPeriodID = period.ID
			if start := NormalizeTime(period.StartTime); start != "" {
				day.StartTime = start
			}
			if end := NormalizeTime(period.EndTime); end != "" {
				day.EndTime = end
			}
			break
		}
	}
	return week
}

// Lookup resolves a day by key ("MONDAY"), English or Portuguese abbreviation
// ("mon", "seg") or its label.
func Lookup(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, day := range Default() {
		switch name {
		case strings.ToLower(day.Key), strings.ToLower(day.Key[:3]), strings.ToLower(day.Label):
			return i, nil
		}
		if name == "sab" && day.Weekday == time.Saturday {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDay, name)
}

// SetEnabled toggles a day by name.
func (w *Week) SetEnabled(name string, enabled bool) error {
	i, err := Lookup(name)
	if err != nil {
		return err
	}
	w[i].Enabled = enabled
	return nil
}

// SetHours sets the start and end of a day. Values must be HH:MM.
func (w *Week) SetHours(name, start, end string) error {
	i, err := Lookup(name)
	if err != nil {
		return err
	}
	for _, value := range []string{start, end} {
		if _, err := time.Parse(timeLayout, value); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
	}
	w[i].StartTime = start
	w[i].EndTime = end
	return nil
}

// DayError reports the first enabled day with an invalid window.
type DayError struct {
	Day Day
}

func (e *DayError) Error() string {
	return fmt.Sprintf("Verifique os horários de %s: o início deve ser menor que o fim.", e.Day.Label)
}

func (e *DayError) Unwrap() error { return ErrInvalidWindow }

// Validate checks that every enabled day starts before it ends.
func (w Week) Validate() error {
	for _, day := range w {
		if day.Enabled && day.StartTime >= day.EndTime {
			return &DayError{Day: day}
		}
	}
	return nil
}

// Update is a pending change to an existing working period.
type Update struct {
	ID      int64
	Payload backend.WorkingPeriodUpdate
}

// Plan lists the backend calls needed to persist a week.
type Plan struct {
	Creates []backend.WorkingPeriodCreate
	Updates []Update
	Deletes []int64
}

// Empty reports whether the plan has no calls.
func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Plan diffs the week against its backing periods: enabled days without a
// period are created, enabled days with one are updated, and disabled days
// with one are deleted.
func (w Week) Plan() Plan {
	var plan Plan
	for _, day := range w {
		switch {
		case day.Enabled && day.WorkingPeriodID == 0:
			plan.Creates = append(plan.Creates, backend.WorkingPeriodCreate{
				DayOfWeek: day.Key,
				StartTime: day.StartTime,
				EndTime:   day.EndTime,
			})
		case day.Enabled:
			plan.Updates = append(plan.Updates, Update{
				ID:      day.WorkingPeriodID,
				Payload: backend.WorkingPeriodUpdate{StartTime: day.StartTime, EndTime: day.EndTime},
			})
		case day.WorkingPeriodID != 0:
			plan.Deletes = append(plan.Deletes, day.WorkingPeriodID)
		}
	}
	return plan
}
