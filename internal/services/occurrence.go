// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence date
// advancement. Each frequency has its own strategy that computes the
// occurrence following the current one, anchored on the template's
// original start date.

package services

import (
	"fmt"

	"finanzas/internal/core"
)

// OccurrenceAdvancer is the strategy interface for stepping a recurring
// template forward in time. start is the template's own date (the first
// occurrence) and current the occurrence being advanced from.
type OccurrenceAdvancer interface {
	Next(start, current core.Date) core.Date
}

// DailyAdvancer implements OccurrenceAdvancer for daily templates.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(_, current core.Date) core.Date {
	return current.AddDays(1)
}

// WeeklyAdvancer implements OccurrenceAdvancer for weekly templates.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(_, current core.Date) core.Date {
	return current.AddDays(7)
}

// BiweeklyAdvancer implements OccurrenceAdvancer for biweekly templates.
// Biweekly here means the quincena: a fixed fifteen-day step, not two
// calendar weeks.
type BiweeklyAdvancer struct{}

func (BiweeklyAdvancer) Next(_, current core.Date) core.Date {
	return current.AddDays(15)
}

// MonthlyAdvancer implements OccurrenceAdvancer for monthly templates.
//
// The target day is always re-derived from the start date and clamped to
// the length of the target month, so a template anchored on the 31st
// lands on Feb 28 (29 in leap years) and returns to the 31st in March
// instead of drifting to the 28th forever.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(start, current core.Date) core.Date {
	return clampedDate(current.Year(), current.Month()+1, start.Day())
}

// YearlyAdvancer implements OccurrenceAdvancer for yearly templates.
// A Feb 29 anchor lands on Feb 28 in non-leap years and back on Feb 29
// when the leap day exists again.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(start, current core.Date) core.Date {
	return clampedDate(current.Year()+1, start.Month(), start.Day())
}

// clampedDate builds a date with the day clamped to the target month's
// length. Month overflow normalizes (13 becomes January next year).
func clampedDate(year, month, day int) core.Date {
	// day 0 of the following month is the last day of this one
	last := core.NewDate(year, month+1, 0).Day()
	if day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// occurrenceStrategies maps frequencies to their advancers. The registry
// enables O(1) lookup and easy extension for new frequency types.
var occurrenceStrategies = map[core.Frequency]OccurrenceAdvancer{
	core.Daily:    DailyAdvancer{},
	core.Weekly:   WeeklyAdvancer{},
	core.Biweekly: BiweeklyAdvancer{},
	core.Monthly:  MonthlyAdvancer{},
	core.Yearly:   YearlyAdvancer{},
}

// GetOccurrenceAdvancer returns the advancer for a frequency, or an
// error for unrecognized values.
func GetOccurrenceAdvancer(frequency core.Frequency) (OccurrenceAdvancer, error) {
	advancer, ok := occurrenceStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return advancer, nil
}

// RegisterOccurrenceAdvancer registers a custom advancer for a new
// frequency type without modifying the existing strategies.
func RegisterOccurrenceAdvancer(frequency core.Frequency, advancer OccurrenceAdvancer) {
	occurrenceStrategies[frequency] = advancer
}
