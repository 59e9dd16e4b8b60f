package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultWorkdayHours is the reference day length used for remaining-hours display.
var DefaultWorkdayHours = decimal.NewFromInt(8)

var (
	msPerMinute = decimal.NewFromInt(int64(time.Minute / time.Millisecond))
	msPerHour   = decimal.NewFromInt(int64(time.Hour / time.Millisecond))
)

// ComputeWorkedHours returns the hours worked on the entry as of now, counting
// only break and unavailable intervals that have already been closed.
// A submitted entry returns its stored total.
func ComputeWorkedHours(e TimeEntry, now time.Time) decimal.Decimal {
	return workedHours(e, now, false)
}

// ComputeLiveWorkedHours is ComputeWorkedHours for status display: an
// in-progress break or unavailable interval is excluded as well.
func ComputeLiveWorkedHours(e TimeEntry, now time.Time) decimal.Decimal {
	return workedHours(e, now, true)
}

func workedHours(e TimeEntry, now time.Time, live bool) decimal.Decimal {
	if !e.IsOpen() {
		return e.HoursWorked
	}

	breakMinutes := clampZero(e.TotalBreakMinutes.Sub(e.SessionBreakBase))
	unavailableMinutes := clampZero(e.TotalUnavailableMinutes.Sub(e.SessionUnavailableBase))
	if live {
		if e.Status == StatusOnBreak && e.LastBreakStart != nil {
			breakMinutes = breakMinutes.Add(DurationMinutesSince(*e.LastBreakStart, now))
		}
		if e.Status == StatusUnavailable && e.LastUnavailableStart != nil {
			unavailableMinutes = unavailableMinutes.Add(DurationMinutesSince(*e.LastUnavailableStart, now))
		}
	}

	elapsedMs := decimal.NewFromInt(now.Sub(e.StartTime).Milliseconds())
	effectiveMs := clampZero(elapsedMs.Sub(breakMinutes.Add(unavailableMinutes).Mul(msPerMinute)))

	banked := clampZero(e.HoursWorked)
	return banked.Add(effectiveMs.Div(msPerHour)).Round(2)
}

// ComputeRemainingHours returns how much of the workday is left, never below zero.
func ComputeRemainingHours(e TimeEntry, now time.Time, workdayHours decimal.Decimal) decimal.Decimal {
	return clampZero(workdayHours.Sub(ComputeLiveWorkedHours(e, now))).Round(2)
}

// DurationMinutesSince returns the minutes between ts and now, rounded to two
// decimals. Clock skew that puts ts after now yields zero.
func DurationMinutesSince(ts, now time.Time) decimal.Decimal {
	ms := decimal.NewFromInt(now.Sub(ts).Milliseconds())
	return clampZero(ms.Div(msPerMinute)).Round(2)
}

// WorkDate returns the calendar day of now in loc, as midnight UTC.
func WorkDate(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
