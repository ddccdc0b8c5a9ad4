package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates throughout the engine.
const DateLayout = "2006-01-02"

// DateRange is a half-open interval [CheckIn, CheckOut) at day granularity.
// Time-of-day is discarded on construction; CheckOut must be after CheckIn.
type DateRange struct {
	CheckIn  time.Time `bson:"check_in" json:"checkIn"`
	CheckOut time.Time `bson:"check_out" json:"checkOut"`
}

// Midnight truncates t to midnight UTC. The instant is converted to UTC
// first, so a wall-clock time near a local date boundary lands on the UTC
// calendar day the engine keys everything on.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDateRange builds a DateRange from two timestamps, discarding time-of-day.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: Midnight(checkIn), CheckOut: Midnight(checkOut)}
	if !r.CheckOut.After(r.CheckIn) {
		return DateRange{}, fmt.Errorf("check-out (%s) must be after check-in (%s)",
			r.CheckOut.Format(DateLayout), r.CheckIn.Format(DateLayout))
	}
	return r, nil
}

// ParseDateRange builds a DateRange from "YYYY-MM-DD" strings.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := time.ParseInLocation(DateLayout, checkIn, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid check-in date %q: %w", checkIn, err)
	}
	out, err := time.ParseInLocation(DateLayout, checkOut, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid check-out date %q: %w", checkOut, err)
	}
	return NewDateRange(in, out)
}

// Nights returns the number of nights covered by the range.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Dates returns every night of the range as "YYYY-MM-DD" strings,
// check-out day excluded.
func (r DateRange) Dates() []string {
	dates := make([]string, 0, r.Nights())
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// Overlaps reports whether two ranges share at least one night.
// Half-open semantics: back-to-back stays do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// Contains reports whether the given night falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	day = Midnight(day)
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}

// Shift returns a copy of the range moved forward by the given number of days.
func (r DateRange) Shift(days int) DateRange {
	return DateRange{
		CheckIn:  r.CheckIn.AddDate(0, 0, days),
		CheckOut: r.CheckOut.AddDate(0, 0, days),
	}
}

// StartingAt returns a range of the same length whose check-in is the given day.
func (r DateRange) StartingAt(day time.Time) DateRange {
	day = Midnight(day)
	return DateRange{CheckIn: day, CheckOut: day.AddDate(0, 0, r.Nights())}
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.CheckIn.Format(DateLayout), r.CheckOut.Format(DateLayout))
}
