package ml

import "time"

// TimeLayout is the datetime format used by flight records.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultScheduled is substituted on the inference path when a record
// carries no scheduled datetime. It is never used for label derivation.
const DefaultScheduled = "2017-01-01 12:00:00"

// DelayThresholdMinutes separates on-time from delayed departures.
const DelayThresholdMinutes = 15.0

const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodNight     = "night"
)

// FlightRecord is one flight submitted for training or prediction.
// ScheduledTime and ActualTime use TimeLayout; ActualTime only exists
// on training data.
type FlightRecord struct {
	Airline       string
	FlightType    string
	Month         int
	ScheduledTime string
	ActualTime    string
}

// Engineered holds the signals derived from a single record.
type Engineered struct {
	PeriodDay  string
	HighSeason int
}

// PeriodDay buckets a time of day into morning (05:00-11:59),
// afternoon (12:00-18:59) or night (19:00-04:59).
func PeriodDay(t time.Time) string {
	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes >= 5*60 && minutes < 12*60:
		return PeriodMorning
	case minutes >= 12*60 && minutes < 19*60:
		return PeriodAfternoon
	default:
		return PeriodNight
	}
}

// HighSeason reports whether the scheduled date falls inside one of the
// elevated-demand windows: Dec 15-31, Jan 1-Mar 3, Jul 15-31, Sep 11-30.
// Windows are anchored to the record's own year.
func HighSeason(t time.Time) int {
	year := t.Year()
	windows := [4][2]time.Time{
		{date(year, time.December, 15), date(year, time.December, 31)},
		{date(year, time.January, 1), date(year, time.March, 3)},
		{date(year, time.July, 15), date(year, time.July, 31)},
		{date(year, time.September, 11), date(year, time.September, 30)},
	}
	day := date(year, t.Month(), t.Day())
	for _, w := range windows {
		if !day.Before(w[0]) && !day.After(w[1]) {
			return 1
		}
	}
	return 0
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// MinDiff returns the minutes between actual and scheduled departure.
// Both datetimes must be present and well formed.
func MinDiff(rec FlightRecord) (float64, error) {
	scheduled, err := parseTime("scheduled_datetime", rec.ScheduledTime)
	if err != nil {
		return 0, err
	}
	actual, err := parseTime("actual_datetime", rec.ActualTime)
	if err != nil {
		return 0, err
	}
	return actual.Sub(scheduled).Minutes(), nil
}

// DelayLabel derives the binary training target: 1 when the flight left
// more than DelayThresholdMinutes late.
func DelayLabel(rec FlightRecord) (int, error) {
	diff, err := MinDiff(rec)
	if err != nil {
		return 0, err
	}
	if diff > DelayThresholdMinutes {
		return 1, nil
	}
	return 0, nil
}

// Engineer derives the time-based signals for one record. A missing
// scheduled datetime falls back to DefaultScheduled; a malformed one is
// a DataFormatError.
func Engineer(rec FlightRecord) (Engineered, error) {
	raw := rec.ScheduledTime
	if raw == "" {
		raw = DefaultScheduled
	}
	scheduled, err := parseTime("scheduled_datetime", raw)
	if err != nil {
		return Engineered{}, err
	}
	return Engineered{
		PeriodDay:  PeriodDay(scheduled),
		HighSeason: HighSeason(scheduled),
	}, nil
}

func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &DataFormatError{Field: field, Value: value}
	}
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, &DataFormatError{Field: field, Value: value}
	}
	return t, nil
}
