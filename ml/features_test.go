package ml

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(TimeLayout, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return parsed
}

func TestPeriodDay(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"2017-01-01 05:00:00", PeriodMorning},
		{"2017-01-01 11:59:00", PeriodMorning},
		{"2017-01-01 12:00:00", PeriodAfternoon},
		{"2017-01-01 18:59:00", PeriodAfternoon},
		{"2017-01-01 19:00:00", PeriodNight},
		{"2017-01-01 23:59:00", PeriodNight},
		{"2017-01-01 00:00:00", PeriodNight},
		{"2017-01-01 04:59:00", PeriodNight},
	}
	for _, tc := range cases {
		if got := PeriodDay(mustTime(t, tc.value)); got != tc.want {
			t.Errorf("PeriodDay(%s) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestHighSeason(t *testing.T) {
	cases := []struct {
		value string
		want  int
	}{
		{"2017-12-15 10:00:00", 1},
		{"2017-12-31 23:00:00", 1},
		{"2017-12-14 10:00:00", 0},
		{"2017-01-01 00:30:00", 1},
		{"2017-03-03 12:00:00", 1},
		{"2017-03-04 12:00:00", 0},
		{"2017-07-15 08:00:00", 1},
		{"2017-07-31 08:00:00", 1},
		{"2017-07-14 08:00:00", 0},
		{"2017-09-11 08:00:00", 1},
		{"2017-09-30 08:00:00", 1},
		{"2017-10-01 08:00:00", 0},
		{"2018-02-10 08:00:00", 1}, // year-qualified, not tied to 2017
	}
	for _, tc := range cases {
		if got := HighSeason(mustTime(t, tc.value)); got != tc.want {
			t.Errorf("HighSeason(%s) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestMinDiffAndDelayLabel(t *testing.T) {
	rec := FlightRecord{
		Airline:       "Grupo LATAM",
		FlightType:    "N",
		Month:         3,
		ScheduledTime: "2017-03-01 10:00:00",
		ActualTime:    "2017-03-01 10:30:00",
	}
	diff, err := MinDiff(rec)
	if err != nil {
		t.Fatalf("MinDiff: %v", err)
	}
	if diff != 30 {
		t.Errorf("MinDiff = %v, want 30", diff)
	}
	label, err := DelayLabel(rec)
	if err != nil {
		t.Fatalf("DelayLabel: %v", err)
	}
	if label != 1 {
		t.Errorf("DelayLabel = %d, want 1", label)
	}

	rec.ActualTime = "2017-03-01 10:15:00"
	label, err = DelayLabel(rec)
	if err != nil {
		t.Fatalf("DelayLabel: %v", err)
	}
	if label != 0 {
		t.Errorf("exactly 15 minutes late should be on time, got %d", label)
	}
}

func TestDelayLabelMalformedDatetime(t *testing.T) {
	rec := FlightRecord{
		Airline:       "Grupo LATAM",
		FlightType:    "N",
		Month:         3,
		ScheduledTime: "not-a-date",
		ActualTime:    "2017-03-01 10:30:00",
	}
	_, err := DelayLabel(rec)
	var formatErr *DataFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected DataFormatError, got %v", err)
	}
	if formatErr.Field != "scheduled_datetime" {
		t.Errorf("unexpected field: %s", formatErr.Field)
	}

	rec.ScheduledTime = "2017-03-01 10:00:00"
	rec.ActualTime = ""
	if _, err := DelayLabel(rec); !errors.As(err, &formatErr) {
		t.Fatalf("missing actual datetime must not be defaulted on the label path, got %v", err)
	}
}

func TestEngineerDefaultTimestamp(t *testing.T) {
	engineered, err := Engineer(FlightRecord{Airline: "Grupo LATAM", FlightType: "N", Month: 3})
	if err != nil {
		t.Fatalf("Engineer with missing datetime: %v", err)
	}
	// DefaultScheduled is 2017-01-01 12:00:00: afternoon, high season.
	if engineered.PeriodDay != PeriodAfternoon {
		t.Errorf("PeriodDay = %s, want %s", engineered.PeriodDay, PeriodAfternoon)
	}
	if engineered.HighSeason != 1 {
		t.Errorf("HighSeason = %d, want 1", engineered.HighSeason)
	}
}

func TestEngineerMalformedDatetime(t *testing.T) {
	_, err := Engineer(FlightRecord{Airline: "X", FlightType: "N", Month: 1, ScheduledTime: "2017/01/01"})
	var formatErr *DataFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected DataFormatError, got %v", err)
	}
}
