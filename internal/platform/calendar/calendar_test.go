package calendar

import (
	"testing"
	"time"
)

func TestDate_EndAndAddDays_AcrossMonth(t *testing.T) {
	d := Date{Year: 2024, Month: time.January, Day: 31}

	next := d.AddDays(1)
	if next != (Date{Year: 2024, Month: time.February, Day: 1}) {
		t.Fatalf("unexpected next day: %s", next)
	}

	end := d.End(time.UTC)
	if end.Day() != 31 || end.Hour() != 23 || end.Minute() != 59 {
		t.Fatalf("unexpected end of day: %s", end)
	}
	if !end.Before(next.Start(time.UTC)) {
		t.Fatalf("end of day must be before next day start")
	}
}

func TestDate_WeekdayAndOrdering(t *testing.T) {
	mon := Date{Year: 2024, Month: time.January, Day: 1}
	if mon.Weekday() != time.Monday {
		t.Fatalf("2024-01-01 should be Monday, got %s", mon.Weekday())
	}
	if !mon.Before(mon.AddDays(1)) || mon.After(mon) {
		t.Fatalf("unexpected ordering")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay(" 07:30 ")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if tod.String() != "07:30" || tod.Minutes() != 450 {
		t.Fatalf("unexpected time of day: %s (%d)", tod, tod.Minutes())
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Fatalf("expected error for invalid hour")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d.String() != "2024-03-05" {
		t.Fatalf("unexpected date: %s", d)
	}
	if _, err := ParseDate("05/03/2024"); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}
