package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/platform/calendar"
)

// Weekdays y times se guardan como texto separado por comas
// ("MONDAY,FRIDAY", "07:00,19:00") para no depender de arrays.

func encodeWeekdays(in []time.Weekday) string {
	parts := make([]string, 0, len(in))
	for _, w := range in {
		parts = append(parts, strings.ToUpper(w.String()))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []time.Weekday
	for _, p := range strings.Split(s, ",") {
		w, ok := doses.ParseWeekday(p)
		if !ok {
			return nil, fmt.Errorf("invalid stored weekday %q", p)
		}
		out = append(out, w)
	}
	return out, nil
}

func encodeTimes(in []calendar.TimeOfDay) string {
	parts := make([]string, 0, len(in))
	for _, t := range in {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ",")
}

func decodeTimes(s string) ([]calendar.TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []calendar.TimeOfDay
	for _, p := range strings.Split(s, ",") {
		t, err := calendar.ParseTimeOfDay(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func encodeDate(d *calendar.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decodeDate(nt sql.NullTime) *calendar.Date {
	if !nt.Valid {
		return nil
	}
	d := calendar.DateOf(nt.Time.UTC())
	return &d
}
