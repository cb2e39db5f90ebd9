package occurrences

import (
	"math"
	"sort"
	"time"

	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/platform/calendar"
)

// Expand devuelve, en orden ascendente, los instantes en los que d debería
// tomarse dentro de [from, to]. Las fechas de calendario se evalúan en la
// location de from.
func Expand(d *doses.Dose, from, to time.Time) []time.Time {
	if d == nil || to.Before(from) {
		return nil
	}
	loc := from.Location()
	to = to.In(loc)

	lo, hi := from, to
	if d.StartDate != nil {
		if s := d.StartDate.Start(loc); s.After(lo) {
			lo = s
		}
	}
	if d.EndDate != nil {
		if e := d.EndDate.End(loc); e.Before(hi) {
			hi = e
		}
	}
	if hi.Before(lo) {
		return nil
	}

	times := d.Times
	if len(times) == 0 {
		times = DefaultTimes(d.Frequency)
	} else {
		times = sortedTimes(times)
	}

	var out []time.Time
	last := calendar.DateOf(hi)
	for day := calendar.DateOf(lo); !day.After(last); day = day.AddDays(1) {
		if !d.ActiveOn(day.Weekday()) {
			continue
		}
		for _, tod := range times {
			at := day.At(tod.Hour, tod.Minute, loc)
			if at.Before(lo) || at.After(hi) {
				continue
			}
			out = append(out, at)
		}
	}
	return out
}

// DefaultTimes es la tabla de horarios cuando la dosis no trae Times.
// Para más de 6 tomas se reparten entre las 06:00 y las 22:00.
func DefaultTimes(frequency int) []calendar.TimeOfDay {
	f := frequency
	if f < doses.MinFrequency {
		f = doses.MinFrequency
	}
	if f > doses.MaxFrequency {
		f = doses.MaxFrequency
	}

	var hours []int
	switch f {
	case 1:
		hours = []int{9}
	case 2:
		hours = []int{9, 21}
	case 3:
		hours = []int{8, 14, 20}
	case 4:
		hours = []int{8, 12, 16, 20}
	case 5:
		hours = []int{7, 11, 15, 19, 22}
	case 6:
		hours = []int{6, 10, 14, 18, 21, 23}
	default:
		seen := map[int]struct{}{}
		for i := 0; i < f; i++ {
			h := int(math.Floor(6 + float64(i)*16/float64(f-1) + 0.5))
			if h < 0 {
				h = 0
			}
			if h > 23 {
				h = 23
			}
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			hours = append(hours, h)
		}
		sort.Ints(hours)
	}

	out := make([]calendar.TimeOfDay, 0, len(hours))
	for _, h := range hours {
		out = append(out, calendar.TimeOfDay{Hour: h})
	}
	return out
}

func sortedTimes(in []calendar.TimeOfDay) []calendar.TimeOfDay {
	seen := map[int]struct{}{}
	out := make([]calendar.TimeOfDay, 0, len(in))
	for _, t := range in {
		if _, ok := seen[t.Minutes()]; ok {
			continue
		}
		seen[t.Minutes()] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes() < out[j].Minutes() })
	return out
}
