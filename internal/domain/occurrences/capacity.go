package occurrences

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-schedule/internal/platform/calendar"
)

// Candidate es una ocurrencia propuesta que todavía no existe.
type Candidate struct {
	DoseID string
	At     time.Time
	Date   calendar.Date
}

// RejectedItem identifica una toma que no entró en el cupo del día.
type RejectedItem struct {
	DoseID string
	At     time.Time
}

// DayOverflow agrupa los rechazos de una fecha.
type DayOverflow struct {
	Date calendar.Date
	// Existing es el conteo del día cuando se produjo el primer rechazo.
	Existing  int
	Attempted int
	Items     []RejectedItem
}

// CapacityError se devuelve cuando un lote supera el cupo diario.
// errors.Is(err, ErrCapacityExceeded) es true.
type CapacityError struct {
	Max       int
	Days      []DayOverflow
	Truncated bool
}

func (e *CapacityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: max %d per day", ErrCapacityExceeded, e.Max)
	for _, d := range e.Days {
		fmt.Fprintf(&b, "; %s existing=%d attempted=%d", d.Date, d.Existing, d.Attempted)
		for _, it := range d.Items {
			fmt.Fprintf(&b, " [%s %s]", it.DoseID, it.At.Format("15:04"))
		}
	}
	if e.Truncated {
		b.WriteString("; ...")
	}
	return b.String()
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// CheckCapacity recorre proposed en orden estable (hora, dosis) sumando sobre
// baseline. Devuelve *CapacityError si algún día supera max; en ese caso el
// lote completo debe descartarse.
func CheckCapacity(baseline map[calendar.Date]int, proposed []Candidate, max int) error {
	items := make([]Candidate, len(proposed))
	copy(items, proposed)
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].At.Equal(items[j].At) {
			return items[i].At.Before(items[j].At)
		}
		return items[i].DoseID < items[j].DoseID
	})

	counts := make(map[calendar.Date]int, len(baseline))
	for d, n := range baseline {
		counts[d] = n
	}

	byDate := map[calendar.Date]*DayOverflow{}
	reported := 0
	truncated := false

	for _, c := range items {
		cur := counts[c.Date]
		if cur < max {
			counts[c.Date] = cur + 1
			continue
		}

		ov, ok := byDate[c.Date]
		if !ok {
			ov = &DayOverflow{Date: c.Date, Existing: cur}
			byDate[c.Date] = ov
		}
		ov.Attempted++
		if reported < MaxReportedItems {
			ov.Items = append(ov.Items, RejectedItem{DoseID: c.DoseID, At: c.At})
			reported++
		} else {
			truncated = true
		}
	}

	if len(byDate) == 0 {
		return nil
	}

	days := make([]DayOverflow, 0, len(byDate))
	for _, ov := range byDate {
		days = append(days, *ov)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	return &CapacityError{Max: max, Days: days, Truncated: truncated}
}

func countByDate(items []Occurrence, loc *time.Location) map[calendar.Date]int {
	out := map[calendar.Date]int{}
	for _, o := range items {
		out[calendar.DateOf(o.ScheduledAt.In(loc))]++
	}
	return out
}
