package occurrences

import "strings"

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusDue       Status = "DUE"
	StatusTaken     Status = "TAKEN"
	StatusMissed    Status = "MISSED"
)

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusScheduled, StatusDue, StatusTaken, StatusMissed:
		return st, true
	default:
		return "", false
	}
}

// Terminal: TAKEN y MISSED no vuelven atrás por el flujo automático.
func (s Status) Terminal() bool {
	return s == StatusTaken || s == StatusMissed
}

const (
	// MaxPerDay es el cupo del dispensador por usuario y día de calendario.
	MaxPerDay = 7
	// MaxReportedItems acota el reporte de violaciones de cupo.
	MaxReportedItems = 25
	// MaxNoteLen igual que instructions en doses.
	MaxNoteLen = 500
)
