package notify

import (
	"context"
	"time"
)

type Rule string

const (
	RuleDoseDue             Rule = "DOSE_DUE"
	RuleDoseConfirmRequired Rule = "DOSE_CONFIRM_REQUIRED"
	RuleDoseMissed          Rule = "DOSE_MISSED"
	RuleDoseTaken           Rule = "DOSE_TAKEN"

	RuleDispenserLow    Rule = "DISPENSER_LOW"
	RuleDispenserEmpty  Rule = "DISPENSER_EMPTY"
	RuleDispenseFailed  Rule = "DISPENSE_FAILED"
	RuleDispenserLoaded Rule = "DISPENSE_SUCCESS"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeveritySuccess  Severity = "SUCCESS"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// Notification es lo que el motor pide emitir. Key + Cooldown definen la
// deduplicación: otra emisión con la misma (UserID, Key) dentro del cooldown se descarta.
type Notification struct {
	Rule     Rule
	UserID   string
	Key      string
	Severity Severity
	Title    string
	Message  string
	Cooldown time.Duration
}

// Sink es fire-and-forget: no debe bloquear al llamador.
type Sink interface {
	Emit(ctx context.Context, n Notification) error
}
