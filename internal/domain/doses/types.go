package doses

import "strings"

type QuantityUnit string

const (
	UnitPill       QuantityUnit = "PILL"
	UnitCapsule    QuantityUnit = "CAPSULE"
	UnitTablet     QuantityUnit = "TABLET"
	UnitML         QuantityUnit = "ML"
	UnitTablespoon QuantityUnit = "TABLESPOON"
	UnitTeaspoon   QuantityUnit = "TEASPOON"
	UnitDrop       QuantityUnit = "DROP"
	UnitPatch      QuantityUnit = "PATCH"
	UnitPuff       QuantityUnit = "PUFF"
)

func ParseQuantityUnit(s string) (QuantityUnit, bool) {
	u := QuantityUnit(strings.ToUpper(strings.TrimSpace(s)))
	switch u {
	case UnitPill, UnitCapsule, UnitTablet, UnitML, UnitTablespoon,
		UnitTeaspoon, UnitDrop, UnitPatch, UnitPuff:
		return u, true
	default:
		return "", false
	}
}

const (
	MinFrequency       = 1
	MaxFrequency       = 24
	MaxInstructionsLen = 500
)
