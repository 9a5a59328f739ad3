// Package units provides shared constants and validation for glucose units
package units

// Unit constants
const (
	MMOLL = "mmoll"
	MGDL  = "mgdl"
)

// MgDlPerMmolL is the conversion factor between the two glucose scales.
const MgDlPerMmolL = 18.0182

// ValidUnits contains all valid unit values
var ValidUnits = []string{MMOLL, MGDL}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mmoll, mgdl"
}

// ConvertGlucose converts a glucose reading from mmol/L to the target units
// Internal series store glucose in mmol/L
func ConvertGlucose(mmol float64, targetUnits string) float64 {
	switch targetUnits {
	case MGDL:
		return mmol * MgDlPerMmolL // mmol/L to mg/dL
	case MMOLL:
		return mmol // no conversion needed
	default:
		return mmol // default to mmol/L if unknown unit
	}
}

// ToMmolL converts a reading in the given units back to mmol/L.
func ToMmolL(value float64, sourceUnits string) float64 {
	switch sourceUnits {
	case MGDL:
		return value / MgDlPerMmolL
	default:
		return value
	}
}
