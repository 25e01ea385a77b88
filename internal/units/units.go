// Package units provides shared constants and validation for distance units
package units

// Unit constants
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, CM, MM}

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
	return "m, cm, mm"
}

// ConvertDistance converts a distance from metres to the target units
// The processing core and the database work in metres
func ConvertDistance(distanceM float64, targetUnits string) float64 {
	switch targetUnits {
	case CM:
		return distanceM * 100.0
	case MM:
		return distanceM * 1000.0
	case M:
		return distanceM // no conversion needed
	default:
		return distanceM // default to metres if unknown unit
	}
}
