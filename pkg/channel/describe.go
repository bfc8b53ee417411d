package channel

// forcePerUnit approximates the FSR pressure-to-force conversion. The real
// relationship is non-linear and sensor specific; this linear factor is good
// enough for the qualitative grip readout.
const forcePerUnit = 0.01

// ForceNewtons estimates the contact force for a calibrated pressure value.
func ForceNewtons(pressure float64) float64 {
	return pressure * forcePerUnit
}

// PressurePercent expresses a calibrated pressure value as a percentage of
// the channel range maximum.
func PressurePercent(pressure, rangeMax float64) float64 {
	if rangeMax == 0 {
		return 0
	}
	return pressure / rangeMax * 100
}

// PositionDescription maps a calibrated flex value (0 = fully extended,
// 1 = fully bent) to a human-readable band.
func PositionDescription(value float64) string {
	switch {
	case value < 0.2:
		return "fully extended"
	case value < 0.4:
		return "slightly bent"
	case value < 0.6:
		return "moderately bent"
	case value < 0.8:
		return "mostly closed"
	default:
		return "fully closed"
	}
}
