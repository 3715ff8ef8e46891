package domain

// Severity is a coarse, user-facing magnitude class.
type Severity string

const (
	SeverityMinor       Severity = "minor"
	SeverityMinimalRisk Severity = "minimal risk"
	SeverityAlert       Severity = "alert"
)

// DepthBand groups hypocentre depth for map styling.
type DepthBand string

const (
	DepthShallow      DepthBand = "shallow"
	DepthIntermediate DepthBand = "intermediate"
	DepthDeep         DepthBand = "deep"
	DepthVeryDeep     DepthBand = "very deep"
)

// Classify maps a magnitude to a severity label:
//   - ≤2.5 minor (usually not felt)
//   - ≤5.4 minimal risk (felt, minor damage)
//   - otherwise alert
func Classify(magnitude float64) Severity {
	switch {
	case magnitude <= 2.5:
		return SeverityMinor
	case magnitude <= 5.4:
		return SeverityMinimalRisk
	default:
		return SeverityAlert
	}
}

// DepthBandFor maps a depth in kilometres to its band.
func DepthBandFor(depthKm float64) DepthBand {
	switch {
	case depthKm <= 20:
		return DepthShallow
	case depthKm <= 40:
		return DepthIntermediate
	case depthKm <= 70:
		return DepthDeep
	default:
		return DepthVeryDeep
	}
}
