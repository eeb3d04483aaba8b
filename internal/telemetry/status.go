package telemetry

// Operating band thresholds.
const (
	CriticalTempC = 85
	WarningTempC  = 70

	serviceLimit = 95.0 // wear/oil points that force a maintenance status
)

// Classify maps synthesized values onto a status. Precedence is
// critical > maintenance > warning > normal; maintenance is driven by the
// accumulators, not by temperature.
func Classify(tempC int, bearingWear, oilDegradation float64) Status {
	switch {
	case tempC >= CriticalTempC:
		return StatusCritical
	case bearingWear >= serviceLimit || oilDegradation >= serviceLimit:
		return StatusMaintenance
	case tempC >= WarningTempC:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// maintenanceCode condenses the accumulators into a coarse 0-3 code.
func maintenanceCode(bearingWear, oilDegradation float64) int {
	worst := bearingWear
	if oilDegradation > worst {
		worst = oilDegradation
	}
	switch {
	case worst >= serviceLimit:
		return 3
	case worst >= 70:
		return 2
	case worst >= 40:
		return 1
	default:
		return 0
	}
}

// systemHealth is a 0-100 composite used by dashboards.
func systemHealth(status Status, efficiency float64) int {
	h := int(efficiency)
	switch status {
	case StatusCritical:
		h -= 40
	case StatusMaintenance:
		h -= 25
	case StatusWarning:
		h -= 10
	}
	if h < 0 {
		h = 0
	}
	return h
}
