// Reading and alert payload types shared across the pipeline.
package telemetry

import "time"

// Status classifies a reading against the fixed operating bands.
type Status string

// Motor status values.
const (
	StatusNormal      Status = "normal"
	StatusWarning     Status = "warning"
	StatusCritical    Status = "critical"
	StatusMaintenance Status = "maintenance"
)

// Reading is one persisted sensor snapshot for a machine.
//
// ID is assigned by the store at insert time and is never client-supplied.
// Every optional sensor is a pointer: nil means the sensor group is not
// fitted on that machine, never a zero standing in for "unknown".
type Reading struct {
	ID          int64     `json:"id"`
	MachineID   string    `json:"machineId"`
	Speed       int       `json:"speed"` // RPM
	Temperature int       `json:"temperature"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`

	// Vibration (mm/s RMS per axis).
	VibrationX *float64 `json:"vibrationX,omitempty"`
	VibrationY *float64 `json:"vibrationY,omitempty"`
	VibrationZ *float64 `json:"vibrationZ,omitempty"`

	// Hydraulics.
	OilPressure       *float64 `json:"oilPressure,omitempty"`
	AirPressure       *float64 `json:"airPressure,omitempty"`
	HydraulicPressure *float64 `json:"hydraulicPressure,omitempty"`
	CoolantFlowRate   *float64 `json:"coolantFlowRate,omitempty"`
	FuelFlowRate      *float64 `json:"fuelFlowRate,omitempty"`

	// Electrical.
	Voltage     *float64 `json:"voltage,omitempty"`
	Current     *float64 `json:"current,omitempty"`
	PowerFactor *float64 `json:"powerFactor,omitempty"`
	PowerOutput *float64 `json:"powerOutput,omitempty"` // kW

	Torque     *float64 `json:"torque,omitempty"` // Nm
	Efficiency *float64 `json:"efficiency,omitempty"`

	// Environmental.
	Humidity           *float64 `json:"humidity,omitempty"`
	AmbientTemperature *float64 `json:"ambientTemperature,omitempty"`
	AmbientPressure    *float64 `json:"ambientPressure,omitempty"`

	// Position / strain.
	ShaftPosition *float64 `json:"shaftPosition,omitempty"` // degrees
	Displacement  *float64 `json:"displacement,omitempty"`  // mm
	StrainGauge1  *float64 `json:"strainGauge1,omitempty"`
	StrainGauge2  *float64 `json:"strainGauge2,omitempty"`
	StrainGauge3  *float64 `json:"strainGauge3,omitempty"`

	SoundLevel *float64 `json:"soundLevel,omitempty"` // dB

	// Wear accumulators surfaced as health figures.
	BearingHealth  *float64 `json:"bearingHealth,omitempty"`
	OilDegradation *float64 `json:"oilDegradation,omitempty"`

	// Cumulative operating time as a normalized triple.
	OperatingHours   *int `json:"operatingHours,omitempty"`
	OperatingMinutes *int `json:"operatingMinutes,omitempty"`
	OperatingSeconds *int `json:"operatingSeconds,omitempty"`

	MaintenanceStatus *int `json:"maintenanceStatus,omitempty"`
	SystemHealth      *int `json:"systemHealth,omitempty"`
}

// Alert severity values.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a derived signal broadcast next to readings. The pipeline
// treats it as a pass-through payload.
type Alert struct {
	ID           string    `json:"id"`
	MachineID    string    `json:"machineId"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	Timestamp    time.Time `json:"timestamp"`
}

// MotorState is the coordinator's carry-over between samples. It is
// persisted transactionally with each reading so a restart resumes the
// accumulators instead of silently resetting them.
type MotorState struct {
	OperatingSecs  float64 `json:"operatingSecs"`
	BearingWear    float64 `json:"bearingWear"`    // 0..100
	OilDegradation float64 `json:"oilDegradation"` // 0..100
	Speed          float64 `json:"speed"`
	Temperature    float64 `json:"temperature"`
	LoadPhase      float64 `json:"loadPhase"`
}

func ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
