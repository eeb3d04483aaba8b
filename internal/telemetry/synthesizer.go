package telemetry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Operating envelope and thermal model constants.
const (
	AmbientTempC = 22.0

	idleRPM  = 600.0
	ratedRPM = 2400.0
	maxRPM   = 3000.0

	// Speed derates once the motor runs hotter than this.
	derateTempC     = 75.0
	derateRPMPerDeg = 25.0

	speedTauSecs = 8.0 // first-order speed tracking time constant

	heatGainPerLoad = 3.0  // °C/s at full load
	heatGainPerLoss = 0.01 // °C/s per efficiency point lost
	coolingCoeff    = 0.05 // 1/s relaxation toward ambient

	wearPerHour = 0.08 // bearing wear points at nominal load
	oilPerHour  = 0.05 // oil degradation points

	wearEffPenalty = 0.45 // efficiency points lost per wear point
	oilEffPenalty  = 0.35
)

// SensorProfile selects which optional sensor groups a machine is fitted
// with. Disabled groups come back as absent fields, not zeros.
type SensorProfile struct {
	Electrical    bool
	Hydraulic     bool
	Environmental bool
	Strain        bool
	Acoustic      bool
}

// SynthesisError reports a synthesized value that failed validation.
type SynthesisError struct {
	Field string
	Value float64
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesized %s is invalid: %v", e.Field, e.Value)
}

// Synthesizer computes one consistent snapshot per call from the previous
// motor state and elapsed time. It performs no I/O; randomness comes from
// the injected source, so a fixed seed gives a reproducible run.
type Synthesizer struct {
	MachineID string
	Profile   SensorProfile
	rng       *rand.Rand
}

// NewSynthesizer creates a synthesizer for one machine.
func NewSynthesizer(machineID string, profile SensorProfile, rng *rand.Rand) *Synthesizer {
	return &Synthesizer{MachineID: machineID, Profile: profile, rng: rng}
}

// Next returns the reading for the instant now and the advanced state.
// The input state is not mutated; on error the returned state equals the
// input and the reading must be discarded.
func (s *Synthesizer) Next(prev MotorState, dt time.Duration, now time.Time) (Reading, MotorState, error) {
	secs := dt.Seconds()
	if secs <= 0 {
		secs = 1
	}

	st := prev

	// Synthetic load: slow oscillation plus jitter, clamped to [0,1].
	st.LoadPhase += secs / 45
	load := clamp(0.55+0.35*math.Sin(st.LoadPhase)+s.rng.NormFloat64()*0.05, 0, 1)

	// Wear accumulators climb slowly, faster under load.
	st.BearingWear = clamp(st.BearingWear+wearPerHour*(0.5+load)*secs/3600, 0, 100)
	st.OilDegradation = clamp(st.OilDegradation+oilPerHour*secs/3600, 0, 100)

	eff := clamp(100-wearEffPenalty*st.BearingWear-oilEffPenalty*st.OilDegradation, 0, 100)

	// Speed tracks a load-driven target, derated when running hot.
	target := idleRPM + load*(ratedRPM-idleRPM)
	if st.Temperature > derateTempC {
		target -= (st.Temperature - derateTempC) * derateRPMPerDeg
	}
	track := math.Min(1, secs/speedTauSecs)
	st.Speed = clamp(st.Speed+(target-st.Speed)*track+s.rng.NormFloat64()*12, 0, maxRPM)

	// Thermal relaxation: exact solution of dT/dt = heat - k(T-ambient),
	// stable for any step size. A discrete Euler update would amplify
	// once coolingCoeff*secs exceeds 2, which sparse on-demand sampling
	// can reach.
	heat := load*heatGainPerLoad + (100-eff)*heatGainPerLoss
	equilibrium := AmbientTempC + heat/coolingCoeff
	decay := math.Exp(-coolingCoeff * secs)
	st.Temperature = equilibrium + (st.Temperature-equilibrium)*decay

	st.OperatingSecs += secs

	// Vibration grows with speed and bearing wear.
	vibBase := 0.2 + st.Speed/ratedRPM*1.5 + st.BearingWear*0.03
	vibX := math.Max(0, vibBase*(1+s.rng.NormFloat64()*0.1))
	vibY := math.Max(0, vibBase*(1+s.rng.NormFloat64()*0.1))
	vibZ := math.Max(0, vibBase*0.6*(1+s.rng.NormFloat64()*0.1))

	hours := int(st.OperatingSecs) / 3600
	minutes := int(st.OperatingSecs) / 60 % 60
	seconds := int(st.OperatingSecs) % 60

	r := Reading{
		MachineID:      s.MachineID,
		Speed:          int(math.Round(st.Speed)),
		Temperature:    int(math.Round(st.Temperature)),
		Timestamp:      now.UTC(),
		VibrationX:     ptr(round2(vibX)),
		VibrationY:     ptr(round2(vibY)),
		VibrationZ:     ptr(round2(vibZ)),
		Torque:         ptr(round2(load * 320)),
		Efficiency:     ptr(round2(eff)),
		BearingHealth:  ptr(round2(100 - st.BearingWear)),
		OilDegradation: ptr(round2(st.OilDegradation)),

		OperatingHours:   intPtr(hours),
		OperatingMinutes: intPtr(minutes),
		OperatingSeconds: intPtr(seconds),
	}
	r.Status = Classify(r.Temperature, st.BearingWear, st.OilDegradation)
	r.MaintenanceStatus = intPtr(maintenanceCode(st.BearingWear, st.OilDegradation))
	r.SystemHealth = intPtr(systemHealth(r.Status, eff))

	if s.Profile.Electrical {
		volts := 400 + s.rng.NormFloat64()*3
		pf := clamp(0.82+load*0.12+s.rng.NormFloat64()*0.01, 0, 1)
		powerKW := st.Speed / ratedRPM * load * 75
		amps := 0.0
		if volts > 0 && pf > 0 {
			amps = powerKW * 1000 / (math.Sqrt(3) * volts * pf)
		}
		r.Voltage = ptr(round2(volts))
		r.Current = ptr(round2(math.Max(0, amps)))
		r.PowerFactor = ptr(round2(pf))
		r.PowerOutput = ptr(round2(math.Max(0, powerKW)))
	}
	if s.Profile.Hydraulic {
		r.OilPressure = ptr(round2(math.Max(0, 3.5+load*1.5+s.rng.NormFloat64()*0.1)))
		r.AirPressure = ptr(round2(math.Max(0, 6+s.rng.NormFloat64()*0.2)))
		r.HydraulicPressure = ptr(round2(math.Max(0, 160+load*40+s.rng.NormFloat64()*4)))
		r.CoolantFlowRate = ptr(round2(math.Max(0, 24+load*10+s.rng.NormFloat64()*1)))
		r.FuelFlowRate = ptr(round2(math.Max(0, 2+load*6+s.rng.NormFloat64()*0.3)))
	}
	if s.Profile.Environmental {
		r.Humidity = ptr(round2(clamp(45+s.rng.NormFloat64()*8, 0, 100)))
		r.AmbientTemperature = ptr(round2(AmbientTempC + s.rng.NormFloat64()*1.5))
		r.AmbientPressure = ptr(round2(1013 + s.rng.NormFloat64()*4))
	}
	if s.Profile.Strain {
		r.ShaftPosition = ptr(round2(math.Mod(st.OperatingSecs*st.Speed*6, 360)))
		r.Displacement = ptr(round2(math.Abs(s.rng.NormFloat64()) * 0.05))
		r.StrainGauge1 = ptr(round2(math.Max(0, load*120+s.rng.NormFloat64()*5)))
		r.StrainGauge2 = ptr(round2(math.Max(0, load*115+s.rng.NormFloat64()*5)))
		r.StrainGauge3 = ptr(round2(math.Max(0, load*125+s.rng.NormFloat64()*5)))
	}
	if s.Profile.Acoustic {
		r.SoundLevel = ptr(round2(55 + st.Speed/ratedRPM*25 + st.BearingWear*0.1))
	}

	if err := validate(&r); err != nil {
		return Reading{}, prev, err
	}
	return r, st, nil
}

// validate rejects NaN/Inf in any numeric field before the reading can
// reach the store.
func validate(r *Reading) error {
	checks := []struct {
		field string
		v     *float64
	}{
		{"vibrationX", r.VibrationX}, {"vibrationY", r.VibrationY}, {"vibrationZ", r.VibrationZ},
		{"oilPressure", r.OilPressure}, {"airPressure", r.AirPressure},
		{"hydraulicPressure", r.HydraulicPressure}, {"coolantFlowRate", r.CoolantFlowRate},
		{"fuelFlowRate", r.FuelFlowRate}, {"voltage", r.Voltage}, {"current", r.Current},
		{"powerFactor", r.PowerFactor}, {"powerOutput", r.PowerOutput},
		{"torque", r.Torque}, {"efficiency", r.Efficiency},
		{"humidity", r.Humidity}, {"ambientTemperature", r.AmbientTemperature},
		{"ambientPressure", r.AmbientPressure}, {"shaftPosition", r.ShaftPosition},
		{"displacement", r.Displacement}, {"strainGauge1", r.StrainGauge1},
		{"strainGauge2", r.StrainGauge2}, {"strainGauge3", r.StrainGauge3},
		{"soundLevel", r.SoundLevel}, {"bearingHealth", r.BearingHealth},
		{"oilDegradation", r.OilDegradation},
	}
	for _, c := range checks {
		if c.v != nil && (math.IsNaN(*c.v) || math.IsInf(*c.v, 0)) {
			return &SynthesisError{Field: c.field, Value: *c.v}
		}
	}
	if r.Speed < 0 {
		return &SynthesisError{Field: "speed", Value: float64(r.Speed)}
	}
	if r.Efficiency != nil && (*r.Efficiency < 0 || *r.Efficiency > 100) {
		return &SynthesisError{Field: "efficiency", Value: *r.Efficiency}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
