package telemetry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

func fullProfile() SensorProfile {
	return SensorProfile{Electrical: true, Hydraulic: true, Environmental: true, Strain: true, Acoustic: true}
}

func TestNextProducesConsistentReading(t *testing.T) {
	s := NewSynthesizer("motor-001", fullProfile(), rand.New(rand.NewSource(1)))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r, st, err := s.Next(MotorState{Temperature: AmbientTempC}, time.Second, now)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if r.MachineID != "motor-001" {
		t.Errorf("expected motor-001, got %s", r.MachineID)
	}
	if !r.Timestamp.Equal(now) || r.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not normalized to UTC: %v", r.Timestamp)
	}
	if r.Speed < 0 {
		t.Errorf("speed must be non-negative, got %d", r.Speed)
	}
	if r.Efficiency == nil || *r.Efficiency < 0 || *r.Efficiency > 100 {
		t.Errorf("efficiency out of range: %v", r.Efficiency)
	}
	if st.OperatingSecs != 1 {
		t.Errorf("expected 1 operating second, got %f", st.OperatingSecs)
	}
	if r.OperatingSeconds == nil || *r.OperatingSeconds != 1 {
		t.Errorf("operating time triple not derived from state")
	}
}

func TestNextBoundsHoldOverLongRun(t *testing.T) {
	s := NewSynthesizer("motor-001", fullProfile(), rand.New(rand.NewSource(7)))
	st := MotorState{Temperature: AmbientTempC}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		now = now.Add(time.Second)
		r, next, err := s.Next(st, time.Second, now)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if r.Speed < 0 || r.Speed > int(maxRPM) {
			t.Fatalf("sample %d: speed out of range: %d", i, r.Speed)
		}
		for name, v := range map[string]*float64{
			"vibrationX": r.VibrationX, "vibrationY": r.VibrationY, "vibrationZ": r.VibrationZ,
			"oilPressure": r.OilPressure, "hydraulicPressure": r.HydraulicPressure,
			"coolantFlowRate": r.CoolantFlowRate, "powerOutput": r.PowerOutput,
		} {
			if v == nil {
				t.Fatalf("sample %d: %s absent with full profile", i, name)
			}
			if *v < 0 {
				t.Fatalf("sample %d: %s negative: %f", i, name, *v)
			}
		}
		if next.BearingWear < st.BearingWear {
			t.Fatalf("sample %d: bearing wear regressed", i)
		}
		st = next
	}
}

func TestTemperatureMeanReverts(t *testing.T) {
	s := NewSynthesizer("motor-001", SensorProfile{}, rand.New(rand.NewSource(42)))
	st := MotorState{Temperature: AmbientTempC}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	sum := 0.0
	n := 300
	for i := 0; i < n; i++ {
		now = now.Add(time.Second)
		r, next, err := s.Next(st, time.Second, now)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		sum += float64(r.Temperature)
		st = next
	}
	mean := sum / float64(n)
	// Equilibrium sits between ambient and the critical band; unbounded
	// drift would push the mean far past it.
	if mean < AmbientTempC || mean > CriticalTempC {
		t.Errorf("temperature mean %f drifted outside [%f, %d]", mean, AmbientTempC, CriticalTempC)
	}
}

func TestTemperatureBoundedUnderSparseSampling(t *testing.T) {
	// On-demand triggers can arrive minutes apart; the thermal relaxation
	// must stay contractive at any step size instead of oscillating.
	deltas := []time.Duration{
		time.Second, 30 * time.Second, 2 * time.Minute,
		5 * time.Minute, time.Second, 3 * time.Minute,
		time.Minute, 4 * time.Minute, 2 * time.Minute, 5 * time.Minute,
	}
	// Hottest steady state: ambient + max heat input / cooling coefficient.
	maxEquilibrium := AmbientTempC + (heatGainPerLoad+100*heatGainPerLoss)/coolingCoeff

	s := NewSynthesizer("motor-001", fullProfile(), rand.New(rand.NewSource(11)))
	st := MotorState{Temperature: AmbientTempC}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	prevTemp := st.Temperature
	for i, dt := range deltas {
		now = now.Add(dt)
		r, next, err := s.Next(st, dt, now)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if float64(r.Temperature) < AmbientTempC-1 || float64(r.Temperature) > maxEquilibrium+1 {
			t.Fatalf("sample %d (dt=%v): temperature %d escaped [%.0f, %.0f]", i, dt, r.Temperature, AmbientTempC, maxEquilibrium)
		}
		// No sign-alternating blowup: consecutive warming steps never
		// overshoot the hottest equilibrium, so the swing stays bounded.
		if math.Abs(next.Temperature-prevTemp) > maxEquilibrium-AmbientTempC {
			t.Fatalf("sample %d (dt=%v): temperature jumped %.1f -> %.1f", i, dt, prevTemp, next.Temperature)
		}
		prevTemp = next.Temperature
		st = next
	}
}

func TestDeterministicWithFixedSeed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := func() []int {
		s := NewSynthesizer("motor-001", fullProfile(), rand.New(rand.NewSource(99)))
		st := MotorState{Temperature: AmbientTempC}
		var speeds []int
		for i := 0; i < 50; i++ {
			r, next, err := s.Next(st, time.Second, now)
			if err != nil {
				t.Fatalf("sample %d: %v", i, err)
			}
			speeds = append(speeds, r.Speed)
			st = next
		}
		return speeds
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between identically seeded runs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestEfficiencyDecreasesWithWear(t *testing.T) {
	s := NewSynthesizer("motor-001", SensorProfile{}, rand.New(rand.NewSource(3)))
	now := time.Now().UTC()

	fresh, _, err := s.Next(MotorState{Temperature: AmbientTempC}, time.Second, now)
	if err != nil {
		t.Fatal(err)
	}
	worn, _, err := s.Next(MotorState{Temperature: AmbientTempC, BearingWear: 60, OilDegradation: 40}, time.Second, now)
	if err != nil {
		t.Fatal(err)
	}
	if *worn.Efficiency >= *fresh.Efficiency {
		t.Errorf("efficiency did not fall with wear: fresh=%f worn=%f", *fresh.Efficiency, *worn.Efficiency)
	}
}

func TestVibrationRisesWithSpeedAndWear(t *testing.T) {
	now := time.Now().UTC()
	avgVib := func(st MotorState) float64 {
		s := NewSynthesizer("motor-001", SensorProfile{}, rand.New(rand.NewSource(5)))
		sum := 0.0
		for i := 0; i < 50; i++ {
			r, _, err := s.Next(st, time.Second, now)
			if err != nil {
				t.Fatal(err)
			}
			sum += *r.VibrationX
		}
		return sum / 50
	}

	slow := avgVib(MotorState{Speed: 700, Temperature: AmbientTempC})
	fast := avgVib(MotorState{Speed: 2300, Temperature: AmbientTempC})
	if fast <= slow {
		t.Errorf("vibration did not rise with speed: slow=%f fast=%f", slow, fast)
	}
	worn := avgVib(MotorState{Speed: 700, Temperature: AmbientTempC, BearingWear: 80})
	if worn <= slow {
		t.Errorf("vibration did not rise with wear: fresh=%f worn=%f", slow, worn)
	}
}

func TestDisabledSensorGroupsAreAbsent(t *testing.T) {
	s := NewSynthesizer("motor-001", SensorProfile{}, rand.New(rand.NewSource(2)))
	r, _, err := s.Next(MotorState{Temperature: AmbientTempC}, time.Second, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if r.Voltage != nil || r.OilPressure != nil || r.Humidity != nil || r.StrainGauge1 != nil || r.SoundLevel != nil {
		t.Errorf("disabled sensor groups produced values: %+v", r)
	}
	// Always-on sensors still present.
	if r.VibrationX == nil || r.Efficiency == nil || r.BearingHealth == nil {
		t.Errorf("core derived sensors missing")
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	r := Reading{Speed: 100, VibrationX: ptr(math.NaN())}
	err := validate(&r)
	if err == nil {
		t.Fatal("expected error for NaN vibration")
	}
	var se *SynthesisError
	if !errors.As(err, &se) || se.Field != "vibrationX" {
		t.Errorf("expected SynthesisError naming vibrationX, got %v", err)
	}
}
