package regulator

import (
	"math"
	"testing"
	"time"
)

func TestMaxStepComputation(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     float64
	}{
		{
			name:     "defaults",
			settings: DefaultSettings(),
			// 5 % of 10500 W, scaled from a 15 s window to a 10 s cycle
			want: 350.0,
		},
		{
			name: "fifteen second cycle",
			settings: Settings{
				PeakProductionW: 10000,
				MaxDeltaPercent: 5.0,
				CyclePeriod:     15 * time.Second,
			},
			want: 500.0,
		},
		{
			name: "five second cycle",
			settings: Settings{
				PeakProductionW: 10000,
				MaxDeltaPercent: 5.0,
				CyclePeriod:     5 * time.Second,
			},
			want: 500.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.settings, nil)
			if got := r.MaxStepW(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MaxStepW() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstCallInitializesToSolar(t *testing.T) {
	r := New(DefaultSettings(), nil)

	if _, ok := r.LastLimitedPower(); ok {
		t.Fatal("LastLimitedPower() reported initialized before first call")
	}

	r.NextScaleFactor(Input{
		GridConsumptionW: 500,
		SolarProductionW: 2000,
		LimitExport:      true,
		AutoMode:         true,
	})

	got, ok := r.LastLimitedPower()
	if !ok {
		t.Fatal("LastLimitedPower() not initialized after first call")
	}
	// Initialized to 2000, then one ramp-limited step down of 350 W.
	if got != 1650 {
		t.Errorf("LastLimitedPower() = %v, want 1650", got)
	}
}

func TestLowPVDisengages(t *testing.T) {
	r := New(DefaultSettings(), nil)

	// Prime internal state with a normal cycle first.
	r.NextScaleFactor(Input{GridConsumptionW: 500, SolarProductionW: 5000, LimitExport: true, AutoMode: true})

	got := r.NextScaleFactor(Input{
		GridConsumptionW: 500,
		SolarProductionW: 20, // below the 50 W threshold
		LimitExport:      true,
		AutoMode:         true,
	})
	if got != 100 {
		t.Errorf("NextScaleFactor() = %d, want 100 at low PV", got)
	}

	// State tracks actual production so regulation resumes without a jump.
	if last, _ := r.LastLimitedPower(); last != 20 {
		t.Errorf("LastLimitedPower() = %v, want 20", last)
	}
}

func TestLimitExportDisabled(t *testing.T) {
	r := New(DefaultSettings(), nil)

	r.NextScaleFactor(Input{GridConsumptionW: 500, SolarProductionW: 5000, LimitExport: true, AutoMode: true})
	before, _ := r.LastLimitedPower()

	got := r.NextScaleFactor(Input{
		GridConsumptionW: 500,
		SolarProductionW: 5000,
		LimitExport:      false,
	})
	if got != 100 {
		t.Errorf("NextScaleFactor() = %d, want 100 with export limit off", got)
	}

	// Disabled regulation must not move internal state.
	if after, _ := r.LastLimitedPower(); after != before {
		t.Errorf("LastLimitedPower() changed from %v to %v while disabled", before, after)
	}
}

func TestAutoModeConvergesTowardCeiling(t *testing.T) {
	r := New(DefaultSettings(), nil)

	in := Input{
		GridConsumptionW: 500,
		SolarProductionW: 5000,
		LimitExport:      true,
		AutoMode:         true,
	}

	// Desired power is home + export ceiling = 700 W. Starting from 5000 W
	// the ramp limit caps every step at 350 W.
	wantState := []float64{4650, 4300, 3950}
	for i, want := range wantState {
		r.NextScaleFactor(in)
		if got, _ := r.LastLimitedPower(); got != want {
			t.Fatalf("cycle %d: LastLimitedPower() = %v, want %v", i+1, got, want)
		}
	}
}

func TestProportionalStepForSmallErrors(t *testing.T) {
	r := New(DefaultSettings(), nil)

	// First call initializes state to solar production.
	r.NextScaleFactor(Input{
		GridConsumptionW: 700,
		SolarProductionW: 1000,
		LimitExport:      true,
		AutoMode:         true,
	})

	// Error was 900-1000 = -100 W; the gain (0.3) gives a -30 W step, well
	// inside the ramp limit.
	if got, _ := r.LastLimitedPower(); got != 970 {
		t.Errorf("LastLimitedPower() = %v, want 970", got)
	}
}

func TestManualModeUsesPowerLimit(t *testing.T) {
	r := New(DefaultSettings(), nil)

	r.NextScaleFactor(Input{
		GridConsumptionW: 500,
		SolarProductionW: 3000,
		LimitExport:      true,
		AutoMode:         false,
		PowerLimitW:      2900,
	})

	// Error -100 W, proportional step -30 W.
	if got, _ := r.LastLimitedPower(); got != 2970 {
		t.Errorf("LastLimitedPower() = %v, want 2970", got)
	}
}

func TestMinProductionFloor(t *testing.T) {
	r := New(DefaultSettings(), nil)

	in := Input{
		GridConsumptionW: 0,
		SolarProductionW: 400,
		LimitExport:      true,
		AutoMode:         false,
		PowerLimitW:      0,
	}

	// Drive toward zero; the floor must hold at MinProductionW.
	for i := 0; i < 10; i++ {
		r.NextScaleFactor(in)
	}
	if got, _ := r.LastLimitedPower(); got != 300 {
		t.Errorf("LastLimitedPower() = %v, want floor 300", got)
	}
}

func TestLimitedPowerNeverExceedsSolar(t *testing.T) {
	r := New(DefaultSettings(), nil)

	in := Input{
		GridConsumptionW: 9000,
		SolarProductionW: 2000,
		LimitExport:      true,
		AutoMode:         true,
	}

	got := r.NextScaleFactor(in)
	if got != 100 {
		t.Errorf("NextScaleFactor() = %d, want 100 when demand exceeds production", got)
	}
	if last, _ := r.LastLimitedPower(); last > 2000 {
		t.Errorf("LastLimitedPower() = %v exceeds solar production", last)
	}
}

func TestNegativeInputsClamped(t *testing.T) {
	r := New(DefaultSettings(), nil)

	got := r.NextScaleFactor(Input{
		GridConsumptionW: -500,
		SolarProductionW: -100,
		LimitExport:      true,
		AutoMode:         true,
	})

	// Negative solar clamps to zero, which is below the low-PV threshold.
	if got != 100 {
		t.Errorf("NextScaleFactor() = %d, want 100", got)
	}
	if last, _ := r.LastLimitedPower(); last != 0 {
		t.Errorf("LastLimitedPower() = %v, want 0", last)
	}
}

func TestScaleFactorBounds(t *testing.T) {
	r := New(DefaultSettings(), nil)

	in := Input{
		GridConsumptionW: 0,
		SolarProductionW: 10000,
		LimitExport:      true,
		AutoMode:         false,
		PowerLimitW:      0,
	}

	for i := 0; i < 200; i++ {
		got := r.NextScaleFactor(in)
		if got < 0 || got > 100 {
			t.Fatalf("cycle %d: NextScaleFactor() = %d out of [0,100]", i, got)
		}
	}
}

func TestAutoModeThresholdHasNoEffect(t *testing.T) {
	base := New(DefaultSettings(), nil)
	withThreshold := New(DefaultSettings(), nil)

	in := Input{
		GridConsumptionW: 800,
		SolarProductionW: 4000,
		LimitExport:      true,
		AutoMode:         true,
	}
	inThreshold := in
	inThreshold.AutoModeThresholdW = 2500

	for i := 0; i < 5; i++ {
		a := base.NextScaleFactor(in)
		b := withThreshold.NextScaleFactor(inThreshold)
		if a != b {
			t.Fatalf("cycle %d: threshold changed result: %d vs %d", i, a, b)
		}
	}
}
