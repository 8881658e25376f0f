package circadian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapHalf_Midpoints(t *testing.T) {
	// Rising half is centered on the midpoint
	v := MapHalf(6, 6, 3.0, 0, 100, Rising)
	assert.InDelta(t, 50.0, v, 1e-9)

	// Falling half shifts time by 12 before evaluating
	v = MapHalf(22, 10, 1.7, 0, 100, Falling)
	assert.InDelta(t, 50.0, v, 1e-9)

	assert.Greater(t, MapHalf(8, 6, 3.0, 0, 100, Rising), MapHalf(5, 6, 3.0, 0, 100, Rising))
	assert.Less(t, MapHalf(23, 10, 1.7, 0, 100, Falling), MapHalf(20, 10, 1.7, 0, 100, Falling))
}

func TestMapHalf_StaysInRange(t *testing.T) {
	for h := 0.0; h < 24; h += 0.25 {
		v := MapHalf(h, 6, 5.5, 500, 6500, Rising)
		if v < 500 || v > 6500 {
			t.Errorf("rising value %f out of range at hour %f", v, h)
		}
		v = MapHalf(h, 10, 5.5, 500, 6500, Falling)
		if v < 500 || v > 6500 {
			t.Errorf("falling value %f out of range at hour %f", v, h)
		}
	}
}

func TestSlopeForSpeed(t *testing.T) {
	assert.Equal(t, 0.4, SlopeForSpeed(1))
	assert.Equal(t, 3.0, SlopeForSpeed(8))
	assert.Equal(t, 5.5, SlopeForSpeed(10))
	assert.Equal(t, 0.4, SlopeForSpeed(-3))
	assert.Equal(t, 5.5, SlopeForSpeed(42))
}

func TestPhaseOf(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		hour float64
		want Phase
	}{
		{0, PhaseAscend},
		{6, PhaseAscend},
		{11.99, PhaseAscend},
		{12, PhaseDescend},
		{18, PhaseDescend},
		{23.99, PhaseDescend},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseOf(tt.hour, cfg), "hour %v", tt.hour)
	}
}

func TestPhaseOf_CrossMidnightBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AscendStart = 20
	cfg.DescendStart = 8

	assert.Equal(t, PhaseAscend, PhaseOf(21, cfg))
	assert.Equal(t, PhaseAscend, PhaseOf(2, cfg))
	assert.Equal(t, PhaseDescend, PhaseOf(8, cfg))
	assert.Equal(t, PhaseDescend, PhaseOf(19.5, cfg))
}

func TestCrossedPhaseBoundary(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, CrossedPhaseBoundary(11.9, 12.1, cfg))
	assert.True(t, CrossedPhaseBoundary(23.9, 0.1, cfg))
	assert.False(t, CrossedPhaseBoundary(13, 20, cfg))
}

func TestCalculate_Landmarks(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		hour       float64
		brightness int
		colorTemp  int
	}{
		{"solar midnight", 0, 1, 500},
		{"wake midpoint", 6, 50, 3500},
		{"solar noon", 12, 99, 6499},
		{"bed midpoint", 22, 50, 3500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Calculate(tt.hour, cfg, AreaState{}, Conditions{})
			assert.Equal(t, tt.brightness, res.Brightness)
			assert.InDelta(t, tt.colorTemp, res.ColorTemp, 1)
		})
	}
}

func TestCalculate_OutputRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmNight.Enabled = true
	cfg.CoolDay.Enabled = true

	for h := 0.0; h < 24; h += 0.1 {
		res := Calculate(h, cfg, AreaState{}, Conditions{})
		if res.Brightness < cfg.MinBrightness || res.Brightness > cfg.MaxBrightness {
			t.Errorf("brightness %d out of range at %f", res.Brightness, h)
		}
		if res.ColorTemp < cfg.MinColorTemp || res.ColorTemp > cfg.MaxColorTemp {
			t.Errorf("color temp %d out of range at %f", res.ColorTemp, h)
		}
		for _, c := range res.XY {
			if c < 0 || c > 1 {
				t.Errorf("xy component %f out of range at %f", c, h)
			}
		}
	}
}

func TestCalculate_FrozenIgnoresHour(t *testing.T) {
	cfg := DefaultConfig()
	frozen := 22.0
	state := AreaState{FrozenAt: &frozen}

	res := Calculate(12, cfg, state, Conditions{})
	assert.Equal(t, 50, res.Brightness)
	assert.True(t, res.Frozen)
	assert.Equal(t, PhaseDescend, res.Phase)
	assert.Equal(t, Calculate(3, cfg, state, Conditions{}), res)
}

func TestCalculate_StoredMidpointShiftsCurve(t *testing.T) {
	cfg := DefaultConfig()
	mid := 9.0
	state := AreaState{BrightnessMid: &mid}

	// Later midpoint means dimmer at the same morning hour
	assert.Less(t, BrightnessAt(7, cfg, state), BrightnessAt(7, cfg, AreaState{}))
	assert.InDelta(t, 50.5, BrightnessAt(9, cfg, state), 1e-6)
}

func TestCalculate_MidpointLiftedAcrossMidnight(t *testing.T) {
	cfg := DefaultConfig()
	// A bed midpoint of 1am belongs to the evening window as hour 25
	mid := 1.0
	state := AreaState{BrightnessMid: &mid}

	assert.Greater(t, BrightnessAt(23, cfg, state), 90.0)
}

func TestCalculate_PresetChangesSchedule(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]interface{}{"activity_preset": "nightowl"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Wake midpoint moves to 10
	assert.InDelta(t, 50.5, BrightnessAt(10, cfg, AreaState{}), 1e-6)
}
