package circadian

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPosition_ColorUnderWarmNight(t *testing.T) {
	cfg := warmNightConfig(2700)

	res, err := SetPosition(22, 75, AxisColor, cfg, AreaState{}, Conditions{})
	require.NoError(t, err)

	assert.InDelta(t, 5550, res.ColorTemp, 100)
	require.NotNil(t, res.StateUpdates.ColorOverride)
	assert.Greater(t, *res.StateUpdates.ColorOverride, 0.0)
	assert.NotNil(t, res.StateUpdates.ColorMid)
	assert.Nil(t, res.StateUpdates.BrightnessMid)
}

func TestSetPosition_StepAxisShrinksOverride(t *testing.T) {
	cfg := warmNightConfig(2700)

	res, err := SetPosition(22, 75, AxisColor, cfg, AreaState{}, Conditions{})
	require.NoError(t, err)
	state := AreaState{}.Apply(res.StateUpdates)
	require.NotNil(t, state.ColorOverride)
	big := *state.ColorOverride

	// A lower target shrinks the override
	res, err = SetPosition(22, 10, AxisStep, cfg, state, Conditions{})
	require.NoError(t, err)
	state = state.Apply(res.StateUpdates)
	require.NotNil(t, state.ColorOverride)
	assert.Less(t, *state.ColorOverride, big)
	assert.InDelta(t, 380, *state.ColorOverride, 1)

	// A higher target never grows it back
	res, err = SetPosition(22, 90, AxisStep, cfg, state, Conditions{})
	require.NoError(t, err)
	state = state.Apply(res.StateUpdates)
	require.NotNil(t, state.ColorOverride)
	assert.InDelta(t, 380, *state.ColorOverride, 1)
}

func TestSetPosition_StepAxisLetsRuleReengage(t *testing.T) {
	cfg := warmNightConfig(2700)
	override := 1500.0
	state := AreaState{ColorOverride: &override}

	res, err := SetPosition(22, 0, AxisStep, cfg, state, Conditions{})
	require.NoError(t, err)
	assert.True(t, res.StateUpdates.ClearColorOverride)
	state = state.Apply(res.StateUpdates)
	assert.Nil(t, state.ColorOverride)

	res, err = SetPosition(22, 100, AxisStep, cfg, state, Conditions{})
	require.NoError(t, err)
	assert.Nil(t, res.StateUpdates.ColorOverride)
	assert.False(t, res.StateUpdates.ClearColorOverride)

	// Warm night holds the output again
	assert.Equal(t, 2700, res.ColorTemp)
	assert.Equal(t, 99, res.Brightness)
}

func TestSetPosition_BrightnessAcrossRange(t *testing.T) {
	cfg := DefaultConfig()

	for _, hour := range []float64{1, 9, 15, 23} {
		for _, pct := range []float64{0, 25, 50, 75, 100} {
			res, err := SetPosition(hour, pct, AxisBrightness, cfg, AreaState{}, Conditions{})
			require.NoError(t, err)
			require.NotNil(t, res.StateUpdates.BrightnessMid)

			state := AreaState{}.Apply(res.StateUpdates)
			want := 1 + 99*pct/100
			assert.InDelta(t, want, BrightnessAt(hour, cfg, state), 0.5, "hour %v pct %v", hour, pct)
		}
	}
}

func TestSetPosition_BrightnessEndpointsTruncate(t *testing.T) {
	cfg := DefaultConfig()

	for _, hour := range []float64{9, 12, 15, 20} {
		full, err := SetPosition(hour, 100, AxisBrightness, cfg, AreaState{}, Conditions{})
		require.NoError(t, err)
		assert.Equal(t, cfg.MaxBrightness-1, full.Brightness, "hour %v", hour)

		// A refresh at the same hour renders the same integer
		state := AreaState{}.Apply(full.StateUpdates)
		assert.Equal(t, full.Brightness, CalculateBrightness(hour, cfg, state))

		dark, err := SetPosition(hour, 0, AxisBrightness, cfg, AreaState{}, Conditions{})
		require.NoError(t, err)
		assert.Equal(t, cfg.MinBrightness, dark.Brightness, "hour %v", hour)
	}
}

func TestSetPosition_ColorEndpoints(t *testing.T) {
	cfg := DefaultConfig()

	for _, hour := range []float64{5, 12, 20} {
		res, err := SetPosition(hour, 0, AxisColor, cfg, AreaState{}, Conditions{})
		require.NoError(t, err)
		assert.InDelta(t, 500, res.ColorTemp, 2, "hour %v", hour)
		assert.Nil(t, res.StateUpdates.ColorOverride)

		res, err = SetPosition(hour, 100, AxisColor, cfg, AreaState{}, Conditions{})
		require.NoError(t, err)
		assert.InDelta(t, 6500, res.ColorTemp, 2, "hour %v", hour)
	}
}

func TestSetPosition_ClampsPercent(t *testing.T) {
	cfg := DefaultConfig()

	over, err := SetPosition(9, 150, AxisBrightness, cfg, AreaState{}, Conditions{})
	require.NoError(t, err)
	full, err := SetPosition(9, 100, AxisBrightness, cfg, AreaState{}, Conditions{})
	require.NoError(t, err)
	assert.Equal(t, full.Brightness, over.Brightness)
}

func TestSetPosition_UnknownAxis(t *testing.T) {
	_, err := SetPosition(9, 50, Axis("hue"), DefaultConfig(), AreaState{}, Conditions{})
	assert.True(t, errors.Is(err, ErrUnknownAxis))

	_, err = ParseAxis("hue")
	assert.True(t, errors.Is(err, ErrUnknownAxis))

	axis, err := ParseAxis("step")
	require.NoError(t, err)
	assert.Equal(t, AxisStep, axis)
}
