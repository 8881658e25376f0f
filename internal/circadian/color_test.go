package circadian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKelvinToRGB_KnownValues(t *testing.T) {
	tests := []struct {
		kelvin float64
		want   RGB
	}{
		{1000, RGB{255, 121, 0}},
		{2700, RGB{255, 173, 89}},
		{4000, RGB{255, 211, 165}},
		{6500, RGB{255, 249, 254}},
	}

	for _, tt := range tests {
		got := KelvinToRGB(tt.kelvin)
		for i := range got {
			assert.InDelta(t, tt.want[i], got[i], 1, "kelvin %v channel %d", tt.kelvin, i)
		}
	}
}

func TestKelvinToXY_ClampsInput(t *testing.T) {
	assert.Equal(t, KelvinToXY(1000), KelvinToXY(100))
	assert.Equal(t, KelvinToXY(25000), KelvinToXY(90000))

	xy := KelvinToXY(6500)
	assert.InDelta(t, 0.3135, xy[0], 0.002)
	assert.InDelta(t, 0.3237, xy[1], 0.002)
}

func TestRGBToXY_RoundTrip(t *testing.T) {
	worst := 0.0
	for k := 1000.0; k <= 25000; k += 50 {
		want := KelvinToXY(k)
		got := RGBToXY(KelvinToRGB(k))
		err := math.Max(math.Abs(want[0]-got[0]), math.Abs(want[1]-got[1]))
		if err > worst {
			worst = err
		}
	}
	if worst > 0.02 {
		t.Errorf("round trip drifted by %f", worst)
	}
}

func TestRGBToXY_Black(t *testing.T) {
	assert.Equal(t, whitePoint, RGBToXY(RGB{0, 0, 0}))
}

func TestXYToRGB_Ranges(t *testing.T) {
	for k := 500.0; k <= 30000; k += 250 {
		xy := KelvinToXY(k)
		assert.True(t, xy[0] >= 0 && xy[0] <= 1 && xy[1] >= 0 && xy[1] <= 1, "xy out of range at %v", k)
		rgb := XYToRGB(xy)
		// At least one channel is saturated after renormalization
		assert.Equal(t, uint8(255), max(rgb[0], rgb[1], rgb[2]), "kelvin %v", k)
	}
}

func TestKelvinToMired(t *testing.T) {
	assert.Equal(t, 370, KelvinToMired(2700))
	assert.Equal(t, 154, KelvinToMired(6500))
	assert.Equal(t, 154, KelvinToMired(10000))
	assert.Equal(t, 2000, KelvinToMired(100))
	assert.Equal(t, 2703, MiredToKelvin(370))
}
