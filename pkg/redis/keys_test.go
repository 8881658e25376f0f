package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaStateKeyRoundTrip(t *testing.T) {
	key := AreaStateKey("living_room")
	assert.Equal(t, "circadian:area:living_room", key)

	area, ok := AreaFromStateKey(key)
	assert.True(t, ok)
	assert.Equal(t, "living_room", area)

	_, ok = AreaFromStateKey("sensor:environmental:outdoor")
	assert.False(t, ok)
	_, ok = AreaFromStateKey("circadian:area:")
	assert.False(t, ok)
}

func TestKeyPatterns(t *testing.T) {
	assert.Equal(t, "circadian:area:*", AreaStatePattern())
	assert.Equal(t, "circadian:recent:hall", RecentEventsKey("hall"))
	assert.Equal(t, "circadian:outdoor:garden", OutdoorBaselineKey("garden"))
	assert.Equal(t, "sensor:environmental:garden", EnvironmentalSensorKey("garden"))
}
