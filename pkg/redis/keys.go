package redis

import (
	"fmt"
	"strings"
)

const areaStatePrefix = "circadian:area:"

// AreaStateKey returns the hash holding an area's circadian state
// Pattern: circadian:area:{area}
func AreaStateKey(area string) string {
	return areaStatePrefix + area
}

// AreaStatePattern matches every area state hash
func AreaStatePattern() string {
	return areaStatePrefix + "*"
}

// AreaFromStateKey extracts the area name from an area state key
func AreaFromStateKey(key string) (string, bool) {
	area := strings.TrimPrefix(key, areaStatePrefix)
	if area == key || area == "" {
		return "", false
	}
	return area, true
}

// RecentEventsKey returns the capped list of recent lighting results for an area
// Pattern: circadian:recent:{area}
func RecentEventsKey(area string) string {
	return fmt.Sprintf("circadian:recent:%s", area)
}

// OutdoorBaselineKey returns the hash holding learned outdoor lux baselines
// Pattern: circadian:outdoor:{location}
func OutdoorBaselineKey(location string) string {
	return fmt.Sprintf("circadian:outdoor:%s", location)
}

// EnvironmentalSensorKey returns the key for environmental sensor data (sorted set)
// Pattern: sensor:environmental:{location}
func EnvironmentalSensorKey(location string) string {
	return fmt.Sprintf("sensor:environmental:%s", location)
}
