package mqtt

import (
	"fmt"
	"strings"
)

const (
	// Inbound
	TopicCircadianCommands = "automation/command/circadian/+"
	TopicOutdoorIllum      = "automation/sensor/illuminance/outdoor"
	TopicWeather           = "automation/context/weather"

	// Service status payloads, retained on StatusTopic
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// CircadianCommandTopic is where commands for one area arrive
// Pattern: automation/command/circadian/{area}
func CircadianCommandTopic(area string) string {
	return fmt.Sprintf("automation/command/circadian/%s", area)
}

// LightCommandTopic is where computed light settings are sent
// Pattern: automation/command/light/{area}
func LightCommandTopic(area string) string {
	return fmt.Sprintf("automation/command/light/%s", area)
}

// LightingContextTopic announces the lighting state of an area to other agents
// Pattern: automation/context/lighting/{area}
func LightingContextTopic(area string) string {
	return fmt.Sprintf("automation/context/lighting/%s", area)
}

// RawSensorTopic is where sensor bridges publish unprocessed readings
// Pattern: automation/raw/{sensor_type}/{location}
func RawSensorTopic(sensorType, location string) string {
	return fmt.Sprintf("automation/raw/%s/%s", sensorType, location)
}

// ProcessedSensorTopic is where the collector announces a stored reading
// Pattern: automation/sensor/{sensor_type}/{location}
func ProcessedSensorTopic(sensorType, location string) string {
	return fmt.Sprintf("automation/sensor/%s/%s", sensorType, location)
}

// StatusTopic carries the retained online/offline status of a service
// Pattern: automation/status/{service}
func StatusTopic(service string) string {
	return fmt.Sprintf("automation/status/%s", service)
}

// AreaFromTopic returns the last segment of a four-part automation topic
// such as automation/command/circadian/{area}
func AreaFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] == "" || parts[3] == "+" {
		return "", false
	}
	return parts[3], true
}
