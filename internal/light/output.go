package light

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
)

// ColorMode selects which color representation a light command leads with
type ColorMode string

const (
	ColorModeKelvin ColorMode = "kelvin"
	ColorModeRGB    ColorMode = "rgb"
	ColorModeXY     ColorMode = "xy"
)

// ParseColorMode validates a color mode name
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case ColorModeKelvin, ColorModeRGB, ColorModeXY:
		return ColorMode(s), nil
	}
	return "", fmt.Errorf("unknown color mode %q", s)
}

// Output is what the agent sends to the lights of one area
type Output struct {
	Area       string
	Action     string
	Brightness int
	ColorTemp  int
	RGB        circadian.RGB
	XY         circadian.XY
	Phase      circadian.Phase
	Rules      []string
	Frozen     bool
	Reason     string
	Timestamp  time.Time
}

func outputFromResult(area, action, reason string, res circadian.LightingResult, at time.Time) Output {
	return Output{
		Area:       area,
		Action:     action,
		Brightness: res.Brightness,
		ColorTemp:  res.ColorTemp,
		RGB:        res.RGB,
		XY:         res.XY,
		Phase:      res.Phase,
		Rules:      res.ActiveRules,
		Frozen:     res.Frozen,
		Reason:     reason,
		Timestamp:  at,
	}
}

// lightCommand is the payload on automation/command/light/{area}
type lightCommand struct {
	Action     string     `json:"action"`
	Brightness int        `json:"brightness"`
	ColorMode  ColorMode  `json:"color_mode"`
	ColorTemp  int        `json:"color_temp"`
	Mired      int        `json:"mired"`
	RGB        [3]uint8   `json:"rgb"`
	XY         [2]float64 `json:"xy"`
	Reason     string     `json:"reason"`
	Timestamp  string     `json:"timestamp"`
}

// lightingContext is the payload on automation/context/lighting/{area}
type lightingContext struct {
	Source       string   `json:"source"`
	Type         string   `json:"type"`
	Location     string   `json:"location"`
	State        string   `json:"state"`
	Brightness   int      `json:"brightness"`
	ColorTemp    int      `json:"color_temp"`
	Phase        string   `json:"phase,omitempty"`
	ActiveRules  []string `json:"active_rules,omitempty"`
	Frozen       bool     `json:"frozen,omitempty"`
	Illuminating bool     `json:"illuminating"`
	Automated    bool     `json:"automated"`
	Reason       string   `json:"reason"`
	Timestamp    string   `json:"timestamp"`
}

// publishOutput sends the light command followed by the lighting context
func publishOutput(client mqtt.Client, service string, mode ColorMode, out Output) error {
	timestamp := out.Timestamp.Format(time.RFC3339)

	cmd := lightCommand{
		Action:     out.Action,
		Brightness: out.Brightness,
		ColorMode:  mode,
		ColorTemp:  out.ColorTemp,
		Mired:      circadian.KelvinToMired(float64(out.ColorTemp)),
		RGB:        out.RGB,
		XY:         out.XY,
		Reason:     out.Reason,
		Timestamp:  timestamp,
	}
	if out.Action == actionOff {
		cmd.Brightness = 0
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command message: %w", err)
	}
	topic := mqtt.LightCommandTopic(out.Area)
	if err := client.Publish(topic, 0, false, payload); err != nil {
		return fmt.Errorf("failed to publish command to %s: %w", topic, err)
	}

	ctxMsg := lightingContext{
		Source:       service,
		Type:         "lighting",
		Location:     out.Area,
		State:        out.Action,
		Brightness:   cmd.Brightness,
		ColorTemp:    out.ColorTemp,
		Phase:        string(out.Phase),
		ActiveRules:  out.Rules,
		Frozen:       out.Frozen,
		Illuminating: out.Action == actionOn,
		Automated:    out.Reason == reasonRefresh,
		Reason:       out.Reason,
		Timestamp:    timestamp,
	}

	payload, err = json.Marshal(ctxMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal context message: %w", err)
	}
	topic = mqtt.LightingContextTopic(out.Area)
	if err := client.Publish(topic, 0, true, payload); err != nil {
		return fmt.Errorf("failed to publish context to %s: %w", topic, err)
	}
	return nil
}
