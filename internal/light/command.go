package light

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/internal/outdoor"
)

// Command actions accepted on automation/command/circadian/{area}
const (
	actionStep         = "step"
	actionBrightStep   = "bright_step"
	actionColorStep    = "color_step"
	actionSetPosition  = "set_position"
	actionDimTime      = "dim_time"
	actionFreeze       = "freeze"
	actionUnfreeze     = "unfreeze"
	actionOn           = "on"
	actionOff          = "off"
	actionCircadianOn  = "circadian_on"
	actionCircadianOff = "circadian_off"
	actionReset        = "reset"
	actionOutdoor      = "outdoor_override"
)

// Reasons reported with published output
const (
	reasonRefresh = "circadian_refresh"
	reasonManual  = "manual"
)

// Command is a decoded and validated circadian command
type Command struct {
	Action        string
	Direction     circadian.Direction
	Axis          circadian.Axis
	Value         float64
	Hour          *float64
	Condition     outdoor.Condition
	Duration      time.Duration
	CorrelationID string
}

type commandMessage struct {
	Action          string   `json:"action"`
	Direction       string   `json:"direction,omitempty"`
	Axis            string   `json:"axis,omitempty"`
	Value           *float64 `json:"value,omitempty"`
	Hour            *float64 `json:"hour,omitempty"`
	Condition       string   `json:"condition,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
}

// ParseCommand decodes a command payload
func ParseCommand(payload []byte) (Command, error) {
	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Command{}, fmt.Errorf("failed to parse command: %w", err)
	}

	cmd := Command{
		Action:        strings.ToLower(strings.TrimSpace(msg.Action)),
		CorrelationID: msg.CorrelationID,
	}

	switch cmd.Action {
	case actionStep, actionBrightStep, actionColorStep, actionDimTime:
		dir, err := circadian.ParseDirection(msg.Direction)
		if err != nil {
			return Command{}, err
		}
		cmd.Direction = dir

	case actionSetPosition:
		axis, err := circadian.ParseAxis(msg.Axis)
		if err != nil {
			return Command{}, err
		}
		if msg.Value == nil {
			return Command{}, fmt.Errorf("set_position requires a value")
		}
		cmd.Axis = axis
		cmd.Value = *msg.Value

	case actionFreeze:
		if msg.Hour != nil {
			if *msg.Hour < 0 || *msg.Hour >= 24 {
				return Command{}, fmt.Errorf("freeze hour %v out of range [0, 24)", *msg.Hour)
			}
			h := *msg.Hour
			cmd.Hour = &h
		}

	case actionOutdoor:
		// An empty condition clears the override
		cmd.Condition = outdoor.Condition(msg.Condition)
		cmd.Duration = time.Hour
		if msg.DurationMinutes != nil {
			cmd.Duration = time.Duration(*msg.DurationMinutes) * time.Minute
		}

	case actionUnfreeze, actionOn, actionOff, actionCircadianOn, actionCircadianOff, actionReset:

	default:
		return Command{}, fmt.Errorf("unknown action %q", msg.Action)
	}

	return cmd, nil
}

// manual reports whether the command is a user adjustment subject to the step limiter
func (c Command) manual() bool {
	switch c.Action {
	case actionStep, actionBrightStep, actionColorStep, actionSetPosition, actionDimTime:
		return true
	}
	return false
}
