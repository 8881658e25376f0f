package light

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/internal/outdoor"
	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

var (
	// ErrRateLimited is returned when a manual step arrives faster than the step limiter allows
	ErrRateLimited = errors.New("step rate limited")
	// ErrAreaOff is returned for manual adjustments to an area whose lights are off
	ErrAreaOff = errors.New("area lights are off")
)

const (
	commandTimeout = 10 * time.Second

	// statusLuxWindow is the span of outdoor readings summarized in Status
	statusLuxWindow = 15 * time.Minute
)

// Agent drives circadian lighting for a set of areas. Each area has a single
// logical owner: its mutex serializes load, compute, save and publish.
type Agent struct {
	mqtt   mqtt.Client
	redis  redis.Client
	cfg    *config.Config
	logger *slog.Logger

	profiles  circadian.Profiles
	clock     *circadian.SolarClock
	store     *StateStore
	history   Recorder
	outdoor   *outdoor.Tracker
	luxStore  *outdoor.Storage
	colorMode ColorMode

	refreshLimiter *RefreshLimiter
	stepLimiter    *StepLimiter

	areaMu    sync.Mutex
	areaLocks map[string]*sync.Mutex

	dayMu sync.Mutex
	day   circadian.SolarDay

	now func() time.Time

	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewAgent creates a light agent. history may be nil when event history is disabled.
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, history Recorder, profiles circadian.Profiles, cfg *config.Config, logger *slog.Logger) (*Agent, error) {
	loc := circadian.LoadLocation(cfg.Timezone, logger)
	clock, err := circadian.NewSolarClock(cfg.Latitude, cfg.Longitude, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to create solar clock: %w", err)
	}

	mode, err := ParseColorMode(cfg.DefaultColorMode)
	if err != nil {
		return nil, err
	}
	source, err := outdoor.ParseSource(cfg.OutdoorSource)
	if err != nil {
		return nil, err
	}

	smoothing := time.Duration(cfg.LuxSmoothingSec * float64(time.Second))
	tracker := outdoor.NewTracker(source, smoothing, cfg.Latitude, cfg.Longitude, logger)
	if b := (outdoor.Baselines{Floor: cfg.LuxFloor, Ceiling: cfg.LuxCeiling}); b.Valid() {
		tracker.SetBaselines(b)
	}

	return &Agent{
		mqtt:           mqttClient,
		redis:          redisClient,
		cfg:            cfg,
		logger:         logger,
		profiles:       profiles,
		clock:          clock,
		store:          NewStateStore(redisClient),
		history:        history,
		outdoor:        tracker,
		luxStore:       outdoor.NewStorage(redisClient, cfg.OutdoorLocation, logger),
		colorMode:      mode,
		refreshLimiter: NewRefreshLimiter(cfg.MinRefreshInterval()),
		stepLimiter:    NewStepLimiter(cfg.StepRatePerSec, cfg.StepBurst),
		areaLocks:      make(map[string]*sync.Mutex),
		now:            time.Now,
		stopChan:       make(chan struct{}),
	}, nil
}

// Start connects, subscribes and runs the refresh loop until ctx is cancelled
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting circadian agent",
		"service_name", a.cfg.ServiceName,
		"latitude", a.cfg.Latitude,
		"longitude", a.cfg.Longitude,
		"timezone", a.clock.Location().String(),
		"refresh_interval_sec", a.cfg.RefreshIntervalSec,
		"color_mode", a.colorMode,
		"outdoor_source", a.cfg.OutdoorSource)

	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}
	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	a.prepareOutdoor(ctx)

	if err := a.mqtt.Subscribe(mqtt.TopicCircadianCommands, 1, a.handleCommandMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", mqtt.TopicCircadianCommands, err)
	}
	if a.cfg.OutdoorSource == string(outdoor.SourceLux) {
		if err := a.mqtt.Subscribe(mqtt.TopicOutdoorIllum, 0, a.handleIlluminanceMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", mqtt.TopicOutdoorIllum, err)
		}
	}
	if a.cfg.OutdoorSource != string(outdoor.SourceAngle) {
		if err := a.mqtt.Subscribe(mqtt.TopicWeather, 0, a.handleWeatherMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", mqtt.TopicWeather, err)
		}
	}

	a.RefreshAll(ctx, true)
	a.startRefreshLoop()

	a.logger.Info("Circadian agent started and ready")

	<-ctx.Done()
	a.logger.Info("Circadian agent stopping")
	return nil
}

// Stop gracefully stops the agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping circadian agent")

	a.stopOnce.Do(func() {
		if a.ticker != nil {
			a.ticker.Stop()
		}
		close(a.stopChan)
	})

	a.mqtt.Disconnect()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Circadian agent stopped")
	return nil
}

func (a *Agent) startRefreshLoop() {
	a.ticker = time.NewTicker(a.cfg.RefreshInterval())

	go func() {
		a.logger.Info("Starting refresh loop", "interval_sec", a.cfg.RefreshIntervalSec)
		for {
			select {
			case <-a.ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RefreshInterval())
				a.RefreshAll(ctx, false)
				cancel()
			case <-a.stopChan:
				return
			}
		}
	}()
}

// prepareOutdoor loads or learns lux baselines and seeds the lux average
func (a *Agent) prepareOutdoor(ctx context.Context) {
	if a.cfg.OutdoorSource != string(outdoor.SourceLux) {
		return
	}

	if !a.outdoor.Baselines().Valid() {
		b, ok, err := a.luxStore.LoadBaselines(ctx)
		if err != nil {
			a.logger.Warn("Failed to load lux baselines", "error", err)
		}
		if !ok {
			b, ok = a.learnBaselines(ctx)
		}
		if ok {
			a.outdoor.SetBaselines(b)
		}
	}

	a.updateLuxFromStore(ctx)
}

func (a *Agent) learnBaselines(ctx context.Context) (outdoor.Baselines, bool) {
	now := a.now()
	start := now.AddDate(0, 0, -a.cfg.BaselineLearnDays)

	readings, err := a.luxStore.Range(ctx, start, now)
	if err != nil {
		a.logger.Warn("Failed to read lux history", "error", err)
		return outdoor.Baselines{}, false
	}

	b, ok := outdoor.LearnBaselines(readings, a.cfg.Latitude, a.cfg.Longitude)
	if !ok {
		a.logger.Info("Not enough daytime lux history to learn baselines",
			"readings", len(readings),
			"days", a.cfg.BaselineLearnDays)
		return outdoor.Baselines{}, false
	}

	if err := a.luxStore.SaveBaselines(ctx, b); err != nil {
		a.logger.Warn("Failed to save lux baselines", "error", err)
	}
	a.logger.Info("Learned lux baselines",
		"readings", len(readings),
		"floor", b.Floor,
		"ceiling", b.Ceiling)
	return b, true
}

func (a *Agent) updateLuxFromStore(ctx context.Context) {
	maxAge := time.Duration(a.cfg.MaxDataAgeHours * float64(time.Hour))
	reading, err := a.luxStore.Latest(ctx, a.now(), maxAge)
	if err != nil {
		a.logger.Warn("Failed to read outdoor lux", "error", err)
		return
	}
	if reading == nil {
		a.logger.Debug("No recent outdoor lux reading", "location", a.cfg.OutdoorLocation)
		return
	}

	smoothed := a.outdoor.UpdateLux(reading.Lux, reading.Timestamp)
	a.logger.Debug("Updated outdoor lux", "raw_lux", reading.Lux, "smoothed_lux", smoothed)
}

// handleIlluminanceMessage reacts to the collector announcing a new outdoor
// reading. The reading itself is read back from Redis.
func (a *Agent) handleIlluminanceMessage(msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	a.updateLuxFromStore(ctx)
}

func (a *Agent) handleWeatherMessage(msg mqtt.Message) {
	var weather struct {
		CloudCover *float64 `json:"cloud_cover"`
	}
	if err := json.Unmarshal(msg.Payload(), &weather); err != nil {
		a.logger.Warn("Failed to parse weather context", "error", err)
		return
	}
	if weather.CloudCover == nil {
		return
	}

	a.outdoor.UpdateWeather(*weather.CloudCover)
	a.logger.Debug("Updated cloud cover", "cloud_cover", *weather.CloudCover)
}

func (a *Agent) handleCommandMessage(msg mqtt.Message) {
	area, ok := mqtt.AreaFromTopic(msg.Topic())
	if !ok {
		a.logger.Warn("Invalid command topic format", "topic", msg.Topic())
		return
	}

	// A retained command would replay a stale button press on every restart
	if msg.Retained() {
		a.logger.Info("Ignoring retained circadian command", "area", area)
		return
	}

	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		a.logger.Warn("Rejected circadian command", "area", area, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := a.Execute(ctx, area, cmd); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAreaOff) {
			level = slog.LevelDebug
		}
		a.logger.Log(ctx, level, "Circadian command not applied",
			"area", area,
			"action", cmd.Action,
			"error", err)
	}
}

func (a *Agent) lockArea(area string) func() {
	a.areaMu.Lock()
	mu, ok := a.areaLocks[area]
	if !ok {
		mu = &sync.Mutex{}
		a.areaLocks[area] = mu
	}
	a.areaMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (a *Agent) solarDay(now time.Time) circadian.SolarDay {
	a.dayMu.Lock()
	defer a.dayMu.Unlock()

	if !a.day.Covers(now) {
		a.day = a.clock.Day(now)
		sun := a.day.LocalSunTimes()
		a.logger.Debug("Computed solar day",
			"date", now.In(a.clock.Location()).Format("2006-01-02"),
			"has_landmarks", a.day.HasLandmarks(),
			"sunrise", sun.Sunrise,
			"sunset", sun.Sunset,
			"solar_noon", sun.SolarNoon)
	}
	return a.day
}

// conditions returns the solar hour and the environment inputs at now
func (a *Agent) conditions(now time.Time) (float64, circadian.Conditions) {
	day := a.solarDay(now)
	sun := day.SunTimes()
	level := a.outdoor.Normalized(now)
	return day.SolarTime(now), circadian.Conditions{Sun: &sun, Outdoor: &level}
}

// Areas returns every known area: configured ones plus any with stored state
func (a *Agent) Areas(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, area := range a.cfg.Areas {
		seen[area] = true
	}

	stored, err := a.store.Areas(ctx)
	if err != nil {
		return nil, err
	}
	for _, area := range stored {
		seen[area] = true
	}

	areas := make([]string, 0, len(seen))
	for area := range seen {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas, nil
}

// RefreshAll refreshes every known area. force bypasses the per-area minimum interval.
func (a *Agent) RefreshAll(ctx context.Context, force bool) {
	areas, err := a.Areas(ctx)
	if err != nil {
		a.logger.Error("Failed to list areas", "error", err)
		return
	}

	a.logger.Debug("Refreshing areas", "area_count", len(areas))
	for _, area := range areas {
		if err := a.Refresh(ctx, area, force); err != nil {
			a.logger.Error("Failed to refresh area", "area", area, "error", err)
		}
	}
}

// Refresh recomputes and publishes the lighting of one area if it is on and
// under circadian control. Adjustments left over from the other half of the
// day are cleared for every area, lit or not.
func (a *Agent) Refresh(ctx context.Context, area string, force bool) error {
	unlock := a.lockArea(area)
	defer unlock()

	state, err := a.store.Load(ctx, area)
	if err != nil {
		return err
	}

	now := a.now()
	cfg := a.profiles.For(area)
	hour, cond := a.conditions(now)

	state, err = a.settlePhase(ctx, area, hour, cfg, state)
	if err != nil {
		return err
	}
	if !state.IsOn || !state.IsCircadian {
		return nil
	}

	if !force && !a.refreshLimiter.Allow(area, now) {
		a.logger.Debug("Rate limited, skipping refresh",
			"area", area,
			"min_interval_ms", a.cfg.MinRefreshIntervalMs)
		return nil
	}
	if force {
		a.refreshLimiter.Record(area, now)
	}

	res := circadian.Calculate(hour, cfg, state, cond)
	return a.emit(ctx, area, actionOn, reasonRefresh, "", hour, state, res, now)
}

// settlePhase drops stepped values made in the other phase and persists the
// cleared state. Callers hold the area lock.
func (a *Agent) settlePhase(ctx context.Context, area string, hour float64, cfg circadian.Config, state circadian.AreaState) (circadian.AreaState, error) {
	stale := state.Phase
	next, cleared := state.SettlePhase(hour, cfg)
	if !cleared {
		return state, nil
	}
	if err := a.store.Save(ctx, area, next); err != nil {
		return state, err
	}
	a.logger.Info("Phase boundary crossed, cleared manual adjustments",
		"area", area,
		"stale_phase", stale,
		"frozen", next.IsFrozen())
	return next, nil
}

// Execute applies a command to an area and publishes the resulting output
func (a *Agent) Execute(ctx context.Context, area string, cmd Command) error {
	now := a.now()

	if cmd.Action == actionOutdoor {
		return a.setOutdoorOverride(ctx, cmd)
	}
	if cmd.manual() && !a.stepLimiter.AllowAt(area, now) {
		return ErrRateLimited
	}

	unlock := a.lockArea(area)
	defer unlock()

	state, err := a.store.Load(ctx, area)
	if err != nil {
		return err
	}

	cfg := a.profiles.For(area)
	hour, cond := a.conditions(now)

	state, err = a.settlePhase(ctx, area, hour, cfg, state)
	if err != nil {
		return err
	}
	if cmd.manual() && !state.IsOn {
		return ErrAreaOff
	}

	next := state
	publish := state.IsOn && state.IsCircadian
	action := actionOn

	switch cmd.Action {
	case actionStep, actionBrightStep, actionColorStep:
		var res *circadian.StepResult
		switch cmd.Action {
		case actionStep:
			res = circadian.Step(hour, cmd.Direction, cfg, state, cond)
		case actionBrightStep:
			res = circadian.BrightStep(hour, cmd.Direction, cfg, state, cond)
		default:
			res = circadian.ColorStep(hour, cmd.Direction, cfg, state, cond)
		}
		if res == nil {
			a.logger.Info("Step at limit, nothing to do",
				"area", area,
				"action", cmd.Action,
				"direction", cmd.Direction.String())
			return nil
		}
		next = state.Apply(res.StateUpdates).MarkPhase(hour, cfg)

	case actionSetPosition:
		res, err := circadian.SetPosition(hour, cmd.Value, cmd.Axis, cfg, state, cond)
		if err != nil {
			return err
		}
		next = state.Apply(res.StateUpdates).MarkPhase(hour, cfg)

	case actionDimTime:
		return a.dimTime(ctx, area, cmd, cfg, now)

	case actionFreeze:
		frozen := hour
		if cmd.Hour != nil {
			frozen = *cmd.Hour
		}
		next.FrozenAt = &frozen

	case actionUnfreeze:
		next.FrozenAt = nil

	case actionOn:
		next.IsOn = true
		publish = next.IsCircadian

	case actionOff:
		next.IsOn = false
		publish = true
		action = actionOff

	case actionCircadianOn:
		next.IsCircadian = true
		publish = next.IsOn

	case actionCircadianOff:
		next.IsCircadian = false
		publish = false

	case actionReset:
		next = state.Reset()
	}

	// Freezing or unfreezing can move the area into the other phase
	next, _ = next.SettlePhase(hour, cfg)

	if err := a.store.Save(ctx, area, next); err != nil {
		return err
	}

	a.logger.Info("Applied circadian command",
		"area", area,
		"action", cmd.Action,
		"correlation_id", cmd.CorrelationID,
		"brightness_mid", optional(next.BrightnessMid),
		"color_mid", optional(next.ColorMid),
		"color_override", optional(next.ColorOverride),
		"frozen_at", optional(next.FrozenAt))

	if !publish {
		return nil
	}

	a.refreshLimiter.Record(area, now)
	res := circadian.Calculate(hour, cfg, next, cond)
	return a.emit(ctx, area, action, reasonManual, cmd.CorrelationID, hour, next, res, now)
}

// dimTime publishes a time-shift dimming result without touching stored state
func (a *Agent) dimTime(ctx context.Context, area string, cmd Command, cfg circadian.Config, now time.Time) error {
	day := a.solarDay(now)
	res := circadian.DimmingStep(now, day, cmd.Direction, cfg)
	if res.AtLimit {
		a.logger.Info("Dimming at limit, nothing to do", "area", area, "direction", cmd.Direction.String())
		return nil
	}

	a.logger.Info("Dimming by time shift",
		"area", area,
		"direction", cmd.Direction.String(),
		"time_offset_minutes", res.TimeOffsetMinutes,
		"target_time", res.TargetTime.In(a.clock.Location()).Format(time.Kitchen))

	kelvin := float64(res.Kelvin)
	out := Output{
		Area:       area,
		Action:     actionOn,
		Brightness: res.Brightness,
		ColorTemp:  res.Kelvin,
		RGB:        circadian.KelvinToRGB(kelvin),
		XY:         circadian.KelvinToXY(kelvin),
		Reason:     reasonManual,
		Timestamp:  now,
	}
	if err := publishOutput(a.mqtt, a.cfg.ServiceName, a.colorMode, out); err != nil {
		return err
	}
	a.record(ctx, out, cmd.CorrelationID, day.SolarTime(now), circadian.AreaState{})
	return nil
}

func (a *Agent) setOutdoorOverride(ctx context.Context, cmd Command) error {
	overrides := a.outdoor.Overrides()
	if cmd.Condition == "" {
		if overrides.Clear() {
			a.logger.Info("Cleared outdoor condition override")
		}
	} else {
		expires, err := overrides.Set(cmd.Condition, cmd.Duration)
		if err != nil {
			return err
		}
		a.logger.Info("Set outdoor condition override",
			"condition", cmd.Condition,
			"expires_at", expires.Format(time.RFC3339))
	}

	a.RefreshAll(ctx, true)
	return nil
}

func (a *Agent) emit(ctx context.Context, area, action, reason, correlationID string, hour float64, state circadian.AreaState, res circadian.LightingResult, now time.Time) error {
	out := outputFromResult(area, action, reason, res, now)
	if err := publishOutput(a.mqtt, a.cfg.ServiceName, a.colorMode, out); err != nil {
		return err
	}

	a.logger.Info("Lighting output published",
		"area", area,
		"action", action,
		"reason", reason,
		"brightness", res.Brightness,
		"color_temp", res.ColorTemp,
		"phase", res.Phase,
		"active_rules", res.ActiveRules,
		"solar_hour", hour)

	a.record(ctx, out, correlationID, hour, state)
	return nil
}

// record keeps the output in the recent list and in history. Failures are
// logged; the lights have already been updated.
func (a *Agent) record(ctx context.Context, out Output, correlationID string, hour float64, state circadian.AreaState) {
	entry := RecentEntry{
		Action:     out.Action,
		Reason:     out.Reason,
		Brightness: out.Brightness,
		ColorTemp:  out.ColorTemp,
		Rules:      out.Rules,
		Timestamp:  out.Timestamp.Format(time.RFC3339),
	}
	if err := a.store.PushRecent(ctx, out.Area, entry); err != nil {
		a.logger.Warn("Failed to store recent output", "area", out.Area, "error", err)
	}

	if a.history == nil {
		return
	}
	event := &Event{
		Area:          out.Area,
		Action:        out.Action,
		Reason:        out.Reason,
		CorrelationID: correlationID,
		Brightness:    out.Brightness,
		ColorTemp:     out.ColorTemp,
		SolarHour:     hour,
		ActiveRules:   out.Rules,
		State:         state,
		Timestamp:     out.Timestamp,
	}
	if err := a.history.Record(ctx, event); err != nil {
		a.logger.Warn("Failed to record lighting event", "area", out.Area, "error", err)
	}
}

// AreaState returns the stored state of an area
func (a *Agent) AreaState(ctx context.Context, area string) (circadian.AreaState, error) {
	return a.store.Load(ctx, area)
}

// RecentOutput returns the latest published output for an area
func (a *Agent) RecentOutput(ctx context.Context, area string, n int) ([]RecentEntry, error) {
	return a.store.Recent(ctx, area, n)
}

// Status summarizes the agent for the detailed health endpoint
func (a *Agent) Status(ctx context.Context) map[string]interface{} {
	now := a.now()
	status := map[string]interface{}{
		"solar_hour": a.solarDay(now).SolarTime(now),
		"outdoor":    a.outdoor.Status(now),
	}
	if areas, err := a.Areas(ctx); err == nil {
		status["areas"] = areas
	}
	if a.cfg.OutdoorSource == string(outdoor.SourceLux) {
		readings, err := a.luxStore.Range(ctx, now.Add(-statusLuxWindow), now)
		if err == nil {
			status["outdoor_window"] = outdoor.SummarizeWindow(readings, statusLuxWindow, now)
		}
	}
	return status
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
