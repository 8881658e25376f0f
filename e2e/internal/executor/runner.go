package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/saaga0h/circadian-platform/e2e/internal/checker"
	"github.com/saaga0h/circadian-platform/e2e/internal/observer"
	"github.com/saaga0h/circadian-platform/e2e/internal/reporter"
	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
)

// MessageSource provides the captured MQTT traffic
type MessageSource interface {
	GetAllMessages() []observer.CapturedMessage
}

// Runner plays a scenario and checks its expectations
type Runner struct {
	player   *Player
	capture  MessageSource
	redis    checker.HashReader
	postgres *checker.PostgresChecker
	logger   *slog.Logger

	// Settle is waited before the first event so agents can subscribe
	Settle time.Duration
}

// NewRunner creates a runner. postgres may be nil when history is disabled;
// postgres expectations then fail.
func NewRunner(player *Player, capture MessageSource, redis checker.HashReader, postgres *checker.PostgresChecker, logger *slog.Logger) *Runner {
	return &Runner{
		player:   player,
		capture:  capture,
		redis:    redis,
		postgres: postgres,
		logger:   logger,
		Settle:   2 * time.Second,
	}
}

// step is one timed action; at equal times events run before waits and
// waits before checks
type step struct {
	time  int
	order int
	event *scenario.Event
	wait  *scenario.WaitPeriod
	layer string
	exp   *scenario.Expectation
}

func plan(s *scenario.Scenario) []step {
	var steps []step
	for i := range s.Events {
		steps = append(steps, step{time: s.Events[i].Time, order: 0, event: &s.Events[i]})
	}
	for i := range s.Wait {
		steps = append(steps, step{time: s.Wait[i].Time, order: 1, wait: &s.Wait[i]})
	}

	layers := make([]string, 0, len(s.Expectations))
	for layer := range s.Expectations {
		layers = append(layers, layer)
	}
	sort.Strings(layers)
	for _, layer := range layers {
		exps := s.Expectations[layer]
		for i := range exps {
			steps = append(steps, step{time: exps[i].Time, order: 2, layer: layer, exp: &exps[i]})
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].time != steps[j].time {
			return steps[i].time < steps[j].time
		}
		return steps[i].order < steps[j].order
	})
	return steps
}

// Run executes a scenario. Expectations are checked at their own time
// slot, interleaved with events.
func (r *Runner) Run(ctx context.Context, s *scenario.Scenario) (*scenario.TestResult, []reporter.TimelineEvent, error) {
	r.logger.Info("Starting scenario", "name", s.Name, "areas", s.Setup.Areas)

	if r.Settle > 0 {
		r.logger.Info("Waiting for agents to settle", "duration", r.Settle)
		select {
		case <-time.After(r.Settle):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	start := time.Now()
	result := &scenario.TestResult{Scenario: s, StartTime: start}
	var timeline []reporter.TimelineEvent

	for _, st := range plan(s) {
		if err := WaitUntil(ctx, start, st.time); err != nil {
			return nil, nil, fmt.Errorf("scenario interrupted: %w", err)
		}
		elapsed := GetElapsed(start)

		switch {
		case st.event != nil:
			r.logger.Info("Publishing event",
				"elapsed_s", fmt.Sprintf("%.2f", elapsed),
				"category", st.event.Category(),
				"area", st.event.Area,
				"description", st.event.Description)

			if err := r.player.PublishEvent(*st.event); err != nil {
				return nil, nil, fmt.Errorf("failed to publish event: %w", err)
			}
			timeline = append(timeline, reporter.TimelineEvent{
				Elapsed:     elapsed,
				Layer:       st.event.Category(),
				Description: describeEvent(st.event),
			})

		case st.wait != nil:
			timeline = append(timeline, reporter.TimelineEvent{
				Elapsed:     elapsed,
				Layer:       "wait",
				Description: st.wait.Description,
			})

		default:
			passed, reason, actual := r.check(ctx, *st.exp)
			result.Expectations = append(result.Expectations, scenario.ExpectationResult{
				Layer:       st.layer,
				Expectation: *st.exp,
				Passed:      passed,
				Reason:      reason,
				Actual:      actual,
			})

			if passed {
				result.PassedCount++
				r.logger.Info("Expectation passed", "layer", st.layer, "check", st.exp.Describe())
			} else {
				result.FailedCount++
				r.logger.Warn("Expectation failed", "layer", st.layer, "check", st.exp.Describe(), "reason", reason)
			}

			timeline = append(timeline, reporter.TimelineEvent{
				Elapsed:     elapsed,
				Layer:       st.layer,
				Description: st.exp.Describe(),
				Success:     passed,
				IsCheck:     true,
			})
		}
	}

	result.EndTime = time.Now()
	result.Passed = result.FailedCount == 0

	return result, timeline, nil
}

func (r *Runner) check(ctx context.Context, exp scenario.Expectation) (bool, string, interface{}) {
	switch exp.Kind() {
	case "postgres":
		if r.postgres == nil {
			return false, "postgres checks need history enabled", nil
		}
		return r.postgres.Check(ctx, exp)
	case "redis":
		return checker.CheckRedisExpectation(ctx, r.redis, exp)
	default:
		return checker.CheckExpectation(exp, r.capture.GetAllMessages())
	}
}

func describeEvent(e *scenario.Event) string {
	switch e.Category() {
	case scenario.CategoryCommand:
		return fmt.Sprintf("%s %v (%s)", e.Area, e.Command["action"], e.Description)
	case scenario.CategoryLux:
		return fmt.Sprintf("%.0f lux (%s)", *e.Lux, e.Description)
	}
	return fmt.Sprintf("weather %v (%s)", e.Weather, e.Description)
}
