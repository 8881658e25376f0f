package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
)

// TimelineEvent is one line of the run timeline
type TimelineEvent struct {
	Elapsed     float64
	Layer       string
	Description string
	Success     bool // only meaningful when IsCheck
	IsCheck     bool
}

const rule = "══════════════════════════════════════════════════════════"

// GenerateTimeline renders a readable report of a run
func GenerateTimeline(result *scenario.TestResult, events []TimelineEvent) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "╔%s╗\n", rule)
	fmt.Fprintf(&sb, "║  Scenario: %-46s║\n", truncate(result.Scenario.Name, 46))
	fmt.Fprintf(&sb, "║  Duration: %-46s║\n", formatDuration(result.EndTime.Sub(result.StartTime)))
	fmt.Fprintf(&sb, "╚%s╝\n\n", rule)

	for _, event := range events {
		icon := "→"
		if event.IsCheck {
			icon = checkIcon(event.Success)
		}
		fmt.Fprintf(&sb, "[%7.2fs] %s %-10s: %s\n", event.Elapsed, icon, event.Layer, event.Description)
	}

	sb.WriteString("\n=== Expectations ===\n")

	byLayer := make(map[string][]scenario.ExpectationResult)
	var layers []string
	for _, r := range result.Expectations {
		if _, seen := byLayer[r.Layer]; !seen {
			layers = append(layers, r.Layer)
		}
		byLayer[r.Layer] = append(byLayer[r.Layer], r)
	}
	sort.Strings(layers)

	for _, layer := range layers {
		fmt.Fprintf(&sb, "Layer: %s\n", layer)
		for _, r := range byLayer[layer] {
			fmt.Fprintf(&sb, "  %s %s", checkIcon(r.Passed), r.Expectation.Describe())
			if !r.Passed {
				fmt.Fprintf(&sb, ": %s", r.Reason)
			} else if conds := conditions(r.Expectation); conds != "" {
				fmt.Fprintf(&sb, ": %s", conds)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	status := "✓ ALL CHECKS PASSED"
	if result.FailedCount > 0 {
		status = fmt.Sprintf("✗ %d CHECK(S) FAILED", result.FailedCount)
	}

	fmt.Fprintf(&sb, "╔%s╗\n", rule)
	fmt.Fprintf(&sb, "║  %-56s║\n", "SUMMARY")
	fmt.Fprintf(&sb, "║  Passed: %-48d║\n", result.PassedCount)
	fmt.Fprintf(&sb, "║  Failed: %-48d║\n", result.FailedCount)
	fmt.Fprintf(&sb, "║  Status: %-48s║\n", status)
	fmt.Fprintf(&sb, "╚%s╝\n", rule)

	return sb.String()
}

func checkIcon(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// conditions lists what a passed expectation matched, sorted by key
func conditions(exp scenario.Expectation) string {
	switch exp.Kind() {
	case "redis":
		return fmt.Sprintf("%v", exp.Expected)
	case "postgres":
		return fmt.Sprintf("%v", exp.PostgresExpected)
	}

	keys := make([]string, 0, len(exp.Payload))
	for key := range exp.Payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, exp.Payload[key]))
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	minutes := int(seconds / 60)
	return fmt.Sprintf("%dm %.1fs", minutes, seconds-float64(minutes*60))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
