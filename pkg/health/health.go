package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

const checkTimeout = 2 * time.Second

// StatusFunc reports agent-specific details for the detailed endpoint
type StatusFunc func(ctx context.Context) map[string]interface{}

// Checker provides health check functionality for agents
type Checker struct {
	mqtt     mqtt.Client
	redis    redis.Client
	postgres postgres.Client
	status   StatusFunc
	logger   *slog.Logger
}

// NewChecker creates a new health checker with the given dependencies
func NewChecker(mqttClient mqtt.Client, redisClient redis.Client, logger *slog.Logger) *Checker {
	return &Checker{
		mqtt:   mqttClient,
		redis:  redisClient,
		logger: logger,
	}
}

// WithPostgres adds the history database to the detailed check
func (h *Checker) WithPostgres(client postgres.Client) *Checker {
	h.postgres = client
	return h
}

// WithStatus adds agent details to the detailed check
func (h *Checker) WithStatus(fn StatusFunc) *Checker {
	h.status = fn
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Services  *Services              `json:"services,omitempty"`
	Agent     map[string]interface{} `json:"agent,omitempty"`
}

// Services represents the status of external dependencies
type Services struct {
	Redis    string `json:"redis"`
	MQTT     string `json:"mqtt"`
	Postgres string `json:"postgres,omitempty"`
}

// HandlerFunc returns 200 while the process is alive without checking dependencies
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		h.write(w, http.StatusOK, response)
	}
}

// DetailedHandlerFunc returns a handler that checks all dependencies and
// includes the agent status
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		services := &Services{
			Redis: "disconnected",
			MQTT:  "disconnected",
		}

		if h.mqtt != nil && h.mqtt.IsConnected() {
			services.MQTT = "connected"
		}

		if h.redis != nil {
			if err := h.redis.Ping(ctx); err == nil {
				services.Redis = "connected"
			} else {
				h.logger.Warn("Redis health check failed", "error", err)
			}
		}

		status := "healthy"
		statusCode := http.StatusOK

		if h.postgres != nil {
			services.Postgres = "disconnected"
			pg, err := h.postgres.HealthCheck(ctx)
			if err == nil && pg.Connected {
				services.Postgres = "connected"
			} else {
				// History is optional; a lost database only degrades
				status = "degraded"
			}
		}

		if services.Redis == "disconnected" || services.MQTT == "disconnected" {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		}
		if h.status != nil {
			response.Agent = h.status(ctx)
		}

		h.write(w, statusCode, response)
	}
}

func (h *Checker) write(w http.ResponseWriter, statusCode int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
