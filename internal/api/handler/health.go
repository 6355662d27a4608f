package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// homeserverPinger verifies the configured admin credential against the
// homeserver. Satisfied by *matrix.Client.WhoAmI.
type homeserverPinger func(ctx context.Context) error

// HealthDependenciesHandler handles GET /health/ready, the readiness probe.
// Checks MongoDB, Redis, and (when configured) the chat homeserver before
// declaring the service ready.
type HealthDependenciesHandler struct {
	mongo      *mongo.Database
	redis      *redis.Client
	homeserver homeserverPinger // nil when chat is not configured
}

func NewHealthDependenciesHandler(db *mongo.Database, rdb *redis.Client, homeserver homeserverPinger) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		mongo:      db,
		redis:      rdb,
		homeserver: homeserver,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true

	if err := h.mongo.Client().Ping(ctx, nil); err != nil {
		deps["mongodb"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		deps["mongodb"] = dependencyStatus{Status: "ok"}
	}

	if _, err := h.redis.Ping(ctx).Result(); err != nil {
		deps["redis"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		deps["redis"] = dependencyStatus{Status: "ok"}
	}

	// The homeserver is reported but never fails readiness: the service
	// degrades to soft no-ops when chat is down, it does not stop serving.
	if h.homeserver != nil {
		if err := h.homeserver(ctx); err != nil {
			deps["homeserver"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		} else {
			deps["homeserver"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
