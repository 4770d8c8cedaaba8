package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"ajopay/pkg/logger"
)

// SystemHandler exposes health and dependency status.
type SystemHandler struct {
	db          *sqlx.DB
	redisClient *redis.Client
	logger      logger.Logger
	startTime   time.Time
}

func NewSystemHandler(db *sqlx.DB, redisClient *redis.Client, log logger.Logger) *SystemHandler {
	return &SystemHandler{
		db:          db,
		redisClient: redisClient,
		logger:      log,
		startTime:   time.Now(),
	}
}

// Health is the liveness probe.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

type dependencyStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // operational, degraded, outage
	LatencyMs int64  `json:"latency_ms"`
}

// Status reports each dependency with a live ping.
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	services := []dependencyStatus{
		{Name: "api", Status: "operational"},
	}

	dbStatus := "operational"
	dbStart := time.Now()
	err := h.db.PingContext(r.Context())
	dbLatency := time.Since(dbStart).Milliseconds()
	if err != nil {
		dbStatus = "outage"
		h.logger.Error("Database ping failed", map[string]interface{}{"error": err.Error()})
	} else if dbLatency > 200 {
		dbStatus = "degraded"
	}
	services = append(services, dependencyStatus{Name: "postgres", Status: dbStatus, LatencyMs: dbLatency})

	redisStatus := "operational"
	redisStart := time.Now()
	err = h.redisClient.Ping(r.Context()).Err()
	redisLatency := time.Since(redisStart).Milliseconds()
	if err != nil {
		redisStatus = "outage"
		h.logger.Error("Redis ping failed", map[string]interface{}{"error": err.Error()})
	} else if redisLatency > 50 {
		redisStatus = "degraded"
	}
	services = append(services, dependencyStatus{Name: "redis", Status: redisStatus, LatencyMs: redisLatency})

	status := http.StatusOK
	for _, s := range services {
		if s.Status == "outage" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	h.respondJSON(w, status, map[string]interface{}{"services": services})
}

func (h *SystemHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
