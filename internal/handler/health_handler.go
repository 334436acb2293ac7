package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/mqtt"
	"FloodMonitorAPI/internal/repository"
)

type HealthHandler struct {
	db         *database.Database
	readings   repository.ReadingStore
	mqttClient *mqtt.Client
	log        *logger.Logger
}

// NewHealthHandler builds the health endpoints. mqttClient is nil when MQTT
// ingestion is disabled.
func NewHealthHandler(db *database.Database, readings repository.ReadingStore, mqttClient *mqtt.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		readings:   readings,
		mqttClient: mqttClient,
		log:        log,
	}
}

func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/health/live", h.Liveness).Methods("GET")
	r.HandleFunc("/health/ready", h.Readiness).Methods("GET")
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}

	response.Services.Database = h.db.Health(ctx) == nil
	healthy := response.Services.Database

	if response.Services.Database {
		if count, err := h.readings.Count(ctx); err == nil {
			response.Readings = count
		}
	}

	if h.mqttClient != nil {
		mqttHealth, err := h.mqttClient.Health(ctx)
		connected := err == nil && mqttHealth.Connected
		response.Services.MQTT = &connected
		healthy = healthy && connected
	}

	statusCode := http.StatusOK
	if !healthy {
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Health check degraded - DB: %v, MQTT: %v", response.Services.Database, response.Services.MQTT != nil && *response.Services.MQTT)
	}

	respondJSON(w, statusCode, response)
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness only depends on the database; MQTT is an optional ingress.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		h.log.Warn("Readiness check failed - DB error: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
