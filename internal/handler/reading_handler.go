package handler

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/service"
)

const maxPayloadBytes = 64 << 10

type ReadingHandler struct {
	ingestService *service.IngestService
	statsService  *service.StatsService
	log           *logger.Logger
}

func NewReadingHandler(ingestService *service.IngestService, statsService *service.StatsService, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{
		ingestService: ingestService,
		statsService:  statsService,
		log:           log,
	}
}

func (h *ReadingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/data", h.Ingest).Methods("POST")
	r.HandleFunc("/api/logs", h.QueryLogs).Methods("GET")
}

// Ingest accepts a device reading regardless of Content-Type.
func (h *ReadingHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	reading, err := h.ingestService.Ingest(r.Context(), body, "http")
	if err != nil {
		respondError(w, statusFor(err), publicMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, models.IngestResponse{
		OK: true,
		Received: models.ReceivedSummary{
			DeviceID:     reading.DeviceID,
			LevelPercent: reading.LevelPercent,
			UltrasonicCM: reading.UltrasonicCM,
		},
	})
}

func (h *ReadingHandler) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := models.ReadingQuery{
		Limit:      queryInt(r, "limit", models.DefaultQueryLimit),
		DeviceID:   r.URL.Query().Get("device_id"),
		SinceHours: queryFloat(r, "hours"),
	}

	readings, err := h.statsService.Recent(r.Context(), q)
	if err != nil {
		h.log.Error("Failed to query readings: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, readings)
}
