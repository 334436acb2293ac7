package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
	log          *logger.Logger
}

func NewStatsHandler(statsService *service.StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		log:          log,
	}
}

func (h *StatsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")
}

func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	hours := float64(models.DefaultStatsHours)
	if v := queryFloat(r, "hours"); v != nil {
		hours = *v
	}

	stats, err := h.statsService.GetStats(r.Context(), r.URL.Query().Get("device_id"), hours)
	if err != nil {
		h.log.Error("Failed to compute stats: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stats.Count == 0 {
		respondJSON(w, http.StatusOK, models.EmptyStatsResponse{OK: true})
		return
	}

	respondJSON(w, http.StatusOK, models.StatsResponse{OK: true, Stats: &stats})
}
