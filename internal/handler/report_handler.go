package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/report"
	"FloodMonitorAPI/internal/repository"
	"FloodMonitorAPI/internal/service"
)

type ReportHandler struct {
	statsService *service.StatsService
	history      repository.IAlertRepository
	threshold    int
	location     *time.Location
	log          *logger.Logger
}

func NewReportHandler(
	statsService *service.StatsService,
	history repository.IAlertRepository,
	threshold int,
	location *time.Location,
	log *logger.Logger,
) *ReportHandler {
	return &ReportHandler{
		statsService: statsService,
		history:      history,
		threshold:    threshold,
		location:     location,
		log:          log,
	}
}

func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/report", h.GetReport).Methods("GET")
}

func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := r.URL.Query().Get("device_id")
	hours := float64(models.DefaultStatsHours)
	if v := queryFloat(r, "hours"); v != nil {
		hours = *v
	}

	stats, err := h.statsService.GetStats(ctx, deviceID, hours)
	if err != nil {
		h.log.Error("Report stats failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	readings, err := h.statsService.Recent(ctx, models.ReadingQuery{
		Limit:      report.MaxReadingRows,
		DeviceID:   deviceID,
		SinceHours: &hours,
	})
	if err != nil {
		h.log.Error("Report readings failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var alerts []models.AlertEvent
	if h.history != nil {
		if alerts, err = h.history.GetHistory(ctx, 20); err != nil {
			h.log.Warn("Report alert history unavailable: %v", err)
		}
	}

	now := time.Now()
	var buf bytes.Buffer
	err = report.Write(&buf, report.Data{
		GeneratedAt: now,
		Location:    h.location,
		DeviceID:    deviceID,
		Hours:       hours,
		Threshold:   h.threshold,
		Stats:       stats,
		Readings:    readings,
		Alerts:      alerts,
	})
	if err != nil {
		h.log.Error("Report rendering failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="flood-report-%s.pdf"`, now.UTC().Format("20060102-150405")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
