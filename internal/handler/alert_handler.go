package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/middleware"
	"FloodMonitorAPI/internal/repository"
	"FloodMonitorAPI/internal/service"
)

const testDeviceID = "test_device"

type AlertTestResponse struct {
	OK        bool `json:"ok"`
	AlertSent bool `json:"alert_sent"`
}

type AlertHandler struct {
	policy    *service.AlertPolicy
	history   repository.IAlertRepository
	jwtSecret string
	log       *logger.Logger
}

func NewAlertHandler(policy *service.AlertPolicy, history repository.IAlertRepository, jwtSecret string, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		policy:    policy,
		history:   history,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

func (h *AlertHandler) RegisterRoutes(r *mux.Router) {
	guard := middleware.RequireOperator(h.jwtSecret)

	r.Handle("/api/alert_test", guard(http.HandlerFunc(h.TestAlert))).Methods("GET", "POST")
	r.HandleFunc("/api/alerts", h.GetHistory).Methods("GET")
}

// TestAlert runs a synthetic reading through the live policy, cooldown included.
func (h *AlertHandler) TestAlert(w http.ResponseWriter, r *http.Request) {
	level := queryInt(r, "level", h.policy.Config().Threshold)

	h.log.Info("Alert test requested at level %d%%", level)
	sent := h.policy.Evaluate(r.Context(), level, testDeviceID, time.Now().Unix())

	respondJSON(w, http.StatusOK, AlertTestResponse{OK: true, AlertSent: sent})
}

func (h *AlertHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "alert history is not enabled")
		return
	}

	events, err := h.history.GetHistory(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.log.Error("Failed to load alert history: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"alerts": events,
	})
}
