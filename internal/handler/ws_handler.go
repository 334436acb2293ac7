package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/websocket"
)

type LiveHandler struct {
	hub *websocket.Hub
	log *logger.Logger
}

func NewLiveHandler(hub *websocket.Hub, log *logger.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, log: log}
}

func (h *LiveHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.Serve).Methods("GET")
}

func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, w, r, h.log)
}
