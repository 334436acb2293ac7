package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type errorBody struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError answers in the same envelope the handlers use, tagged with the
// request ID when one has been assigned.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{
		Error:     message,
		RequestID: GetRequestID(r.Context()),
	})
}

func routeTemplate(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
