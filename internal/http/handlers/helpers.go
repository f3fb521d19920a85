package handlers

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDetail emits the {"detail": <string>} error shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeFieldErrors emits the {"detail": [{field, message}...]} error shape.
func writeFieldErrors(w http.ResponseWriter, status int, fields interface{}) {
	writeJSON(w, status, map[string]interface{}{"detail": fields})
}
