package api

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape for every terminal path, success or failure.
// Data is present iff OK; Error is present iff not OK.
type Envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *AppError `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{OK: true, Data: data})
}

func Fail(w http.ResponseWriter, appErr *AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	json.NewEncoder(w).Encode(Envelope{OK: false, Error: appErr})
}
