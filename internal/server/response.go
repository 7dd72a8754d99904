package server

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
}

type cleanupResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}
