package httpx

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDetail writes the backend's error shape: {"detail": "..."}.
func WriteDetail(w http.ResponseWriter, code int, detail string) {
	WriteJSON(w, code, map[string]string{"detail": detail})
}

// FieldError is one entry of a 422 detail list.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// WriteFieldErrors writes a 422 with a detail list built from field -> msg,
// ordered by field name.
func WriteFieldErrors(w http.ResponseWriter, errs map[string]string) {
	detail := make([]FieldError, 0, len(errs))
	for _, field := range slices.Sorted(maps.Keys(errs)) {
		detail = append(detail, FieldError{Loc: []string{"body", field}, Msg: errs[field], Type: "value_error"})
	}
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": detail})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
