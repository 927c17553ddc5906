package handler

import (
	"net/http"
	"time"
)

// SystemHandler serves the unauthenticated service endpoints: the health
// check and the API index at the root.
type SystemHandler struct {
	version string
}

func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

// HandleHealth reports liveness.
//
// HTTP: GET /health
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// HandleRoot describes the API for anyone poking at the base URL.
//
// HTTP: GET /
func (h *SystemHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Stock Recommendation Agent API",
		"version": h.version,
		"features": []string{
			"Google Authentication",
			"Daily Query Limits",
			"JWT Token Security",
		},
		"endpoints": map[string]string{
			"auth":    "/auth/google",
			"profile": "/auth/profile",
			"chat":    "/chat",
			"health":  "/health",
		},
	})
}
