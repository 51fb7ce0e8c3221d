package handlers

import (
	"net/http"
)

// LivenessMessage is the fixed body returned by GET /.
const LivenessMessage = "✅ Media Generation API is running."

// Home is the liveness check.
func Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(headerContentType, "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessMessage))
}
