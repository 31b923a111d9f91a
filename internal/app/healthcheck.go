package app

import (
	"errors"
	"fmt"
	"net/http"
)

// healthcheckHandler serves the liveness endpoint.
func (a *App) healthcheckHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	return mux
}

// startHealthcheckServer runs a minimal HTTP endpoint reporting liveness
// during long workflow runs. It blocks, so callers start it in a goroutine.
func (a *App) startHealthcheckServer(port int) {
	addr := fmt.Sprintf(":%d", port)
	a.logger.Info("🩺 Health check server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
	if err := http.ListenAndServe(addr, a.healthcheckHandler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("Health check server failed unexpectedly.", "error", err)
	}
}
