package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vk/mcuforge/internal/stepgraph"
)

// startStatusServer exposes the in-progress run over HTTP: /health answers
// liveness probes and /status reports every planned step's current state as
// JSON. Long toolchain builds run for hours, so operators poll this instead
// of scraping logs.
func (a *App) startStatusServer(port int, exec *stepgraph.Executor) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")

		snapshot := exec.Snapshot()
		type stepStatus struct {
			stepgraph.Status
			Error string `json:"error,omitempty"`
		}
		out := make([]stepStatus, len(snapshot))
		for i, st := range snapshot {
			out[i] = stepStatus{Status: st}
			if st.Err != nil {
				out[i].Error = st.Err.Error()
			}
		}
		if err := json.NewEncoder(w).Encode(out); err != nil {
			a.logger.Error("Encoding status response failed.", "error", err)
		}
	})

	addr := fmt.Sprintf(":%d", port)
	go func() {
		a.logger.Info("Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Status server failed.", "error", err)
		}
	}()
}
