package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the HTTP surface: batch submission, account lookup, metrics,
// and health.
func Router(h *Handler) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	r.HandleFunc("/transactions", h.SubmitBatch).Methods("POST")
	r.HandleFunc("/accounts", h.GetAccounts).Methods("GET")

	return r
}
