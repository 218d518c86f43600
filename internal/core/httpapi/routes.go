package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the authenticated API routes on router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/documents", h.HandleCreate).Methods(http.MethodPost)
	router.HandleFunc("/documents", h.HandleList).Methods(http.MethodGet)
	router.HandleFunc("/documents/{id}", h.HandleGet).Methods(http.MethodGet)
	router.HandleFunc("/documents/{id}", h.HandleUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/documents/{id}", h.HandleReplace).Methods(http.MethodPut)
	router.HandleFunc("/documents/{id}", h.HandleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/documents/{id}/batch", h.HandleBatch).Methods(http.MethodPost)

	// Stateless operations
	router.HandleFunc("/operations/merge", h.HandleMerge).Methods(http.MethodPost)
	router.HandleFunc("/operations/apply", h.HandleApply).Methods(http.MethodPost)
}
