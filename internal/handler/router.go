package handler

import (
	"net/http"

	"github.com/Dan9191/cofrinho-service/internal/middleware"
	"github.com/gorilla/mux"
)

// NewRouter registers the API routes
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/simulations", h.Simulate).Methods(http.MethodPost)
	r.HandleFunc("/simulations/export", h.Export).Methods(http.MethodPost)
	r.HandleFunc("/snapshots/import", h.Import).Methods(http.MethodPost)
	r.HandleFunc("/rates/current", h.CurrentRate).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(h.cfg))
	authRouter.HandleFunc("/rates/refresh", h.RefreshRate).Methods(http.MethodPost)
	authRouter.HandleFunc("/simulations/email", h.EmailExport).Methods(http.MethodPost)
	return r
}
