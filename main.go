package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ke2007/MarkdownShare/internal/handlers"
	"github.com/ke2007/MarkdownShare/internal/logging"
	"github.com/ke2007/MarkdownShare/internal/metrics"
	"github.com/ke2007/MarkdownShare/internal/middleware"
	"github.com/ke2007/MarkdownShare/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	h := handlers.New(config)

	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router)

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	handler := middleware.Logger(loggingConfig)(router)

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv)

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health, version and metrics
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Group content store
	api.HandleFunc("/groups", h.CreateGroup).Methods("POST")
	api.HandleFunc("/groups", h.ListGroups).Methods("GET")
	api.HandleFunc("/groups/{id}", h.GetGroup).Methods("GET")
	api.HandleFunc("/groups/{id}", h.DeleteGroup).Methods("DELETE")
	api.HandleFunc("/groups/{id}/complete", h.CompleteGroup).Methods("PUT")
	api.HandleFunc("/groups/{id}/name", h.RenameGroup).Methods("PUT")
	api.HandleFunc("/groups/{id}/files", h.AddGroupFiles).Methods("POST")
	api.HandleFunc("/groups/{id}/files/{filename}", h.GetGroupFile).Methods("GET")
	api.HandleFunc("/groups/{id}/files/{filename}", h.DeleteGroupFile).Methods("DELETE")
	api.HandleFunc("/groups/{id}/files/{filename}/name", h.RenameGroupFile).Methods("PUT")
	api.HandleFunc("/groups/{id}/thumbnails/{filename}", h.GetGroupThumbnail).Methods("GET")

	// Legacy flat store, kept reachable for old clients
	api.HandleFunc("/upload", h.Upload).Methods("POST")
	api.HandleFunc("/upload-clipboard", h.UploadClipboard).Methods("POST")
	api.HandleFunc("/files", h.ListFlatFiles).Methods("GET")
	api.HandleFunc("/files/{folder}/{filename}", h.GetFlatFile).Methods("GET")
	api.HandleFunc("/files/{folder}/{filename}", h.DeleteFlatFile).Methods("DELETE")
	api.HandleFunc("/thumbnails/{filename}", h.GetFlatThumbnail).Methods("GET")

	// Static frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.PublicDir)))

	return r
}

func handleShutdown(srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	startup.LogShutdownComplete()
}
