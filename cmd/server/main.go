package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/draftcore/draftcore/backend-go/internal/auth"
	"github.com/draftcore/draftcore/backend-go/internal/collab"
	"github.com/draftcore/draftcore/backend-go/internal/config"
	"github.com/draftcore/draftcore/backend-go/internal/db"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/export"
	mw "github.com/draftcore/draftcore/backend-go/internal/middleware"
	"github.com/draftcore/draftcore/backend-go/internal/project"
	"github.com/draftcore/draftcore/backend-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		slog.Error("engine options", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		slog.Error("open database", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(store)

	hub := collab.NewHub(engineOpts, projectService.SaveSketch, cfg.AutosaveInterval)
	go hub.Run()

	projectHandler := project.NewHandler(projectService, hub)

	loadForExport := func(ctx context.Context, projectID, userID string) (*document.Sketch, error) {
		if projectID == typeid.PlaygroundProjectID {
			return document.NewSampleSketch(), nil
		}
		sv, err := projectService.LatestSketch(ctx, projectID, userID)
		if err != nil {
			return nil, err
		}
		return sv.Sketch, nil
	}
	exportHandler := export.NewHandler(loadForExport, engineOpts.ViewBox, cfg.ExportMaxPixels)

	origins := mw.SplitOrigins(cfg.AllowedOrigins)
	wsHandler := collab.NewHandler(hub, authService, projectService, mw.OriginHosts(origins))

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if err := store.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "database unavailable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/invite", projectHandler.Invite).Methods("POST")
	api.HandleFunc("/projects/{projectId}/members", projectHandler.ListMembers).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members/{userId}", projectHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", projectHandler.PutLatestSnapshot).Methods("PUT")
	api.HandleFunc("/projects/{projectId}/import", projectHandler.Import).Methods("POST")
	api.HandleFunc("/projects/{projectId}/export.svg", exportHandler.ExportSVG).Methods("GET")
	api.HandleFunc("/projects/{projectId}/export.png", exportHandler.ExportPNG).Methods("GET")

	r.Handle("/ws/project/{projectId}", wsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(origins)(r), // preflights are answered before routing
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so dirty rooms are saved.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
