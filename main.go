package main

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/videosurvey/backend/config"
	"github.com/videosurvey/backend/db"
	"github.com/videosurvey/backend/export"
	"github.com/videosurvey/backend/handlers"
	"github.com/videosurvey/backend/lifecycle"
	"github.com/videosurvey/backend/logger"
	"github.com/videosurvey/backend/media"
	"github.com/videosurvey/backend/store"
)

func main() {
	cfg := config.Load()
	log := logger.New("videosurvey-backend")

	gdb, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}
	defer db.Close(gdb)

	videos, err := media.NewDiskStore(filepath.Join(cfg.MediaDir, "videos"))
	if err != nil {
		log.WithError(err).Fatal("video store init failed")
	}
	snapshots, err := media.NewDiskStore(filepath.Join(cfg.MediaDir, "snapshots"))
	if err != nil {
		log.WithError(err).Fatal("snapshot store init failed")
	}

	st := store.New(gdb)
	manager := lifecycle.NewManager(st, videos, snapshots, log)
	packager := export.NewPackager(st, videos, snapshots, log)
	h := handlers.New(st, manager, packager, log)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods("GET")
	api.HandleFunc("/surveys", h.CreateSurvey).Methods("POST")
	api.HandleFunc("/surveys", h.ListSurveys).Methods("GET")
	api.HandleFunc("/surveys/{id}", h.GetSurvey).Methods("GET")
	api.HandleFunc("/surveys/{id}", h.DeleteSurvey).Methods("DELETE")
	api.HandleFunc("/surveys/{id}/start", h.StartSubmission).Methods("POST")
	api.HandleFunc("/submissions/{id}/answers", h.SaveAnswers).Methods("POST")
	api.HandleFunc("/submissions/{id}/media", h.SaveMedia).Methods("POST")
	api.HandleFunc("/submissions/{id}/complete", h.CompleteSubmission).Methods("POST")
	api.HandleFunc("/submissions/{id}/export", h.ExportSubmission).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.WithField("port", cfg.Port).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, c.Handler(r)); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
