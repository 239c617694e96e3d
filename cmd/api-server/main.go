package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bidtrack/db"
	"bidtrack/db/migrations"
	"bidtrack/internal/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	connString := os.Getenv("POSTGRES_CONN")
	if connString == "" {
		logger.Fatal("POSTGRES_CONN env variable is not set")
	}

	dbConn, err := sqlx.Connect("postgres", connString)
	if err != nil {
		logger.Fatal("cannot connect to db", zap.Error(err))
	}
	defer dbConn.Close()

	migrations.Run()

	store := db.NewStorage(dbConn)
	h := handlers.NewHandler(store, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Post("/projects/new", h.CreateProjectHandler)
		r.Get("/projects", h.GetProjectsHandler)
		r.Get("/projects/{projectId}", h.GetProjectHandler)
		r.Patch("/projects/{projectId}/edit", h.EditProjectHandler)
		r.Put("/projects/{projectId}/status", h.ChangeProjectStatusHandler)

		r.Get("/projects/{projectId}/financials", h.GetFinancialHandler)
		r.Put("/projects/{projectId}/financials", h.SaveFinancialHandler)

		r.Get("/projects/{projectId}/contract", h.GetContractHandler)
		r.Put("/projects/{projectId}/contract", h.UpdateContractHandler)

		r.Post("/projects/{projectId}/competitors", h.AddCompetitorHandler)
		r.Get("/projects/{projectId}/competitors", h.GetCompetitorsHandler)

		r.Get("/projects/{projectId}/changelog", h.GetChangeLogHandler)
		r.Put("/projects/{projectId}/changelog/attribute", h.AttributeChangeLogHandler)
		r.Get("/projects/{projectId}/snapshots", h.GetSnapshotsHandler)

		r.Get("/analysis/summary", h.GetSummaryHandler)
	})

	serverAddr := os.Getenv("SERVER_ADDRESS")
	if serverAddr == "" {
		serverAddr = "0.0.0.0:8080"
	}

	logger.Info("starting server", zap.String("addr", serverAddr))
	if err := http.ListenAndServe(serverAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
