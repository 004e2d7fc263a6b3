package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ecoleta/ecoleta-api/internal/config"
	"github.com/ecoleta/ecoleta-api/internal/database"
	"github.com/ecoleta/ecoleta-api/internal/handlers"
	"github.com/ecoleta/ecoleta-api/internal/jobs"
	"github.com/ecoleta/ecoleta-api/internal/repository"
	cronjobs "github.com/ecoleta/ecoleta-api/internal/scheduler"
	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"github.com/ecoleta/ecoleta-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	goalRepo := repository.NewGoalRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	wasteRepo := repository.NewWasteRepository(db)

	// --- Services ---
	goalService := services.NewGoalService(goalRepo)
	scoreService := services.NewScoreService(scoreRepo, goalRepo)
	scheduleService := services.NewScheduleService(scheduleRepo, scoreService)
	wasteService := services.NewWasteService(wasteRepo)

	// --- Jobs ---
	sweeper := jobs.NewExpirationSweeper(goalService, scoreService)
	cronjobs.StartSweeperCron(sweeper, cfg.SweepSchedule)

	// --- Handlers ---
	goalHandler := handlers.NewGoalHandler(goalService)
	scoreHandler := handlers.NewScoreHandler(scoreService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	wasteHandler := handlers.NewWasteHandler(wasteService)
	adminHandler := handlers.NewAdminHandler(sweeper)

	middleware.InitPrometheus()
	go middleware.CleanupVisitors()

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Schedule routes (pickup requests)
	scheduleRoutes := router.PathPrefix("/schedules").Subrouter()
	scheduleRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	scheduleRoutes.HandleFunc("", scheduleHandler.CreateScheduleHandler).Methods("POST")
	scheduleRoutes.HandleFunc("", scheduleHandler.GetSchedulesHandler).Methods("GET")
	scheduleRoutes.HandleFunc("/{id}", scheduleHandler.GetScheduleHandler).Methods("GET")
	scheduleRoutes.HandleFunc("/{id}", scheduleHandler.UpdateScheduleHandler).Methods("PUT")

	// Score routes (participation ledgers)
	scoreRoutes := router.PathPrefix("/scores").Subrouter()
	scoreRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	scoreRoutes.HandleFunc("", scoreHandler.EnrollHandler).Methods("POST")
	scoreRoutes.HandleFunc("", scoreHandler.GetScoresHandler).Methods("GET")
	scoreRoutes.HandleFunc("/summary", scoreHandler.SummaryHandler).Methods("GET")
	scoreRoutes.HandleFunc("/{id}", scoreHandler.GetScoreHandler).Methods("GET")
	scoreRoutes.HandleFunc("/{id}", scoreHandler.UpdateScoreHandler).Methods("PUT")

	// Goal catalog routes
	goalRoutes := router.PathPrefix("/goals").Subrouter()
	goalRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	goalRoutes.HandleFunc("", goalHandler.GetGoalsHandler).Methods("GET")
	goalRoutes.HandleFunc("/{id}", goalHandler.GetGoalHandler).Methods("GET")

	// Waste catalog routes
	wasteRoutes := router.PathPrefix("/wastes").Subrouter()
	wasteRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	wasteRoutes.HandleFunc("", wasteHandler.ListWasteTypesHandler).Methods("GET")
	wasteRoutes.HandleFunc("/{id}", wasteHandler.GetWasteTypeHandler).Methods("GET")

	// Admin routes
	adminRoutes := router.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole("admin"))
	adminRoutes.HandleFunc("/goals", goalHandler.CreateGoalHandler).Methods("POST")
	adminRoutes.HandleFunc("/goals/{id}", goalHandler.UpdateGoalHandler).Methods("PUT")
	adminRoutes.HandleFunc("/sweep", adminHandler.SweepHandler).Methods("POST")

	// Prometheus metrics behind basic auth
	router.Handle("/metrics", middleware.MetricsAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	// Apply shared middleware
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.MonitorMiddleware)
	router.Use(middleware.RateLimitMiddleware)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
