package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medivize/api"
	"medivize/config"
	"medivize/metrics"
	"medivize/models"
	"medivize/providers/mlapi"
	"medivize/services"
	"medivize/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Database
	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		logging.Fatal("Failed to open drug database", zap.Error(err))
	}
	if err := storage.Ping(ctx, db); err != nil {
		logging.Fatal("Failed to connect to drug database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	logging.Info("Successfully connected to drug database.", zap.String("driver", cfg.DBDriver))

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Drug{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}
	if cfg.SeedDefaultDrugs {
		seedDefaultDrugs(db, logging)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Setup Upload Store
	var (
		uploads   storage.UploadStore
		uploadsFS http.FileSystem
	)
	switch cfg.UploadBackend {
	case "s3":
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		uploads = storage.NewS3Store(s3Client, cfg)
	default:
		local, err := storage.NewLocalStore(afero.NewOsFs(), cfg.UploadDir, "/uploads")
		if err != nil {
			logging.Fatal("Failed to prepare upload directory", zap.String("dir", cfg.UploadDir), zap.Error(err))
		}
		uploads = local
		uploadsFS = local.FileSystem()
	}
	logging.Info("Upload store ready", zap.String("backend", cfg.UploadBackend))

	// Setup Services
	classifier := mlapi.NewClient(cfg, logging)
	catalog := services.NewCatalogService(db, logging, m)
	gateway := services.NewClassificationService(uploads, classifier, catalog, cfg.UploadMaxBytes, logging, m)
	janitor := services.NewUploadJanitor(uploads, cfg.UploadRetention, logging, m)

	// Setup Router
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		Logger:         logging,
		Metrics:        m,
		Catalog:        catalog,
		Classifier:     gateway,
		MaxUploadBytes: cfg.UploadMaxBytes,
		CORSOrigins:    cfg.CORSOrigins,
		ExposeErrors:   cfg.ExposeErrorDetails,
		Uploads:        uploadsFS,
		MetricsHandler: promhttp.Handler(),
	})

	// Setup Cron
	cronScheduler := cron.New()
	if janitor.Enabled() {
		_, err := cronScheduler.AddFunc(cfg.CronSchedule, func() {
			logging.Info("Running scheduled upload cleanup...")
			if _, err := janitor.Run(ctx); err != nil {
				logging.Error("Cron job failed", zap.Error(err))
			}
		})
		if err != nil {
			logging.Fatal("Invalid CRON_SCHEDULE", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		logging.Info("Upload cleanup scheduled",
			zap.String("schedule", cfg.CronSchedule),
			zap.Duration("retention", cfg.UploadRetention))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Muss über dem Timeout des Klassifikators liegen.
		WriteTimeout: cfg.ClassifierTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	<-cronScheduler.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logging.Info("Server stopped.")
}

func seedDefaultDrugs(db *gorm.DB, logger *zap.Logger) {
	var count int64
	if err := db.Model(&models.Drug{}).Count(&count).Error; err != nil {
		logger.Warn("Failed to count drugs, skipping seed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	drugs := []models.Drug{
		{
			Name:        "Paracetamol",
			Size:        "500 mg",
			Type:        "Tablet",
			Purpose:     "Meredakan nyeri ringan hingga sedang dan menurunkan demam",
			Dosage:      "Dewasa: 1-2 tablet setiap 4-6 jam, maksimal 8 tablet per hari",
			HowToUse:    "Diminum sesudah makan dengan segelas air",
			SideEffects: "Mual, Ruam kulit, Gangguan hati pada dosis berlebih",
			Warnings:    "Jangan melebihi dosis harian. Hindari alkohol.",
		},
		{
			Name:        "Amoxicillin",
			Size:        "500 mg",
			Type:        "Kapsul",
			Purpose:     "Antibiotik untuk infeksi bakteri",
			Dosage:      "Dewasa: 1 kapsul setiap 8 jam",
			HowToUse:    "Diminum sampai habis sesuai resep dokter",
			SideEffects: "Diare, Mual, Reaksi alergi",
			Warnings:    "Hanya dengan resep dokter. Hentikan jika muncul reaksi alergi.",
		},
		{
			Name:        "Ibuprofen",
			Size:        "400 mg",
			Type:        "Tablet",
			Purpose:     "Anti nyeri dan anti radang",
			Dosage:      "Dewasa: 1 tablet setiap 6-8 jam",
			HowToUse:    "Diminum sesudah makan",
			SideEffects: "Nyeri lambung, Mual, Pusing",
			Warnings:    "Tidak untuk penderita tukak lambung.",
		},
	}
	if err := db.Create(&drugs).Error; err != nil {
		logger.Warn("Failed to seed default drugs", zap.Error(err))
	} else {
		logger.Info("Default drugs seeded.")
	}
}
