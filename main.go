package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/photoframebackend/backup"
	"github.com/camden-git/photoframebackend/config"
	"github.com/camden-git/photoframebackend/display"
	"github.com/camden-git/photoframebackend/gallery"
	"github.com/camden-git/photoframebackend/handlers"
	"github.com/camden-git/photoframebackend/media"
	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/schedule"
	"github.com/camden-git/photoframebackend/store"
	"github.com/camden-git/photoframebackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create data directory %s: %v", cfg.DataPath, err)
	}

	mediaStore, err := media.NewLocalStorage(cfg.StoragePath, filepath.Base(cfg.UploadsPath), filepath.Base(cfg.ThumbnailsPath))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	mediaProcessor := media.NewProcessor(mediaStore)

	catalog := gallery.NewCatalog(filepath.Join(cfg.DataPath, "catalog.json"), mediaStore)
	settingsStore := store.New(filepath.Join(cfg.DataPath, "settings.json"), models.DefaultSettings)
	usersStore := store.New(filepath.Join(cfg.DataPath, "users.json"), models.DefaultUserDB)
	backupConfigStore := store.New(filepath.Join(cfg.DataPath, "backup_config.json"), models.DefaultBackupConfig)
	backupLogStore := store.New(filepath.Join(cfg.DataPath, "backup_log.json"), func() models.BackupLog { return models.BackupLog{} })

	log.Printf("Initializing image processor worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImageWorkers, cfg.ImageQueueSize)
	imageProcessor := workers.NewImageProcessor(mediaProcessor, catalog, cfg.ThumbnailMaxSize, cfg.ImageQueueSize, cfg.NumImageWorkers)
	defer imageProcessor.Stop()

	coordinator := display.NewCoordinator()

	syncer := &backup.RcloneSyncer{ConfigPath: cfg.RcloneConfigPath, Remote: cfg.RcloneRemote}
	orchestrator := &backup.Orchestrator{
		Lock:       &backup.Lock{Path: filepath.Join(cfg.DataPath, "backup.lock")},
		Syncer:     syncer,
		ConfigFile: backupConfigStore,
		LogFile:    backupLogStore,
		UploadsDir: cfg.UploadsPath,
		DataDir:    cfg.DataPath,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupScheduler := &backup.Scheduler{Orchestrator: orchestrator}
	backupScheduler.Start(ctx)
	defer backupScheduler.Stop()

	powerController := &schedule.PowerController{
		Commander: &schedule.CECCommander{},
		Schedules: func() []models.TVSchedule {
			settings, err := settingsStore.Load()
			if err != nil {
				log.Printf("power: cannot read settings: %v", err)
				return nil
			}
			return settings.TVSchedules
		},
	}
	powerController.Start(ctx)
	defer powerController.Stop()

	authHandler := handlers.NewAuthHandler(usersStore, cfg.JWTSecret)
	if err := authHandler.EnsureAdminAccount(); err != nil {
		log.Fatalf("FATAL: Failed to seed admin account: %v", err)
	}

	galleryHandler := handlers.NewGalleryHandler(catalog)
	uploadHandler := handlers.NewUploadHandler(catalog, mediaStore, imageProcessor)
	groupHandler := handlers.NewGroupHandler(catalog)
	settingsHandler := handlers.NewSettingsHandler(settingsStore)
	displayHandler := handlers.NewDisplayHandler(coordinator, catalog, settingsStore)
	backupHandler := handlers.NewBackupHandler(orchestrator)
	userAdminHandler := handlers.NewUserAdminHandler(usersStore)
	imageServer := handlers.NewImageServer(catalog, cfg.UploadsPath, cfg.ThumbnailsPath)

	requireAuth := handlers.AuthMiddleware(usersStore, []byte(cfg.JWTSecret))
	displayAuth := handlers.DisplayAuth(cfg.DisplayToken)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Display-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// display surface: read-only, optionally guarded by the display token
		r.Group(func(r chi.Router) {
			r.Use(displayAuth)
			r.Get("/display/images", galleryHandler.EnabledImages)
			r.Get("/display/settings", settingsHandler.GetSettings)
			r.Get("/display/state", displayHandler.State)
			r.Post("/display/control", displayHandler.Control)
			r.Get("/images/{filename}/file", imageServer.Original)
			r.Get("/images/{filename}/thumbnail", imageServer.Thumbnail)
		})

		r.Get("/maintenance-window", settingsHandler.MaintenanceWindow)

		// management surface
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandler.CurrentUser)
			r.Post("/auth/password", authHandler.ChangePassword)

			r.Route("/images", func(r chi.Router) {
				r.Get("/", galleryHandler.ListImages)
				r.Post("/", uploadHandler.Upload)
				r.Post("/bulk", galleryHandler.BulkImages)
				r.Post("/reorder", galleryHandler.Reorder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", galleryHandler.GetImage)
					r.Patch("/", galleryHandler.UpdateImage)
					r.Delete("/", galleryHandler.DeleteImage)
					r.Get("/duplicates", galleryHandler.Duplicates)
				})
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.ListGroups)
				r.Post("/", groupHandler.CreateGroup)
				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", groupHandler.UpdateGroup)
					r.Delete("/", groupHandler.DeleteGroup)
				})
			})

			r.Get("/settings", settingsHandler.GetSettings)
			r.Post("/settings", settingsHandler.UpdateSettings)
			r.Get("/tv-schedules", settingsHandler.GetTVSchedules)
			r.Post("/tv-schedules", settingsHandler.UpdateTVSchedules)

			// privileged operations
			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireAdmin)

				r.Post("/images/backfill-hashes", galleryHandler.BackfillHashes)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userAdminHandler.ListUsers)
					r.Post("/", userAdminHandler.CreateUser)
					r.Delete("/{username}", userAdminHandler.DeleteUser)
					r.Post("/{username}/reset-password", userAdminHandler.ResetPassword)
				})

				r.Route("/backup", func(r chi.Router) {
					r.Get("/status", backupHandler.Status)
					r.Post("/run", backupHandler.Run)
					r.Post("/restore", backupHandler.Restore)
					r.Get("/history", backupHandler.History)
					r.Get("/settings", backupHandler.GetSettings)
					r.Post("/settings", backupHandler.UpdateSettings)
					r.Post("/configure", backupHandler.Configure)
					r.Post("/test", backupHandler.TestConnection)
				})
			})
		})
	})

	fmt.Printf("Server starting on %s\n", cfg.ListenAddr)
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL: %v", err)
	}
	log.Printf("Server stopped")
}
