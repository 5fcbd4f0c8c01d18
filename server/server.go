package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unframe/cache"
	"unframe/config"
	"unframe/core/auth"
	"unframe/core/engagement"
	"unframe/core/ingest"
	"unframe/db"
	"unframe/logger"
	"unframe/model"
	"unframe/repository"
	"unframe/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
	})

	auth.Configure(cfg.JWTSecret, cfg.JWTExpiry)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.MigrateEngagementTables(); err != nil {
		logger.Fatal("Failed to migrate engagement tables", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("Successfully connected to Redis")

	trackRepo := repository.NewMySQLTrackRepository()
	userRepo := repository.NewMySQLUserRepository(db.DB)
	profileRepo := repository.NewGormProfileRepository(db.GormDB)
	likeRepo := repository.NewGormLikeRepository(db.GormDB)
	rewardRepo := repository.NewGormRewardRepository(db.GormDB)

	listenDedup := cache.NewListenDedup(db.RedisClient, cfg.ListenDedupWindow)
	sessions := cache.NewSessionCache(db.RedisClient)

	engagementSvc := engagement.NewService(profileRepo, likeRepo, rewardRepo, trackRepo, listenDedup)

	hub := NewEventsHub(sessions)

	apiHandler := NewAPIHandler(trackRepo, userRepo, likeRepo, engagementSvc, sessions, hub, cfg)

	var watcher *ingest.Watcher
	if cfg.IngestDir != "" {
		watcher = ingest.NewWatcher(cfg.IngestDir, trackRepo, func(track *model.Track) {
			logger.Info("Published from ingest directory",
				logger.Int64("trackId", track.ID),
				logger.String("title", track.Title))
			hub.BroadcastCatalogChanged()
		})
		if err := watcher.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start ingest watcher", logger.ErrorField(err))
		}
		defer watcher.Stop()
	}

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Auth
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/anonymous", apiHandler.AnonymousHandler).Methods(http.MethodPost)

	// Catalog
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.AdminMiddleware(apiHandler.PublishTrackHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.AdminMiddleware(apiHandler.DeleteTrackHandler))).Methods(http.MethodDelete)

	// Engagement
	router.HandleFunc("/api/engagement/listen", apiHandler.AuthMiddleware(apiHandler.RecordListenHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/engagement/share", apiHandler.AuthMiddleware(apiHandler.RecordShareHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/like", apiHandler.AuthMiddleware(apiHandler.ToggleLikeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/likes", apiHandler.AuthMiddleware(apiHandler.GetLikesHandler)).Methods(http.MethodGet)

	// Profile
	router.HandleFunc("/api/profile", apiHandler.AuthMiddleware(apiHandler.GetProfileHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/profile/onboarding", apiHandler.AuthMiddleware(apiHandler.OnboardingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/image", apiHandler.AuthMiddleware(apiHandler.UploadImageHandler)).Methods(http.MethodPost)

	// Media objects and the events socket
	router.PathPrefix("/media/").HandlerFunc(apiHandler.MediaHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/events", hub.HandleWS)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
