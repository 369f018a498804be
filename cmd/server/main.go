package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/courtierpro/brokerage-backend/internal/config"
	"github.com/courtierpro/brokerage-backend/internal/db"
	"github.com/courtierpro/brokerage-backend/internal/email"
	"github.com/courtierpro/brokerage-backend/internal/goroutine"
	httpHandlers "github.com/courtierpro/brokerage-backend/internal/http/handlers"
	httpRouter "github.com/courtierpro/brokerage-backend/internal/http/router"
	"github.com/courtierpro/brokerage-backend/internal/logger"
	"github.com/courtierpro/brokerage-backend/internal/repository"
	"github.com/courtierpro/brokerage-backend/internal/service"
	"github.com/courtierpro/brokerage-backend/internal/storage"
	"github.com/courtierpro/brokerage-backend/internal/tasks"
	"github.com/courtierpro/brokerage-backend/internal/ws"
)

func main() {
	// Context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: config load failed: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Database and migrations.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: database connection failed: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: migrations failed: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	objectStorage, err := storage.NewS3Storage(ctx, storage.Config{
		Region:          cfg.AwsRegion,
		AccessKeyID:     cfg.AwsAccessKeyID,
		SecretAccessKey: cfg.AwsSecretAccessKey,
		Bucket:          cfg.AwsS3Bucket,
		Endpoint:        cfg.AwsS3Endpoint,
		MaxUploadBytes:  cfg.MaxUploadSizeMB * 1024 * 1024,
	})
	if err != nil {
		log.Fatalf("main: object storage init failed: %v", err)
	}

	emailSender := email.NewSender(email.SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.SMTPFromAddress,
	})

	// Repositories.
	userRepo := repository.NewUserRepository(dbConn)
	transactionRepo := repository.NewTransactionRepository(dbConn)
	appointmentRepo := repository.NewAppointmentRepository(dbConn)
	documentRepo := repository.NewDocumentRepository(dbConn)
	offerRepo := repository.NewOfferRepository(dbConn)
	propertyRepo := repository.NewPropertyRepository(dbConn)
	conditionRepo := repository.NewConditionRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	timelineRepo := repository.NewTimelineRepository(dbConn)

	// Services.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	timelineService := service.NewTimelineService(timelineRepo)
	emailService := service.NewEmailService(emailSender)

	appointmentService := service.NewAppointmentService(
		appointmentRepo, transactionRepo, propertyRepo, userRepo,
		notificationService, emailService, timelineService, cfg.ReminderLookahead,
	)
	documentService := service.NewDocumentService(
		documentRepo, transactionRepo, userRepo, objectStorage,
		notificationService, emailService, timelineService,
	)
	transactionService := service.NewTransactionService(
		transactionRepo, offerRepo, propertyRepo, conditionRepo, documentRepo,
		userRepo, objectStorage, notificationService, emailService, timelineService,
	)

	// WebSockets push unread notifications to connected clients.
	hub := ws.NewHub(ctx)
	goroutine.SafeGo(hub.Run)
	notificationService.SetHub(hub)

	// Background jobs over Redis.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	taskProcessor := tasks.NewTaskProcessor(appointmentService)
	taskServer := tasks.NewServer(rdb)
	taskMux := tasks.NewMux(taskProcessor)
	goroutine.SafeGo(func() {
		if err := taskServer.Run(taskMux); err != nil {
			log.Printf("main: task server stopped: %v", err)
		}
	})

	scheduler, err := tasks.NewScheduler(rdb, cfg.ReminderCronSpec)
	if err != nil {
		log.Fatalf("main: scheduler init failed: %v", err)
	}
	goroutine.SafeGo(func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("main: scheduler stopped: %v", err)
		}
	})

	// Catch up on reminders missed while the instance was down.
	taskClient := tasks.NewClient(rdb)
	defer taskClient.Close()
	if err := tasks.EnqueueReminders(taskClient); err != nil {
		log.Printf("main: reminder sweep enqueue failed: %v", err)
	}

	// HTTP handlers.
	authHandler := httpHandlers.NewAuthHandler(authService)
	transactionHandler := httpHandlers.NewTransactionHandler(transactionService, timelineService)
	appointmentHandler := httpHandlers.NewAppointmentHandler(appointmentService)
	documentHandler := httpHandlers.NewDocumentHandler(documentService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		transactionHandler,
		appointmentHandler,
		documentHandler,
		notificationHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		taskServer.Shutdown()
		scheduler.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: http server shutdown failed: %v", err)
		}
	}()

	log.Printf("main: HTTP server listening on port %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: server exited with error: %v", err)
	}
}

// safeClose closes the database connection.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: database close failed: %v", err)
	}
}
