package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicflow/config"
	deliveryHttp "clinicflow/internal/delivery/http"
	"clinicflow/internal/delivery/http/handler"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/infrastructure/cache"
	"clinicflow/internal/infrastructure/database"
	"clinicflow/internal/repository"
	"clinicflow/internal/service"
	"clinicflow/internal/usecase"
	"clinicflow/pkg/jwt"
	"clinicflow/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	ScopeLocks  *service.ScopeLockService
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Apply schema migrations
	if err := database.RunMigrations(cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	server, tokenService, scopeLocks := initializeServer(cfg, db, redisClient)
	app.Server = server
	app.ScopeLocks = scopeLocks

	// Re-seed token counters before taking traffic so a Redis flush can
	// never hand out a token below the database high-water mark
	syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := tokenService.SyncOnStartup(syncCtx); err != nil {
		return nil, fmt.Errorf("failed to sync token counters: %w", err)
	}
	logrus.Info("Queue token counters synced")

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// initializeServer creates and configures the HTTP server
func initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*http.Server, *service.TokenService, *service.ScopeLockService) {
	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	roleRepo := repository.NewRoleRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	patientProfileRepo := repository.NewPatientProfileRepository()
	availabilityRepo := repository.NewDoctorAvailabilityRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	queueRepo := repository.NewQueueEntryRepository()
	medicalRecordRepo := repository.NewMedicalRecordRepository()
	billingRepo := repository.NewBillingRepository()
	serviceItemRepo := repository.NewServiceItemRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize domain services
	auditService := service.NewAuditService(db, log, auditLogRepo)
	recordStore := service.NewMedicalRecordService(log, medicalRecordRepo)
	notifier := service.NewMailNotifier(cfg.SMTP, log)
	scopeLocks := service.NewScopeLockService(log)
	tokenService := service.NewTokenService(db, redisClient, log, queueRepo, cfg.Queue)

	// Queue engine shared by every waiting-line mutation
	engine := usecase.NewQueueEngine(scopeLocks, tokenService, queueRepo)

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, userRepo, roleRepo, doctorProfileRepo, patientProfileRepo, jwtService, redisClient)
	doctorProfileUsecase := usecase.NewDoctorProfileUsecase(db, log, userRepo, doctorProfileRepo, auditService)
	patientProfileUsecase := usecase.NewPatientProfileUsecase(db, log, userRepo, patientProfileRepo, auditService)
	availabilityUsecase := usecase.NewAvailabilityUsecase(db, log, availabilityRepo, doctorProfileRepo, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, appointmentRepo, queueRepo, doctorProfileRepo, patientProfileRepo, availabilityRepo, engine, auditService, notifier)
	queueUsecase := usecase.NewQueueUsecase(db, log, queueRepo, appointmentRepo, engine, auditService)
	consultationUsecase := usecase.NewConsultationUsecase(db, log, appointmentRepo, queueRepo, medicalRecordRepo, patientProfileRepo, engine, recordStore, auditService, notifier)
	billingUsecase := usecase.NewBillingUsecase(db, log, billingRepo, appointmentRepo, queueRepo, serviceItemRepo, doctorProfileRepo, patientProfileRepo, auditService, notifier)
	catalogUsecase := usecase.NewCatalogUsecase(db, serviceItemRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator, jwtService)
	doctorHandler := handler.NewDoctorHandler(doctorProfileUsecase, customValidator)
	patientHandler := handler.NewPatientHandler(patientProfileUsecase, customValidator)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	queueHandler := handler.NewQueueHandler(queueUsecase, customValidator)
	consultationHandler := handler.NewConsultationHandler(consultationUsecase, customValidator)
	billingHandler := handler.NewBillingHandler(billingUsecase, customValidator)
	catalogHandler := handler.NewCatalogHandler(catalogUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(
		authHandler,
		doctorHandler,
		patientHandler,
		availabilityHandler,
		appointmentHandler,
		queueHandler,
		consultationHandler,
		billingHandler,
		catalogHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
	)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}

	return server, tokenService, scopeLocks
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Stop scope lock maintenance
	if app.ScopeLocks != nil {
		app.ScopeLocks.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
