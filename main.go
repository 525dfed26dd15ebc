package main

import (
	"log"

	api "jobtrail-backend/cmd/api"
	authdomain "jobtrail-backend/internal/auth/domain"
	authRepo "jobtrail-backend/internal/auth/repository"
	authUsecase "jobtrail-backend/internal/auth/usecase"
	credentialdomain "jobtrail-backend/internal/credentials/domain"
	credentialRepo "jobtrail-backend/internal/credentials/repository"
	credentialUsecase "jobtrail-backend/internal/credentials/usecase"
	ingestdomain "jobtrail-backend/internal/ingest/domain"
	ingestRepo "jobtrail-backend/internal/ingest/repository"
	"jobtrail-backend/internal/ingest/scheduler"
	ingestUsecase "jobtrail-backend/internal/ingest/usecase"
	"jobtrail-backend/pkg/ai"
	"jobtrail-backend/pkg/config"
	"jobtrail-backend/pkg/crypto"
	"jobtrail-backend/pkg/database"
	"jobtrail-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&credentialdomain.Credential{},
		&ingestdomain.TaskRun{},
		&ingestdomain.EmailRecord{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Token encryption for credentials at rest
	cipher, err := crypto.NewCipher(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize token encryption:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	credentialRepository := credentialRepo.NewCredentialRepository(db)
	taskRunRepo := ingestRepo.NewTaskRunRepository(db)
	emailRecordRepo := ingestRepo.NewEmailRecordRepository(db)

	// Credential store wraps the repository with encryption and refresh
	credentialStore := credentialUsecase.NewStore(credentialRepository, cipher, cfg)

	// Mail provider and classifier
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	classifier, err := ai.NewClassifier(ai.Config{
		Provider:     ai.ProviderGemini,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Fatal("Failed to initialize classifier:", err)
	}

	// Initialize use cases
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, credentialStore, cfg)

	engine := ingestUsecase.NewEngine(taskRunRepo, emailRecordRepo, userRepo, gmailService, classifier, cfg.DailyQuota())
	registry := ingestUsecase.NewRegistry()
	ingestService := ingestUsecase.NewIngestService(engine, registry, credentialStore, taskRunRepo, emailRecordRepo, userRepo)

	// Background batch sync for premium users
	batchScheduler := scheduler.NewBatchScheduler(ingestService)
	batchScheduler.Start()
	defer batchScheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, ingestService, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
