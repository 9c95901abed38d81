package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "github.com/tgrozenski/agent-email/cmd/api"
	authdomain "github.com/tgrozenski/agent-email/internal/auth/domain"
	authRepo "github.com/tgrozenski/agent-email/internal/auth/repository"
	authUsecase "github.com/tgrozenski/agent-email/internal/auth/usecase"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	docRepo "github.com/tgrozenski/agent-email/internal/document/repository"
	docUsecase "github.com/tgrozenski/agent-email/internal/document/usecase"
	emaildomain "github.com/tgrozenski/agent-email/internal/email/domain"
	emailRepo "github.com/tgrozenski/agent-email/internal/email/repository"
	"github.com/tgrozenski/agent-email/internal/email/scheduler"
	emailUsecase "github.com/tgrozenski/agent-email/internal/email/usecase"
	"github.com/tgrozenski/agent-email/internal/notification"
	"github.com/tgrozenski/agent-email/pkg/ai"
	"github.com/tgrozenski/agent-email/pkg/chroma"
	"github.com/tgrozenski/agent-email/pkg/config"
	"github.com/tgrozenski/agent-email/pkg/database"
	"github.com/tgrozenski/agent-email/pkg/embedding"
	"github.com/tgrozenski/agent-email/pkg/fcm"
	"github.com/tgrozenski/agent-email/pkg/gmail"
	"github.com/tgrozenski/agent-email/pkg/utils/crypto"
)

const renewTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.EncryptionKey == "" {
		log.Fatal("ENCRYPTION_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}, &emaildomain.DraftHistory{}, &docdomain.Document{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db, cfg.DBPoolTimeout)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db, cfg.DBPoolTimeout)
	draftHistoryRepo := emailRepo.NewDraftHistoryRepository(db, cfg.DBPoolTimeout)
	documentRepo := docRepo.NewDocumentRepository(db, cfg.DBPoolTimeout)

	encrypt := func(plaintext string) (string, error) { return crypto.Encrypt(plaintext, cfg.EncryptionKey) }
	decrypt := func(ciphertext string) (string, error) { return crypto.Decrypt(ciphertext, cfg.EncryptionKey) }

	// Gmail access
	gmailService := gmail.NewService(gmail.WithTimeout(cfg.GmailTimeout))
	broker := gmail.NewCredentialBroker(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.GoogleTokenURL, cfg.GmailTimeout)

	// Documents and retrieval
	embedder, err := embedding.NewLocalEmbedder()
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	var index docUsecase.SemanticIndex
	var searcher docUsecase.DocumentSearcher = docUsecase.NewVectorSearcher(documentRepo)
	if cfg.VectorBackend == "chroma" {
		chromaClient, err := chroma.NewChromaClient(ctx, cfg, embedder.Function())
		if err != nil {
			log.Printf("[WARN] Failed to initialize Chroma client, using pgvector search: %v", err)
		} else {
			index = chromaClient
			searcher = docUsecase.NewIndexSearcher(chromaClient, documentRepo)
			log.Println("Chroma client initialized successfully")
		}
	}
	documentUc := docUsecase.NewDocumentUsecase(documentRepo, embedder, index)
	retriever := docUsecase.NewContextRetriever(embedder, searcher)

	// Draft generation
	generator, err := ai.NewGenerator(ctx, ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		GeminiModel:   cfg.GeminiModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI provider:", err)
	}
	log.Printf("AI service initialized with provider: %s", cfg.AIProvider)
	draftGenerator := emailUsecase.NewDraftGenerator(generator, emailUsecase.DefaultRetryPolicy(), cfg.GenerationTimeout)

	processor := emailUsecase.NewNotificationProcessor(userRepo, draftHistoryRepo, broker, decrypt, gmailService, retriever, draftGenerator, cfg.ContextTopK)

	// Initialize FCM Client (optional, drafts are created without it)
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			processor.SetNotifier(notification.NewDraftNotifier(fcmTokenRepo, fcmClient))
		}
	}

	// Watch upkeep
	watchTopic := cfg.WatchTopic()
	renewer := emailUsecase.NewWatchRenewer(userRepo, broker, decrypt, gmailService, watchTopic)
	if watchTopic != "" {
		watchScheduler := scheduler.NewWatchScheduler(renewer, cfg.WatchRenewInterval, renewTimeout)
		watchScheduler.Start()
		defer watchScheduler.Stop()
	} else {
		log.Printf("[WARN] GOOGLE_PUBSUB_TOPIC not configured, watch renewal disabled")
	}

	// Pull subscription (optional, the push endpoint serves the same purpose)
	if cfg.GoogleProjectID != "" && cfg.GooglePubSubSubscription != "" {
		notifService, err := notification.NewService(ctx, cfg.GoogleProjectID, cfg.TopicID(), cfg.GooglePubSubSubscription, cfg.GoogleCredentials, processor)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			defer notifService.Close()
			go func() {
				if err := notifService.Start(ctx); err != nil {
					log.Printf("[ERROR] Notification service stopped: %v", err)
				}
			}()
		}
	}

	authUc := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, broker, authUsecase.NewGoogleIDTokenVerifier(cfg.GoogleClientID), gmailService, encrypt, watchTopic)

	// Initialize HTTP handler
	handler := api.NewHandler(authUc, documentUc, retriever, processor, renewer)
	srv := handler.Server(":" + cfg.Port)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
