package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/Fahry-a/Chat/internal/config"
	"github.com/Fahry-a/Chat/internal/database"
	"github.com/Fahry-a/Chat/internal/repository"
	"github.com/Fahry-a/Chat/internal/repository/memory"
	postgresrepo "github.com/Fahry-a/Chat/internal/repository/postgres"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/storage"
	"github.com/Fahry-a/Chat/internal/transport/http/handlers"
	"github.com/Fahry-a/Chat/internal/transport/http/middleware"
)

type repositories struct {
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	files         repository.FileRepository
	contacts      repository.ContactRepository
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	repos, closeDB, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening store")
	}
	defer closeDB()

	// Services
	authService := service.NewAuthService(repos.users, cfg.JWTSecret, cfg.TokenTTL)
	conversationService := service.NewConversationService(repos.conversations, repos.messages, cfg.PresenceWindow)
	messageService := service.NewMessageService(repos.messages, repos.users, repos.files, conversationService)
	unreadService := service.NewUnreadService(repos.messages)
	contactService := service.NewContactService(repos.contacts, repos.users, repos.messages, cfg.PresenceWindow)
	syncService := service.NewSyncService(repos.messages, conversationService, unreadService, contactService)

	backend, err := openStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("opening file storage")
	}
	messageService.SetStorage(storage.NewService(backend, repos.files, cfg.MaxFileSize))

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	messageHandler := handlers.NewMessageHandler(messageService, cfg.MaxFileSize)
	conversationHandler := handlers.NewConversationHandler(conversationService, messageService)
	syncHandler := handlers.NewSyncHandler(syncService, unreadService)
	contactHandler := handlers.NewContactHandler(contactService)

	// Auth middleware, followed by the presence ping
	authenticate := middleware.Auth(cfg.JWTSecret)
	activity := middleware.Activity(authService)
	auth := func(h http.HandlerFunc) http.Handler {
		return authenticate(activity(h))
	}

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	if cfg.StorageDriver == "local" {
		prefix := "/uploads/"
		if u, err := url.Parse(cfg.UploadURL); err == nil && strings.Trim(u.Path, "/") != "" {
			prefix = "/" + strings.Trim(u.Path, "/") + "/"
		}
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.UploadDir))))
	}

	// Protected - Session
	mux.Handle("POST /api/v1/auth/logout", authenticate(http.HandlerFunc(authHandler.Logout)))

	// Protected - Sync
	mux.Handle("GET /api/v1/poll", auth(syncHandler.Poll))
	mux.Handle("GET /api/v1/unread", auth(syncHandler.Unread))

	// Protected - Messages
	mux.Handle("POST /api/v1/messages", auth(messageHandler.Send))
	mux.Handle("GET /api/v1/messages", auth(messageHandler.List))
	mux.Handle("POST /api/v1/messages/delete", auth(messageHandler.Delete))

	// Protected - Conversations
	mux.Handle("GET /api/v1/conversations", auth(conversationHandler.List))
	mux.Handle("POST /api/v1/conversations/{id}/read", auth(conversationHandler.MarkRead))

	// Protected - Contacts
	mux.Handle("GET /api/v1/contacts", auth(contactHandler.List))
	mux.Handle("POST /api/v1/contacts", auth(contactHandler.Add))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           middleware.Logging(middleware.CORS(cfg.AllowedOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("db", cfg.DBDriver).Str("storage", cfg.StorageDriver).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, func(), error) {
	switch cfg.DBDriver {
	case "memory":
		store := memory.New()
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return &repositories{
			users:         store.Users(),
			conversations: store.Conversations(),
			messages:      store.Messages(),
			files:         store.Files(),
			contacts:      store.Contacts(),
		}, func() {}, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrating: %w", err)
		}
		log.Info().Str("host", cfg.DBHost).Str("name", cfg.DBName).Msg("connected to database")
		return &repositories{
			users:         postgresrepo.NewUserRepo(pool),
			conversations: postgresrepo.NewConversationRepo(pool),
			messages:      postgresrepo.NewMessageRepo(pool),
			files:         postgresrepo.NewFileRepo(pool),
			contacts:      postgresrepo.NewContactRepo(pool),
		}, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func openStorage(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case "local":
		return storage.NewLocal(cfg.UploadDir, cfg.UploadURL)
	case "cloudinary":
		return storage.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
