package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sendrec/vidwidget/internal/chat"
	"github.com/sendrec/vidwidget/internal/database"
	"github.com/sendrec/vidwidget/internal/email"
	"github.com/sendrec/vidwidget/internal/events"
	"github.com/sendrec/vidwidget/internal/notify"
	"github.com/sendrec/vidwidget/internal/server"
	"github.com/sendrec/vidwidget/internal/slack"
	"github.com/sendrec/vidwidget/internal/storage"
	"github.com/sendrec/vidwidget/internal/widgets"
)

func main() {
	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	var objects widgets.ObjectStorage
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         bucket,
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getEnv("S3_REGION", "eu-central-1"),
		})
		if err != nil {
			log.Fatalf("storage initialization failed: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("storage bucket check failed: %v", err)
		}
		objects = store
		log.Println("storage bucket ready")
	} else {
		log.Println("S3_BUCKET not set, s3:// video sources disabled")
	}

	var assets fs.FS
	if dir := os.Getenv("EMBED_ASSETS_DIR"); dir != "" {
		assets = os.DirFS(dir)
		log.Printf("serving embed assets from %s", dir)
	}

	geo := events.OpenGeoIP(os.Getenv("GEOIP_DB_PATH"))
	defer func() { _ = geo.Close() }()

	chatCfg := chat.Config{
		WebhookURL: os.Getenv("CHAT_WEBHOOK_URL"),
		Secret:     os.Getenv("CHAT_WEBHOOK_SECRET"),
	}
	if chatCfg.WebhookURL != "" {
		log.Println("chat handoff relay enabled")
	}

	var notifiers []chat.Notifier
	if slackURL := os.Getenv("SLACK_WEBHOOK_URL"); slackURL != "" {
		notifiers = append(notifiers, slack.New(slackURL))
		log.Println("slack handoff notifications enabled")
	}
	if listmonkURL := os.Getenv("LISTMONK_URL"); listmonkURL != "" {
		notifiers = append(notifiers, email.New(email.Config{
			BaseURL:    listmonkURL,
			Username:   os.Getenv("LISTMONK_USERNAME"),
			Password:   os.Getenv("LISTMONK_PASSWORD"),
			TemplateID: int(getEnvInt64("LISTMONK_HANDOFF_TEMPLATE_ID", 0)),
			To:         os.Getenv("HANDOFF_EMAIL_TO"),
		}))
		log.Println("email handoff notifications enabled")
	}
	var notifier chat.Notifier
	if len(notifiers) > 0 {
		notifier = notify.NewMultiHandoffNotifier(notifiers...)
	}

	adminKeyHash := os.Getenv("ADMIN_API_KEY_HASH")
	if adminKeyHash == "" {
		log.Println("ADMIN_API_KEY_HASH not set, admin API disabled")
	}

	srv := server.New(server.Config{
		DB:              db.Pool,
		Pinger:          db,
		Storage:         objects,
		AssetsFS:        assets,
		SessionSecret:   sessionSecret,
		AdminKeyHash:    adminKeyHash,
		BaseURL:         getEnv("BASE_URL", "http://localhost:"+port),
		AllowedOrigins:  parseList(getEnv("ALLOWED_ORIGINS", "*")),
		StorageEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
		Chat:            chatCfg,
		Notifier:        notifier,
		GeoIP:           geo,
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	srv.Start(bgCtx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(getEnvInt64("READ_TIMEOUT_SECONDS", 30)) * time.Second,
		WriteTimeout:      time.Duration(getEnvInt64("WRITE_TIMEOUT_SECONDS", 60)) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("vidwidget listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseList splits a comma-separated env value, dropping blanks.
func parseList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
