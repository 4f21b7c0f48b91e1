package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-verify-nosql/internal/application/verification"
	"github.com/go-verify-nosql/internal/config"
	"github.com/go-verify-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-nosql/internal/infrastructure/jwt"
	"github.com/go-verify-nosql/internal/infrastructure/memory"
	"github.com/go-verify-nosql/internal/infrastructure/smtp"
	transporthttp "github.com/go-verify-nosql/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	var store verification.Store
	switch cfg.VerificationStore {
	case "memory":
		log.Println("WARN: using in-memory verification store, codes do not survive restarts")
		store = memory.NewVerificationStore()
	case "dynamo":
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)
		store = dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications)
	default:
		log.Fatalf("unknown VERIFICATION_STORE %q (want dynamo or memory)", cfg.VerificationStore)
	}

	// JWT provider is optional; verify still works without grants.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, verification grants disabled: %v", err)
	}

	deps := &transporthttp.Deps{
		VerificationStore: store,
		Mailer:            smtp.NewMailer(cfg),
		JWTProvider:       jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s)", cfg.AppPort, cfg.AppEnv, cfg.VerificationStore)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
