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

	"github.com/mhutchens/chorebank/internal/backup"
	"github.com/mhutchens/chorebank/internal/database"
	"github.com/mhutchens/chorebank/internal/logging"
	"github.com/mhutchens/chorebank/internal/push"
	"github.com/mhutchens/chorebank/internal/server"
)

func main() {
	port := os.Getenv("CHOREBANK_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREBANK_DB_PATH")
	if dbPath == "" {
		dbPath = "chorebank.db"
	}

	logger := logging.Setup(os.Getenv("CHOREBANK_LOG_LEVEL"), os.Getenv("CHOREBANK_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("CHOREBANK_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CHOREBANK_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey == "" || pushCfg.VAPIDPrivateKey == "" {
		logger.Warn("VAPID keys not set, push notifications disabled",
			"hint", "set CHOREBANK_VAPID_PUBLIC_KEY and CHOREBANK_VAPID_PRIVATE_KEY")
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("CHOREBANK_S3_ENDPOINT"),
			Bucket:    os.Getenv("CHOREBANK_S3_BUCKET"),
			Region:    os.Getenv("CHOREBANK_S3_REGION"),
			AccessKey: os.Getenv("CHOREBANK_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("CHOREBANK_S3_SECRET_KEY"),
		},
		DBPath:   dbPath,
		Interval: 24 * time.Hour,
	}
	if s := os.Getenv("CHOREBANK_BACKUP_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			backupCfg.Interval = d
		}
	}

	srv := server.New(db, backupCfg, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Periodic cleanup of expired sessions and stale rate limit entries.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("deleted expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Chorebank running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
