package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"attendancewizard/internal/config"
	"attendancewizard/internal/grading"
	"attendancewizard/internal/queue"
	"attendancewizard/internal/report"
	"attendancewizard/internal/store"
)

// Worker consumes export jobs and writes report files into EXPORT_DIR.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory: exports run inside the api process, no worker needed")
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	exports := report.NewExporter(grading.NewEngine(db, cfg.Location), q, cfg.ExportDir)

	log.Printf("worker started, writing exports to %s", cfg.ExportDir)
	if err := exports.Run(ctx); err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}
	log.Println("worker stopped")
}
