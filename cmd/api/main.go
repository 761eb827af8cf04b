package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campushub/backend/config"
	"github.com/campushub/backend/internal/bootstrap"
	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/evict"
	"github.com/campushub/backend/internal/mutate"
	"github.com/campushub/backend/internal/store"
	"github.com/campushub/backend/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fb, err := bootstrap.InitFirebase(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}
	defer fb.Close()

	docs := store.NewFirestore(fb.Firestore)
	blobs := store.NewCloudBlobs(fb.Bucket, fb.BucketName)

	entities := cache.New()
	pipeline := mutate.NewPipeline(docs, blobs, entities)

	watcher := watch.NewManager(docs, entities)
	watcher.Start(ctx)
	defer watcher.Stop()

	sweeper := evict.New(pipeline, entities)
	sweeper.Start()
	defer sweeper.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  "campushub-backend",
		Version:      cfg.App.Version,
		AllowOrigins: cfg.Server.AllowOrigins,
		MaxUploadMB:  cfg.App.MaxUploadMB,
		Cache:        entities,
		Pipeline:     pipeline,
		Auth:         fb.Auth,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
