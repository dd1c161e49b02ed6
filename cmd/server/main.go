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

	"github.com/Mandy9943/paylinksro-sub000/config"
	"github.com/Mandy9943/paylinksro-sub000/internal/database"
	"github.com/Mandy9943/paylinksro-sub000/internal/router"
	"github.com/Mandy9943/paylinksro-sub000/pkg/processor"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	database.SeedAdmin(db)

	var proc processor.Client
	if cfg.Processor.SecretKey != "" {
		proc = processor.NewRESTClient(cfg.Processor.BaseURL, cfg.Processor.SecretKey)
	} else {
		log.Printf("[Processor] no secret key configured, using in-memory stub")
		proc = processor.NewStub()
	}

	engine, affiliateSvc := router.Setup(cfg, db, proc)

	// Commission hold release is idempotent, so a simple ticker is enough.
	stopRelease := make(chan struct{})
	go func() {
		tick := time.NewTicker(15 * time.Minute)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				if _, err := affiliateSvc.ReleaseDueCommissions(); err != nil {
					log.Printf("release commissions: %v", err)
				}
			case <-stopRelease:
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	close(stopRelease)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
