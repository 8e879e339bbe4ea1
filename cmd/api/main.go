package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	_ "violet-sync/docs" // Swagger docs
	"violet-sync/internal/api"
	"violet-sync/internal/config"
	"violet-sync/internal/deadletter"
	"violet-sync/internal/notify"
	"violet-sync/internal/pipeline"
	"violet-sync/internal/salesforce"
)

// @title Violet Sync API
// @version 1.0
// @description Retell webhook to Salesforce candidate handoff service

// @BasePath /

func main() {
	cfg := config.Load()

	resolver := salesforce.NewResolver(cfg.Salesforce)
	sfClient := salesforce.NewClient(resolver)

	var store deadletter.Store
	if cfg.DeadLetterDSN != "" {
		log.Println("Connecting to dead letter database...")
		pg, err := deadletter.NewPostgresStore(cfg.DeadLetterDSN)
		if err != nil {
			log.Fatal("dead letter db open:", err)
		}
		defer pg.Close()
		store = pg
	} else {
		store = deadletter.NewFileStore(cfg.DeadLetterFile)
	}

	notifier := notify.NewService(cfg.SlackWebhookURL, cfg.Salesforce.LoginURL)
	processor := pipeline.NewProcessor(sfClient, notifier, pipeline.DefaultRules())

	apiSrv := api.NewAPI(processor, store, sfClient, cfg.RetellAPIKey)
	router := api.NewRouter(apiSrv)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // replay can walk a long dead-letter log
		IdleTimeout:  120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Println("server shutdown:", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("Violet Sync listening on :%s\n", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}

	<-idleConnsClosed
}
