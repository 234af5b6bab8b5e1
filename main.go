package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"presetwave/config"
	"presetwave/handlers"
	"presetwave/internal/database"
	"presetwave/services/accounts"
	"presetwave/services/activity"
	"presetwave/services/analytics"
	"presetwave/services/downloads"
	"presetwave/services/favorites"
	"presetwave/services/invitations"
	"presetwave/services/presets"
	"presetwave/services/sessions"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// Misconfiguration is the one fatal error class; everything else
		// degrades per request.
		log.Fatalf("configuration error: %v", err)
	}

	logger := newLogger(cfg)
	logger.Printf("presetwave %s starting on %s", handlers.ServerVersion(), cfg.Addr)

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DBPath})
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	accountsSvc, err := accounts.NewService(cfg.DataDir)
	if err != nil {
		logger.Fatalf("failed to init accounts: %v", err)
	}

	sessionsSvc, err := sessions.NewService(sessions.Options{
		Secret:       cfg.SessionSecret,
		MaxAge:       cfg.SessionMaxAge,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		Epochs:       accountsSvc,
	})
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	presetsSvc, err := presets.NewService(cfg.DataDir)
	if err != nil {
		logger.Fatalf("failed to init preset catalog: %v", err)
	}

	favoritesSvc, err := favorites.NewService(cfg.DataDir)
	if err != nil {
		logger.Fatalf("failed to init favorites: %v", err)
	}

	downloadsSvc, err := downloads.NewService(cfg.DataDir)
	if err != nil {
		logger.Fatalf("failed to init downloads: %v", err)
	}
	defer downloadsSvc.Close()

	invitationsSvc, err := invitations.NewService(cfg.DataDir)
	if err != nil {
		logger.Fatalf("failed to init invitations: %v", err)
	}

	activitySvc := activity.NewService(database.NewActivityRepository(db.Connection()), logger)
	defer activitySvc.Close()
	analyticsSvc := analytics.NewService(database.NewEventRepository(db.Connection()), logger)

	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc, invitationsSvc, activitySvc, analyticsSvc, logger)
	presetsHandler := handlers.NewPresetsHandler(presetsSvc, favoritesSvc, downloadsSvc, accountsSvc, activitySvc, analyticsSvc, logger)
	adminHandler := handlers.NewAdminHandler(accountsSvc, presetsSvc, favoritesSvc, invitationsSvc, activitySvc, activitySvc, analyticsSvc, logger)

	router := buildRouter(cfg, sessionsSvc, authHandler, presetsHandler, adminHandler)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
}

func newLogger(cfg config.Config) *log.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger := log.New(out, "", log.LstdFlags)
	log.SetOutput(out)
	return logger
}
