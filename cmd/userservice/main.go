package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vuviet/userservice/internal/config"
	"github.com/vuviet/userservice/internal/events"
	"github.com/vuviet/userservice/internal/httpserver"
	authmw "github.com/vuviet/userservice/internal/middleware"
	"github.com/vuviet/userservice/internal/models"
	"github.com/vuviet/userservice/internal/repo"
	"github.com/vuviet/userservice/internal/service"
	"github.com/vuviet/userservice/pkg/db"
	"github.com/vuviet/userservice/pkg/logging"
	loggingmw "github.com/vuviet/userservice/pkg/middleware/logging"
	"github.com/vuviet/userservice/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gormDB, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.Role{}, &models.User{}); err != nil {
		cancel()
		log.Fatalf("db migrate error: %v", err)
	}

	gormRepo := repo.NewGormRepo(gormDB)
	if err := gormRepo.EnsureDefaults(logging.IntoContext(initCtx, logger), cfg.AdminPassword); err != nil {
		cancel()
		log.Fatalf("seed error: %v", err)
	}
	cancel()

	tokenManager, err := tokens.NewManager(cfg.JWTSecret, cfg.AccessTTL)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()
	}

	var publisher service.EventPublisher
	if producer != nil {
		publisher = producer
	}

	authSvc := &service.AuthService{
		Repo:       gormRepo,
		Tokens:     tokenManager,
		RefreshTTL: cfg.RefreshTTL,
		Events:     publisher,
	}
	userSvc := &service.UserService{
		Repo:   gormRepo,
		Events: publisher,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:       authSvc,
			Users:     userSvc,
			AccessTTL: cfg.AccessTTL,
		},
		UserHandler: &httpserver.UserHTTP{Svc: userSvc},
		Gate:        authmw.NewAuth(tokenManager),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
