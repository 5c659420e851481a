package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhamxdev/Docent-sub000/message/config"
	"github.com/ridhamxdev/Docent-sub000/message/handler"
	"github.com/ridhamxdev/Docent-sub000/message/realtime"
	"github.com/ridhamxdev/Docent-sub000/message/repo"
	"github.com/ridhamxdev/Docent-sub000/message/router"
	"github.com/ridhamxdev/Docent-sub000/message/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fail to load config:%v", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flush buffer, 避免丢日志

	var messageRepo repo.MessageRepo
	switch cfg.Store {
	case "postgres":
		db, err := repo.InitDB(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Fail to initialize Database:%v", err)
		}
		messageRepo = repo.NewPostgresRepo(db)
	default:
		messageRepo, err = repo.NewPebbleRepo(cfg.PebblePath, logger)
		if err != nil {
			log.Fatalf("Fail to initialize Pebble:%v", err)
		}
	}
	defer messageRepo.Close()

	var directory repo.UserDirectory
	if cfg.DirectoryURL != "" {
		directory = repo.NewHTTPDirectory(cfg.DirectoryURL)
		if cfg.RedisAddr != "" {
			rdb, err := repo.InitRedis(cfg.RedisAddr, cfg.RedisPassword)
			if err != nil {
				log.Fatalf("Fail to initialize Redis:%v", err)
			}
			defer rdb.Close()
			directory = repo.NewCachedDirectory(directory, rdb)
		}
	}

	registry := realtime.NewRegistry(logger)
	gateway := realtime.NewGateway(registry, logger, cfg.JWTSecret)
	messageService := service.NewMessageService(messageRepo, registry, directory, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)

	r := gin.Default()
	r.Use(cors.New(cfg.CorsConfig()))
	router.SetMessageRouter(r, messageHandler, gateway, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Message service started at http://localhost:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
