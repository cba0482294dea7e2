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

	"campusmarket/config"
	"campusmarket/internal/api"
	"campusmarket/internal/auth"
	"campusmarket/internal/blob"
	"campusmarket/internal/broker"
	"campusmarket/internal/redisclient"
	"campusmarket/internal/service"
	"campusmarket/internal/store"
	"campusmarket/internal/util"
	"campusmarket/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting campusmarket")

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("campusmarket", cfg.Observ.JaegerEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	var st store.Store
	switch cfg.Store.Driver {
	case "memory":
		st = store.NewMemory()
		log.Println("Using in-memory store")
	default:
		pg, err := store.NewPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		st = pg
		log.Println("Database connected")
	}
	defer st.Close()

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	var eventPublisher *broker.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	uploads, err := blob.NewDiskStore(cfg.Uploads.Dir)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	userService := service.NewUserService(st)
	ledgerService := service.NewLedgerService(st, redisClient)
	catalogService := service.NewCatalogService(st)
	biddingService := service.NewBiddingService(st, eventPublisher)
	orderService := service.NewOrderService(st, eventPublisher)
	notificationService := service.NewNotificationService(st)
	chatService := service.NewChatService(st)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if eventPublisher != nil {
		outboxWorker := worker.NewOutboxWorker(st, eventPublisher, cfg.Outbox.PollInterval)
		go func() {
			if err := outboxWorker.Start(workerCtx); err != nil && err != context.Canceled {
				log.Printf("Outbox worker error: %v", err)
			}
		}()
	}

	if cfg.Kafka.Enabled && cfg.Kafka.ConsumerGroup != "" {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
		defer consumer.Close()
		dispatcher := worker.NewNotificationDispatcher(worker.NewLogNotifier())
		go func() {
			if err := consumer.StartConsuming(workerCtx, dispatcher.Handle); err != nil && err != context.Canceled {
				log.Printf("Notification consumer error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		userService,
		ledgerService,
		catalogService,
		biddingService,
		orderService,
		notificationService,
		chatService,
		st,
		auth.NewHeaderProvider(),
		uploads,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()

	log.Println("Server exited")
}
