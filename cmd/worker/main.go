package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/logger"
	"storybook-server/internal/messaging"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/internal/storage"
	"storybook-server/internal/worker"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = 5 * time.Second
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting storybook worker", zap.String("env", cfg.AppEnv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Firebase: story documents and asset bucket ---
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.StorageBucket,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize firebase app", zap.Error(err))
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		appLogger.Fatal("Failed to initialize firestore client", zap.Error(err))
	}
	defer firestoreClient.Close()

	storyRepo := repository.NewFirestoreStoryRepository(firestoreClient, appLogger)
	profileRepo := repository.NewFirestoreProfileRepository(firestoreClient)

	assetStore, err := storage.NewFirebaseAssetStore(ctx, app, cfg.StorageBucket, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize asset store", zap.Error(err))
	}
	appLogger.Info("Firebase initialized", zap.String("bucket", cfg.StorageBucket))

	// --- Redis: stage guard ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	stageGuard := worker.NewRedisStageGuard(redisClient, cfg.StageGuardTTL)
	appLogger.Info("Redis connected", zap.String("addr", cfg.RedisAddr))

	// --- Generation clients ---
	aiClient, err := service.NewAIClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize AI client", zap.Error(err))
	}
	imageClient := service.NewImageClient(cfg, appLogger)

	var speechClient service.SpeechClient
	if cfg.NarrationEnabled {
		speechClient, err = service.NewSpeechClient(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize speech client", zap.Error(err))
		}
	}

	// --- Pipeline stages ---
	narrativeStage := worker.NewNarrativeStage(storyRepo, aiClient, imageClient, assetStore, appLogger)
	imageStage := worker.NewSlideImageStage(storyRepo, imageClient, assetStore, cfg.ImageBatchSize, appLogger)
	var narrationStage messaging.StageRunner
	if speechClient != nil {
		narrationStage = worker.NewNarrationStage(storyRepo, speechClient, assetStore, cfg.ImageBatchSize, appLogger)
	}

	// --- Metrics endpoint ---
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		appLogger.Info("Metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- RabbitMQ: story event queue ---
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runEventLoop(ctx, appLogger, cfg, storyRepo, profileRepo, stageGuard, narrativeStage, imageStage, narrationStage)
	}()

	appLogger.Info("Storybook worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down storybook worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Metrics server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	appLogger.Info("Storybook worker shut down gracefully")
}

// runEventLoop maintains the RabbitMQ connection and consumes story events
// until the context is cancelled. On connection loss it reconnects and
// resumes consuming.
func runEventLoop(
	ctx context.Context,
	appLogger *zap.Logger,
	cfg *config.Config,
	storyRepo repository.StoryRepository,
	profileRepo repository.ProfileRepository,
	stageGuard worker.StageGuard,
	narrativeStage, imageStage, narrationStage messaging.StageRunner,
) {
	for {
		conn := connectRabbitMQ(ctx, appLogger, cfg.RabbitMQURL)
		if conn == nil {
			return
		}

		publisher, err := messaging.NewRabbitMQPublisher(conn, cfg.StoryEventQueue, appLogger)
		if err != nil {
			appLogger.Error("Failed to create publisher", zap.Error(err))
			conn.Close()
			continue
		}

		consumer := messaging.NewConsumer(
			storyRepo, profileRepo, stageGuard, publisher,
			narrativeStage, imageStage, narrationStage,
			appLogger,
		)

		notifyClose := make(chan *amqp091.Error, 1)
		conn.NotifyClose(notifyClose)

		consumeDone := make(chan struct{})
		go func() {
			defer close(consumeDone)
			consumeLoop(ctx, appLogger, cfg, conn, consumer)
		}()

		select {
		case closeErr := <-notifyClose:
			appLogger.Warn("RabbitMQ connection closed, reconnecting", zap.Error(closeErr))
			<-consumeDone
			publisher.Close()
		case <-ctx.Done():
			appLogger.Info("Context cancelled, closing RabbitMQ connection")
			<-consumeDone
			publisher.Close()
			conn.Close()
			return
		case <-consumeDone:
			// Consumer exited without a close notification; if the context
			// is still live this was a channel-level failure, reconnect.
			publisher.Close()
			conn.Close()
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func connectRabbitMQ(ctx context.Context, appLogger *zap.Logger, url string) *amqp091.Connection {
	for attempt := 1; ; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			appLogger.Info("RabbitMQ connected")
			return conn
		}

		appLogger.Error("Failed to connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))
		if attempt >= maxReconnectAttempts {
			appLogger.Fatal("Max RabbitMQ connect attempts reached, shutting down")
		}

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func consumeLoop(ctx context.Context, appLogger *zap.Logger, cfg *config.Config, conn *amqp091.Connection, consumer *messaging.Consumer) {
	ch, err := conn.Channel()
	if err != nil {
		appLogger.Error("Failed to open RabbitMQ channel", zap.Error(err))
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.StoryEventQueue, true, false, false, false, nil)
	if err != nil {
		appLogger.Error("Failed to declare story event queue", zap.Error(err))
		return
	}
	appLogger.Info("Story event queue declared",
		zap.String("queue", q.Name),
		zap.Int("messages", q.Messages),
	)

	// One story at a time per worker: stages are long and heavy.
	if err := ch.Qos(1, 0, false); err != nil {
		appLogger.Error("Failed to set QoS", zap.Error(err))
		return
	}

	msgs, err := ch.Consume(q.Name, cfg.ConsumerName, false, false, false, false, nil)
	if err != nil {
		appLogger.Error("Failed to register consumer", zap.Error(err))
		return
	}

	appLogger.Info("Consumer started, waiting for story events...")

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				appLogger.Warn("Consumer channel closed")
				return
			}
			if consumer.HandleDelivery(ctx, msg) {
				if ackErr := msg.Ack(false); ackErr != nil {
					appLogger.Error("Failed to ack message", zap.Error(ackErr))
				}
			} else {
				if nackErr := msg.Nack(false, true); nackErr != nil {
					appLogger.Error("Failed to nack message", zap.Error(nackErr))
				}
			}
		case <-ctx.Done():
			appLogger.Info("Context cancelled, stopping consumer")
			return
		}
	}
}
