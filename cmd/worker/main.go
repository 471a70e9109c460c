package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/tabula/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/tabula/backend/internal/config"
	"github.com/OFFIS-RIT/tabula/backend/internal/queue"
	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/ai"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger/console"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}

	if cfg.RabbitMQURL == "" {
		logger.Fatal("RABBITMQ_URL is required for the worker")
	}

	store, err := bootstrap.NewStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to init object store", "err", err)
	}

	aiClient, err := bootstrap.NewAIClient(cfg)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}
	if aiClient != nil && cfg.AI.Adapter == "ollama" && cfg.LLMEnabled() {
		if err := aiClient.LoadModel(ctx); err != nil {
			logger.Warn("Failed to preload chat model", "err", err)
		}
	}

	cat, err := bootstrap.OpenCatalog(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open dataset catalog", "err", err)
	}
	if cat != nil {
		defer cat.Close()
	}

	components, err := bootstrap.NewComponents(cfg, store, aiClient, cat, "worker")
	if err != nil {
		logger.Fatal("Failed to init summary pipeline", "err", err)
	}

	// Init rabbitmq
	conn, err := queue.Connect(ctx, cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.SummaryQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// One message at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.SummaryQueue,
		queue.SummaryQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.SummaryQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.SummaryQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.SummaryQueue)
					stop()
					return
				}
				handle(ctx, consumerCh, components, aiClient, msg)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handle(ctx context.Context, ch *amqp.Channel, components *bootstrap.Components, aiClient ai.Client, msg amqp.Delivery) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.SummaryQueue)

	if err := queue.ProcessSummaryMessage(ctx, components.Pipeline, msg.Body); err != nil {
		logger.Error("Error processing message", "queue", queue.SummaryQueue, "err", err)
		queue.HandleProcessingError(ch, msg, queue.SummaryQueue, err)
	} else {
		if err := msg.Ack(false); err != nil {
			logger.Error("Failed to ack message", "err", err)
		}
		logger.Info("Message processed successfully", "queue", queue.SummaryQueue)
	}

	if aiClient != nil {
		metrics := aiClient.GetMetrics()
		logger.Info(
			"AI Metrics",
			"input_tokens", metrics.InputTokens,
			"output_tokens", metrics.OutputTokens,
			"total_tokens", metrics.TotalTokens,
			"tokens_per_second", metrics.TokenPerSecond,
			"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
		)
		aiClient.ResetMetrics()
	}

	logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
	logger.Info("Waiting for next message")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
