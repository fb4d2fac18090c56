// Command review-events-tail prints review events from Kafka. It is the
// reference consumer for downstream services such as notifications.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/result-review-service/internal/config"
	"github.com/SAP-F-2025/result-review-service/internal/events"
)

func main() {
	group := flag.String("group", "review-events-tail", "Kafka consumer group")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	subscriber, err := events.NewKafkaSubscriber(events.SubscriberConfig{
		KafkaBrokers:  cfg.Events.GetKafkaBrokers(),
		ConsumerGroup: *group,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to create subscriber", "error", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	messages, err := subscriber.Subscribe(ctx, cfg.Events.ReviewTopic)
	if err != nil {
		logger.Error("Failed to subscribe", "topic", cfg.Events.ReviewTopic, "error", err)
		os.Exit(1)
	}

	logger.Info("Tailing review events", "topic", cfg.Events.ReviewTopic, "group", *group)
	for msg := range messages {
		event, err := events.DecodeMessage(msg)
		if err != nil {
			logger.Warn("Skipping undecodable message", "message_uuid", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		logger.Info("Review event",
			"event_id", event.ID,
			"type", event.Type,
			"timestamp", event.Timestamp,
			"data", event.Data)
		msg.Ack()
	}
}
