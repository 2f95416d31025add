package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlasops/traingraph/internal/doclock"
	"github.com/atlasops/traingraph/internal/queue"
	"github.com/atlasops/traingraph/internal/registry"
	"github.com/atlasops/traingraph/internal/storage"
	"github.com/atlasops/traingraph/internal/util"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atlasops/traingraph/pkg/kg"
	"github.com/atlasops/traingraph/pkg/logger"
	"github.com/atlasops/traingraph/pkg/logger/console"
	"github.com/atlasops/traingraph/pkg/nlp"
	onlp "github.com/atlasops/traingraph/pkg/nlp/ollama"
	gnlp "github.com/atlasops/traingraph/pkg/nlp/openai"
	"github.com/atlasops/traingraph/pkg/store/neo4j"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const maxRetries = 10

type queuedMessage struct {
	msg       amqp.Delivery
	queueName string
}

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)

	// NLP adapter
	adapter := util.GetEnvString("NLP_ADAPTER", "openai")
	var nlpClient nlp.Client

	switch adapter {
	case "ollama":
		client, err := onlp.New(onlp.Params{
			ChatModel:      util.GetEnv("NLP_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("NLP_EMBED_MODEL"),
			BaseURL:        util.GetEnvString("NLP_CHAT_URL", ""),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		nlpClient = client
	default:
		nlpClient = gnlp.New(gnlp.Params{
			ChatModel:      util.GetEnv("NLP_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("NLP_EMBED_MODEL"),
			ChatURL:        util.GetEnvString("NLP_CHAT_URL", ""),
			ChatKey:        util.GetEnv("NLP_CHAT_KEY"),
			EmbeddingURL:   util.GetEnvString("NLP_EMBED_URL", ""),
			EmbeddingKey:   util.GetEnvString("NLP_EMBED_KEY", util.GetEnv("NLP_CHAT_KEY")),
		})
	}

	// Graph store
	graphStore, err := neo4j.New(ctx, neo4j.Params{
		URI:      util.GetEnv("NEO4J_URI"),
		Username: util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnvString("NEO4J_DATABASE", "neo4j"),
	})
	if err != nil {
		logger.Fatal("Unable to connect to graph store", "err", err)
	}
	defer graphStore.Close(context.Background())

	// Optional durable registry and document leases. Without DATABASE_URL
	// the worker falls back to in-memory idempotency tracking.
	var processed registry.ProcessedDocuments
	var locker *doclock.Client
	if databaseURL := util.GetEnvString("DATABASE_URL", ""); databaseURL != "" {
		migrationsDir := util.GetEnvString("MIGRATIONS_DIR", "internal/registry/migrations")
		if err := registry.Migrate(databaseURL, migrationsDir); err != nil {
			logger.Fatal("Unable to run registry migrations", "err", err)
		}

		pgConn, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer pgConn.Close()

		processed = registry.NewPostgres(pgConn)
		locker = doclock.New(pgConn, 2*time.Minute)
	}

	engine := kg.New(kg.Params{
		Store:         graphStore,
		NLP:           nlpClient,
		Processed:     processed,
		CacheSize:     util.GetEnvInt("CACHE_SIZE", 0),
		MinConfidence: util.GetEnvNumeric("MIN_CONFIDENCE", 0),
		Language:      util.GetEnvString("NLP_LANGUAGE", ""),
	})

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.WorkQueues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one message is in
	// flight at a time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	messageChan := make(chan queuedMessage)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, queueName := range queue.WorkQueues {
		group.Go(func() error {
			consumerTag := fmt.Sprintf("%s_consumer", queueName)
			msgs, err := consumerCh.Consume(
				queueName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
			}

			return forwardDeliveries(groupCtx, msgs, messageChan, queueName)
		})
	}

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				logger.Info("Stopping message processor")
				return nil
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = processIngest(groupCtx, s3Client, engine, locker, string(qm.msg.Body))
				case queue.ExportQueue:
					processingErr = queue.ProcessExportMessage(groupCtx, s3Client, engine, string(qm.msg.Body))
				}

				// On error send to retry or dead-letter, otherwise ack.
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				duration := time.Since(startTime)
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d",
						int(duration.Hours()), int(duration.Minutes())%60, int(duration.Seconds())%60),
				)
				logger.Info("Waiting for next message")
			}
		}
	})

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
	if err := group.Wait(); err != nil {
		logger.Error("Worker stopped with error", "err", err)
	}
}

// forwardDeliveries relays deliveries from a consumer stream onto the shared
// processing channel until the stream closes or ctx is cancelled. The send is
// guarded by ctx too, so a consumer blocked on a delivery in hand still
// unwinds during shutdown.
func forwardDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, out chan<- queuedMessage, queueName string) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queueName)
				return nil
			}
			select {
			case out <- queuedMessage{msg: msg, queueName: queueName}:
			case <-ctx.Done():
				logger.Info("Stopping consumer", "queue", queueName)
				return nil
			}
		}
	}
}

// processIngest runs the ingest handler, guarded by a document lease when a
// lease client is configured. A busy lease is an error so the delivery lands
// on the retry queue and comes back after the delay.
func processIngest(ctx context.Context, s3Client *s3.Client, engine *kg.Engine, locker *doclock.Client, body string) error {
	if locker == nil {
		return queue.ProcessIngestMessage(ctx, s3Client, engine, body)
	}

	documentID := queue.IngestDocumentID(body)
	if documentID == "" {
		return queue.ProcessIngestMessage(ctx, s3Client, engine, body)
	}

	err := locker.WithLease(ctx, documentID, func(leaseCtx context.Context) error {
		return queue.ProcessIngestMessage(leaseCtx, s3Client, engine, body)
	})
	if errors.Is(err, doclock.ErrBusy) {
		return fmt.Errorf("document %s is being ingested elsewhere: %w", documentID, err)
	}
	return err
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After maxRetries attempts the message goes to the dead-letter queue.
	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
