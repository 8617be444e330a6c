package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
	"healthai.com/rider/pipeline"
	"healthai.com/rider/rmq"
	"healthai.com/rider/s3client"
	"healthai.com/rider/tasks"
)

type Config struct {
	TaskMaxRetries int           `envconfig:"HAI_RETRY_TASK_COUNT_MAX" default:"3"`
	TaskTimeout    time.Duration `envconfig:"HAI_TASK_TIMEOUT" default:"5m"`
	WorkDir        string        `envconfig:"HAI_WORK_DIR" default:""`
}

type Worker struct {
	config  Config
	redis   redisTransactions
	s3      s3Transactions
	rmq     rmqTransactions
	wLogger *zerolog.Logger
	ppln    pipeline.Pipeline
}

// New connects the worker to RMQ, S3 and Redis. Configuration comes from
// the environment.
func New(ppln pipeline.Pipeline) (*Worker, error) {
	wLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		wLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := &Worker{
		config:  config,
		wLogger: &wLogger,
		ppln:    ppln,
	}
	for _, connect := range []func() error{
		worker.refreshRMQClient,
		worker.refreshS3Client,
		worker.refreshRedisClients,
	} {
		if err := connect(); err != nil {
			worker.Close()
			return nil, err
		}
	}
	wLogger.Info().
		Int("max_attempts", config.TaskMaxRetries).
		Dur("task_timeout", config.TaskTimeout).
		Msg("Worker ready")
	return worker, nil
}

// StartWorker consumes deliveries until ctx is done. A closed deliveries
// channel or a connection error reconnects RMQ; StartWorker returns only
// when that reconnect fails.
func (worker *Worker) StartWorker(ctx context.Context) error {
	defer worker.Close()
	for {
		var brokerErr error
		select {
		case <-ctx.Done():
			worker.wLogger.Info().Msg("Stopping worker")
			return nil
		case delivery, ok := <-worker.rmq.getDeliveriesCh():
			if ok {
				go worker.processMessage(ctx, &delivery)
				continue
			}
			brokerErr = errDeliveriesClosed
		case rmqErr := <-worker.rmq.getRespChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			brokerErr = fmt.Errorf("response connection: %w", rmqErr)
		case rmqErr := <-worker.rmq.getReqChanErrorsCh():
			if rmqErr == nil {
				continue
			}
			brokerErr = fmt.Errorf("request connection: %w", rmqErr)
		}
		worker.wLogger.Err(brokerErr).Msg("Lost RMQ consumer, reconnecting")
		if err := worker.refreshRMQClient(); err != nil {
			return fmt.Errorf("%v, reconnect failed: %w", brokerErr, err)
		}
	}
}

// Close releases every connected client.
func (worker *Worker) Close() {
	for _, c := range []closer{worker.redis, worker.s3, worker.rmq} {
		if c != nil {
			c.close()
		}
	}
}

var errDeliveriesClosed = errors.New("deliveries channel closed")

type closer interface {
	close()
}

// reconnect runs connect, which installs a new client and hands back the
// one it replaced. The replaced client is closed only after the new one
// is in place.
func (worker *Worker) reconnect(client string, connect func() (closer, error)) error {
	cLogger := worker.wLogger.With().Str("client", client).Logger()
	cLogger.Info().Msg("Connecting client")
	old, err := connect()
	if err != nil {
		cLogger.Err(err).Msg("Failed to connect client")
		return fmt.Errorf("connect %s: %w", client, err)
	}
	if old != nil {
		old.close()
	}
	cLogger.Info().Msg("Client connected")
	return nil
}

func (worker *Worker) refreshRedisClients() error {
	return worker.reconnect("redis", func() (closer, error) {
		tasksClient, err := tasks.NewClient()
		if err != nil {
			return nil, err
		}
		old := worker.redis
		worker.redis = &redisClientWrapper{&tasksClient}
		return old, nil
	})
}

func (worker *Worker) refreshRMQClient() error {
	return worker.reconnect("rmq", func() (closer, error) {
		rmqClient, err := rmq.NewClient()
		if err != nil {
			return nil, err
		}
		old := worker.rmq
		worker.rmq = &rmqClientWrapper{rmqClient}
		return old, nil
	})
}

func (worker *Worker) refreshS3Client() error {
	return worker.reconnect("s3", func() (closer, error) {
		s3Client, err := s3client.New()
		if err != nil {
			return nil, err
		}
		old := worker.s3
		worker.s3 = &s3ClientWrapper{s3Client}
		return old, nil
	})
}
