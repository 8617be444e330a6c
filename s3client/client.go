package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
)

var ErrNoSession = errors.New("no S3 session")

var clientLogger = logger.NewLogger("S3Client")
var sdkLogger = logger.NewLogger("S3-SDK")

type EnvironmentConfig struct {
	BucketName  string `envconfig:"HAI_S3_BUCKET" required:"true"`
	Env         string `envconfig:"HAI_ENV" default:"prod"`
	Region      string `envconfig:"HAI_AWS_REGION" required:"true"`
	AwsEndpoint string `envconfig:"HAI_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"HAI_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"HAI_AWS_ACCESS_KEY" default:""`
}

// Client stores report documents, stage records and task results in one
// bucket. A failed call rebuilds the session once and is retried.
type Client struct {
	region string
	env    EnvironmentConfig
	state  *sessionState
}

type sessionState struct {
	mu   sync.RWMutex
	sess *session.Session
	// bumped on every rebuild so concurrent failures refresh only once
	generation uint64
}

func New() (*Client, error) {
	errLogger := clientLogger.With().Caller().Logger()
	env, err := readEnvironment(&errLogger)
	if err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	client := &Client{
		region: env.Region,
		env:    env,
		state:  &sessionState{},
	}
	if err := client.refresh(0); err != nil {
		return nil, err
	}
	return client, nil
}

func (client *Client) Bucket() string {
	return client.env.BucketName
}

func (client *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	keyLogger := client.keyLogger(clientLogger, key)
	return client.withSession(func(sess *session.Session) error {
		uploader := s3manager.NewUploader(client.sdkSession(sess, key))
		keyLogger.Debug().Int("size", len(data)).Msg("Uploading object")
		_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket:      aws.String(client.env.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			keyLogger.Error().Err(err).Msg("Failed to upload object")
		}
		return err
	})
}

func (client *Client) Download(ctx context.Context, key string) ([]byte, error) {
	keyLogger := client.keyLogger(clientLogger, key)
	var data []byte
	err := client.withSession(func(sess *session.Session) error {
		downloader := s3manager.NewDownloader(client.sdkSession(sess, key))
		buf := aws.NewWriteAtBuffer([]byte{})
		keyLogger.Debug().Msg("Downloading object")
		size, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(client.env.BucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			keyLogger.Error().Err(err).Msg("Failed to download object")
			return err
		}
		keyLogger.Debug().Msgf("Downloaded %v bytes", size)
		data = buf.Bytes()
		return nil
	})
	return data, err
}

// Close drops the session. Calls after Close fail with ErrNoSession.
func (client *Client) Close() {
	client.state.mu.Lock()
	client.state.sess = nil
	client.state.mu.Unlock()
	clientLogger.Info().Msg("Closing client")
}

func (client *Client) withSession(call func(sess *session.Session) error) error {
	sess, generation := client.current()
	if sess == nil {
		return ErrNoSession
	}
	err := call(sess)
	if err == nil {
		return nil
	}
	clientLogger.Error().Err(err).Msg("Caught error while using S3 session, trying to refresh it")
	if refreshErr := client.refresh(generation); refreshErr != nil {
		return fmt.Errorf("%w (session refresh failed: %v)", err, refreshErr)
	}
	if sess, _ = client.current(); sess == nil {
		return ErrNoSession
	}
	return call(sess)
}

func (client *Client) current() (*session.Session, uint64) {
	client.state.mu.RLock()
	defer client.state.mu.RUnlock()
	return client.state.sess, client.state.generation
}

// refresh rebuilds the session unless another caller already did so since
// seen was read.
func (client *Client) refresh(seen uint64) error {
	client.state.mu.Lock()
	defer client.state.mu.Unlock()
	if client.state.generation != seen && client.state.sess != nil {
		return nil
	}
	sess, err := client.acquireSession()
	if err != nil {
		client.state.sess = nil
		return err
	}
	client.state.sess = sess
	client.state.generation++
	return nil
}

// acquireSession tries instance credentials first, then the static keys
// from the environment.
func (client *Client) acquireSession() (*session.Session, error) {
	sess, err := verifiedSession(client.instanceConfig())
	if err == nil {
		clientLogger.Info().Msg("S3 session initialized with instance credentials")
		return sess, nil
	}
	clientLogger.Info().Err(err).Msg("Could not initialize S3 session with instance credentials, trying env credentials")
	cfg, err := client.staticConfig()
	if err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return nil, err
	}
	if sess, err = verifiedSession(cfg); err != nil {
		clientLogger.Error().Err(err).Msg("Could not initialize S3 session")
		return nil, fmt.Errorf("could not initialize S3 session: %w", err)
	}
	clientLogger.Info().Msg("S3 session initialized with env credentials")
	return sess, nil
}

func verifiedSession(cfg *aws.Config) (*session.Session, error) {
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
		return nil, err
	}
	return sess, nil
}

func (client *Client) instanceConfig() *aws.Config {
	return client.withEndpoint(&aws.Config{
		Region:     aws.String(client.region),
		MaxRetries: aws.Int(4),
		LogLevel:   aws.LogLevel(aws.LogDebug),
	})
}

func (client *Client) staticConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("credentials from environment: %w", err)
	}
	cfg := aws.NewConfig().
		WithRegion(client.region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)
	return client.withEndpoint(cfg), nil
}

// withEndpoint points the SDK at a local S3 (minio, localstack) in dev.
func (client *Client) withEndpoint(cfg *aws.Config) *aws.Config {
	if client.env.Env == "dev" && len(client.env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg
}

func (client *Client) keyLogger(base zerolog.Logger, key string) zerolog.Logger {
	return base.With().
		Str("key", key).
		Str("bucket", client.env.BucketName).
		Logger()
}

func (client *Client) sdkSession(sess *session.Session, key string) *session.Session {
	return sess.Copy(&aws.Config{Logger: sdkAdapter{client.keyLogger(sdkLogger, key)}})
}

func readEnvironment(errLogger *zerolog.Logger) (EnvironmentConfig, error) {
	var config EnvironmentConfig
	if err := envconfig.Process("", &config); err != nil {
		errLogger.Err(err).Msg("Got error while processing environment")
		return config, err
	}
	return config, nil
}

// sdkAdapter sends aws-sdk log lines to zerolog at debug level.
type sdkAdapter struct {
	log zerolog.Logger
}

func (a sdkAdapter) Log(v ...interface{}) {
	a.log.Debug().Msg(fmt.Sprint(v...))
}
