package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"healthai.com/rider/advice"
	"healthai.com/rider/api"
	"healthai.com/rider/logger"
	"healthai.com/rider/pipeline"
	"healthai.com/rider/records"
	"healthai.com/rider/s3client"
	"healthai.com/rider/textextract"
	"healthai.com/rider/types"
	"healthai.com/rider/worker"
)

type Config struct {
	ConfigDir     string `envconfig:"HAI_CONFIG_DIR" default:"configs"`
	ReferenceSet  string `envconfig:"HAI_REFERENCE_SET" default:"default"`
	Storage       string `envconfig:"HAI_STORAGE" default:"file"`
	DataDir       string `envconfig:"HAI_DATA_DIR" default:"data"`
	RecordsPrefix string `envconfig:"HAI_RECORDS_PREFIX" default:"records"`
	UploadDir     string `envconfig:"HAI_UPLOAD_DIR" default:""`
	RestAPIActive bool   `envconfig:"HAI_REST_API_ACTIVE" default:"true"`
	RestAPIPort   string `envconfig:"HAI_REST_API_PORT" default:"8000"`
	WorkerActive  bool   `envconfig:"HAI_WORKER_ACTIVE" default:"false"`
}

const (
	pipelineStartMaxRetries = 5

	storageFile = "file"
	storageS3   = "s3"
	storageNone = "none"
)

func main() {
	// a missing .env is fine, the environment may be set by the container
	_ = godotenv.Load()
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")
	fatalErrLogger := mainLogger.Fatal().Caller()
	checkTables := flag.Bool("check-tables", false, "load and validate the reference tables, then exit")
	flag.Parse()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	if *checkTables {
		if err := checkReferenceTables(config.ConfigDir, mainLogger); err != nil {
			fatalErrLogger.Err(err).Msg("Reference tables are invalid")
			os.Exit(1)
		}
		mainLogger.Info().Msg("Reference tables are valid. Exit...")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load Pipeline
	pipelineChannel := make(chan pipeline.Pipeline)
	go func() {
		for retry := 0; retry < pipelineStartMaxRetries; retry++ {
			ppln, err := loadPipeline(config, mainLogger)
			if err != nil {
				mainLogger.Err(err).Msg("Failed to start pipeline. Retrying in 5 sec")
				time.Sleep(5 * time.Second)
				continue
			}
			mainLogger.Info().Msg("Pipeline loaded")
			pipelineChannel <- ppln
			return
		}
		fatalErrLogger.Msgf("Could not start pipeline after %d retries, exiting", pipelineStartMaxRetries)
		os.Exit(1)
	}()

	// block until pipeline loads
	ppln := <-pipelineChannel

	if config.RestAPIActive {
		apiRequest := &api.Request{
			Pipeline:  ppln,
			UploadDir: config.UploadDir,
		}
		server := &http.Server{
			Addr:    fmt.Sprintf(":%s", config.RestAPIPort),
			Handler: api.NewRouter(apiRequest),
		}
		go func() {
			mainLogger.Info().Msgf("REST API on %s", server.Addr)
			err := server.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				mainLogger.Fatal().Caller().Err(err).Msg("REST API stopped with error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if !config.WorkerActive {
		<-ctx.Done()
		mainLogger.Info().Msg("Shutting down")
		return
	}

	mainLogger.Info().Msg("Start worker")
	for ctx.Err() == nil {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			mainLogger.Err(err).Msg("Could not initialize RMQ worker")
			stop()
			os.Exit(1)
		}
		err = rmqWorker.StartWorker(ctx)
		if err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
	mainLogger.Info().Msg("Shutting down")
}

func loadPipeline(config Config, mainLogger zerolog.Logger) (pipeline.Pipeline, error) {
	cfgs, err := types.LoadConfigurations(config.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load configurations: %w", err)
	}
	mainLogger.Info().Msgf("Loaded %d configurations", len(cfgs))
	cfg, ok := types.FindConfiguration(cfgs, config.ReferenceSet)
	if !ok {
		return nil, fmt.Errorf("reference set %q not found in %s", config.ReferenceSet, config.ConfigDir)
	}
	resolver, engine, err := pipeline.LoadReferences(cfg)
	if err != nil {
		return nil, err
	}

	var extractCfg textextract.Config
	if err := envconfig.Process("", &extractCfg); err != nil {
		return nil, err
	}
	store, err := buildStore(config)
	if err != nil {
		return nil, err
	}

	params := pipeline.Params{
		Extractor: textextract.NewExtractor(extractCfg),
		Resolver:  resolver,
		Engine:    engine,
		Store:     store,
	}
	if cfg.CheckFeature(types.FeatureLifestyleAdvice) {
		var adviceCfg advice.Config
		if err := envconfig.Process("", &adviceCfg); err != nil {
			return nil, err
		}
		gemini, err := advice.NewGeminiClient(adviceCfg)
		if err != nil {
			return nil, err
		}
		params.Advisor = advice.NewAdvisor(gemini)
	}
	return pipeline.New(params)
}

func buildStore(config Config) (records.Store, error) {
	switch config.Storage {
	case storageFile:
		return records.NewFileStore(config.DataDir)
	case storageS3:
		client, err := s3client.New()
		if err != nil {
			return nil, err
		}
		return records.NewS3Store(client, config.RecordsPrefix), nil
	case storageNone:
		return records.Discard{}, nil
	}
	return nil, fmt.Errorf("unknown storage %q", config.Storage)
}

func checkReferenceTables(dir string, mainLogger zerolog.Logger) error {
	cfgs, err := types.LoadConfigurations(dir)
	if err != nil {
		return err
	}
	if len(cfgs) == 0 {
		return fmt.Errorf("no reference sets in %s", dir)
	}
	for _, cfg := range cfgs {
		if _, _, err := pipeline.LoadReferences(cfg); err != nil {
			return err
		}
		mainLogger.Info().Str("reference_set", cfg.Name).Msg("Reference set is valid")
	}
	return nil
}
