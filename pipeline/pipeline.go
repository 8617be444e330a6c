package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"healthai.com/rider/brands"
	"healthai.com/rider/logger"
	"healthai.com/rider/records"
	"healthai.com/rider/textextract"
	"healthai.com/rider/therapy"
	"healthai.com/rider/types"
	"healthai.com/rider/utils"
)

type Extractor interface {
	Extract(ctx context.Context, paths []string) textextract.Batch
}

type Recommender interface {
	Recommend(ctx context.Context, record types.PatientRecord) (types.OverallRecommendations, error)
}

type Params struct {
	Extractor Extractor
	Resolver  *brands.Resolver
	Engine    *therapy.Engine
	// Advisor is optional; without it the final record equals the rider record.
	Advisor Recommender
	Store   records.Store
	Now     func() time.Time
}

func (p Params) validate() error {
	switch {
	case p.Extractor == nil:
		return errors.New("pipeline: extractor is not set")
	case p.Resolver == nil:
		return errors.New("pipeline: brand resolver is not set")
	case p.Engine == nil:
		return errors.New("pipeline: therapy engine is not set")
	}
	return nil
}

func New(params Params) (Pipeline, error) {
	pLogger := logger.NewLogger("Hypertension pipeline")
	if err := params.validate(); err != nil {
		pLogger.Err(err).Msg("Invalid pipeline parameters")
		return nil, err
	}
	if params.Store == nil {
		params.Store = records.Discard{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	pLogger.Info().
		Bool("advice", params.Advisor != nil).
		Msg("Created hypertension pipeline")

	return func(ctx context.Context, request Request) <-chan Result {
		resultCh := make(chan Result, 1)
		pplnLog := pLogger.With().Str("tid", request.Tid).Logger()

		go func() {
			defer close(resultCh)
			pplnLog.Info().Int("files", len(request.Files)).Msg("Started pipeline")
			resp, err := run(ctx, params, request, pplnLog)
			if err != nil {
				errLogger := pplnLog.With().Caller().Logger()
				errLogger.Err(err).Msg("Pipeline failed")
			} else {
				pplnLog.Info().
					Str("patient_id", resp.GeminiOutput.PatientID).
					Str("grade", string(resp.GeminiOutput.HypertensionGrade)).
					Msg("Finished pipeline")
			}
			resultCh <- Result{Tid: request.Tid, Response: resp, Err: err}
		}()

		return resultCh
	}, nil
}

func run(ctx context.Context, params Params, request Request, pplnLog zerolog.Logger) (resp Response, err error) {
	defer utils.RecoverWithError(&err)

	batch := params.Extractor.Extract(ctx, request.Files)
	resp.ParserOutput = AssembleRecord(batch, request.Form, params.Now())
	if err = save(ctx, params.Store, request.Tid, records.ParsedRecordFile, resp.ParserOutput); err != nil {
		return resp, err
	}
	pplnLog.Debug().Str("grade", string(resp.ParserOutput.HypertensionGrade)).Msg("Assembled record")

	resp.RiderOutput = ApplyRider(resp.ParserOutput, request.Form.Medications, params.Resolver, params.Engine)
	if err = save(ctx, params.Store, request.Tid, records.RiderRecordFile, resp.RiderOutput); err != nil {
		return resp, err
	}

	resp.GeminiOutput = resp.RiderOutput
	if params.Advisor != nil {
		recs, err := params.Advisor.Recommend(ctx, resp.RiderOutput)
		if err != nil {
			return resp, err
		}
		resp.GeminiOutput.OverallRecommendations = &recs
	}
	if err = save(ctx, params.Store, request.Tid, records.FinalRecordFile, resp.GeminiOutput); err != nil {
		return resp, err
	}
	return resp, nil
}

func save(ctx context.Context, store records.Store, tid, name string, record types.PatientRecord) error {
	if err := store.Save(ctx, records.Key(tid, name), record); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
