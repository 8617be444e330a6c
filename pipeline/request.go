package pipeline

import (
	"context"

	"healthai.com/rider/types"
)

type Request struct {
	Tid   string         `json:"tid"`
	Form  types.FormData `json:"form"`
	Files []string       `json:"files"`
}

// Response holds the record after each stage.
type Response struct {
	ParserOutput types.PatientRecord `json:"parser_output"`
	RiderOutput  types.PatientRecord `json:"rider_output"`
	GeminiOutput types.PatientRecord `json:"gemini_output"`
}

type Result struct {
	Tid      string
	Response Response
	Err      error
}

// Pipeline processes one request and sends exactly one Result before closing the channel.
type Pipeline func(ctx context.Context, request Request) <-chan Result
