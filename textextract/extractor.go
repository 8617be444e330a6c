package textextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"healthai.com/rider/logger"
)

type Status int

const (
	StatusNoFile Status = iota
	StatusUnreadable
	StatusExtracted
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusNoFile:
		return "no_file"
	case StatusUnreadable:
		return "unreadable"
	case StatusExtracted:
		return "extracted"
	case StatusUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

const (
	SourcePDF   = "pdf"
	SourceImage = "image"
)

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

type Config struct {
	Tesseract     string `envconfig:"HAI_TESSERACT_BIN" default:"tesseract"`
	TesseractLang string `envconfig:"HAI_TESSERACT_LANG" default:"eng"`
	TessdataDir   string `envconfig:"HAI_TESSDATA_DIR" default:""`
}

// Result describes one input file. Text is set only for StatusExtracted
// and may be empty; Err is set only for StatusUnreadable.
type Result struct {
	Path       string
	SourceType string
	Status     Status
	Pages      int
	Text       string
	Err        error
}

// Batch is the outcome of extracting a list of files.
type Batch struct {
	Text    string
	Results []Result
}

// SourceTypes lists the file extensions of the inputs, without dots.
func (b Batch) SourceTypes() []string {
	types := make([]string, 0, len(b.Results))
	for _, res := range b.Results {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(res.Path)), ".")
		if ext != "" {
			types = append(types, ext)
		}
	}
	return types
}

type Extractor struct {
	cfg      Config
	runner   Runner
	readPDF  func(path string) ([]string, error)
	exLogger zerolog.Logger
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Extractor{
		cfg:      cfg,
		runner:   execRunner{},
		readPDF:  readPDFPages,
		exLogger: logger.NewLogger("Text extractor"),
	}
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) Result {
	res := Result{Path: path}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		res.SourceType = SourcePDF
	case imageExtensions[ext]:
		res.SourceType = SourceImage
	default:
		res.Status = StatusUnsupported
		return res
	}

	if _, err := os.Stat(path); err != nil {
		res.Status = StatusNoFile
		if !errors.Is(err, os.ErrNotExist) {
			res.Status = StatusUnreadable
			res.Err = err
		}
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusUnreadable
		res.Err = err
		return res
	}

	var text string
	if res.SourceType == SourcePDF {
		pages, err := e.readPDF(path)
		if err != nil {
			res.Status = StatusUnreadable
			res.Err = fmt.Errorf("read pdf: %w", err)
			return res
		}
		res.Pages = len(pages)
		text = strings.Join(pages, "\n")
	} else {
		out, err := e.ocrImage(ctx, path)
		if err != nil {
			res.Status = StatusUnreadable
			res.Err = err
			return res
		}
		res.Pages = 1
		text = out
	}
	res.Status = StatusExtracted
	res.Text = Normalize(text)
	return res
}

// Extract runs every file through ExtractFile. Failures are logged and
// recorded in the batch, they never stop the remaining files. Every PDF or
// image contributes one entry to the joined text in input order; a missing
// or unreadable one contributes an empty entry.
func (e *Extractor) Extract(ctx context.Context, paths []string) Batch {
	batch := Batch{Results: make([]Result, 0, len(paths))}
	texts := make([]string, 0, len(paths))
	for _, p := range paths {
		res := e.ExtractFile(ctx, p)
		fileLogger := e.exLogger.With().Str("file", filepath.Base(p)).Str("status", res.Status.String()).Logger()
		switch res.Status {
		case StatusUnreadable:
			fileLogger.Warn().Err(res.Err).Msg("Could not extract text")
		case StatusExtracted:
			fileLogger.Debug().Int("pages", res.Pages).Int("chars", len(res.Text)).Msg("Extracted text")
		case StatusNoFile:
			fileLogger.Info().Msg("File does not exist")
		default:
			fileLogger.Info().Msg("Skipping file")
		}
		if res.Status != StatusUnsupported {
			texts = append(texts, res.Text)
		}
		batch.Results = append(batch.Results, res)
	}
	batch.Text = Normalize(strings.Join(texts, "\n"))
	return batch
}
