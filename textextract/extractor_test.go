package textextract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out   string
	err   error
	calls [][]string
}

func (r *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.err != nil {
		return nil, []byte("tesseract exploded"), r.err
	}
	return []byte(r.out), nil, nil
}

func touch(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNormalize(t *testing.T) {
	in := "  BP:\t\t150/95  mmHg\r\n\r\n\r\n\r\nPulse 88   \n"
	assert.Equal(t, "BP: 150/95 mmHg\n\nPulse 88", Normalize(in))
	assert.Equal(t, Normalize(in), Normalize(Normalize(in)))
	assert.Equal(t, "", Normalize(" \n\t "))
}

func TestExtractFileStatuses(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Config{})

	res := e.ExtractFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Equal(t, StatusNoFile, res.Status)

	res = e.ExtractFile(context.Background(), touch(t, dir, "notes.txt", "BP 120/80"))
	assert.Equal(t, StatusUnsupported, res.Status)

	res = e.ExtractFile(context.Background(), touch(t, dir, "garbage.pdf", "this is not a pdf"))
	assert.Equal(t, StatusUnreadable, res.Status)
	assert.Error(t, res.Err)
	assert.Equal(t, SourcePDF, res.SourceType)
}

func TestExtractPDFPages(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Config{})
	e.readPDF = func(path string) ([]string, error) {
		return []string{"BP: 150/95\r\n", "", "HR 88"}, nil
	}
	res := e.ExtractFile(context.Background(), touch(t, dir, "report.PDF", "%PDF-1.4"))
	require.Equal(t, StatusExtracted, res.Status)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, "BP: 150/95\n\nHR 88", res.Text)
}

func TestExtractImageUsesTesseract(t *testing.T) {
	dir := t.TempDir()
	runner := &stubRunner{out: "Pulse:  72\n"}
	e := NewExtractor(Config{TesseractLang: "eng", TessdataDir: "/usr/share/tessdata"})
	e.runner = runner

	img := touch(t, dir, "scan.jpg", "jpeg bytes")
	res := e.ExtractFile(context.Background(), img)
	require.Equal(t, StatusExtracted, res.Status)
	assert.Equal(t, "Pulse: 72", res.Text)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"tesseract", img, "stdout", "-l", "eng", "--tessdata-dir", "/usr/share/tessdata"}, runner.calls[0])

	runner.err = errors.New("exit status 1")
	res = e.ExtractFile(context.Background(), img)
	assert.Equal(t, StatusUnreadable, res.Status)
	assert.ErrorContains(t, res.Err, "tesseract")
}

func TestExtractEmptyTextIsNotAFailure(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Config{})
	e.runner = &stubRunner{out: "   "}
	res := e.ExtractFile(context.Background(), touch(t, dir, "blank.png", "png"))
	assert.Equal(t, StatusExtracted, res.Status)
	assert.Equal(t, "", res.Text)
}

func TestExtractBatch(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Config{})
	e.runner = &stubRunner{out: "SpO2 97"}
	e.readPDF = func(path string) ([]string, error) {
		if filepath.Base(path) == "broken.pdf" {
			return nil, errors.New("bad xref")
		}
		return []string{"BP 140/90"}, nil
	}

	paths := []string{
		touch(t, dir, "report.pdf", "x"),
		touch(t, dir, "broken.pdf", "x"),
		touch(t, dir, "scan.jpeg", "x"),
		filepath.Join(dir, "gone.png"),
	}
	batch := e.Extract(context.Background(), paths)
	// the unreadable pdf keeps its slot between the two readable files
	assert.Equal(t, "BP 140/90\n\nSpO2 97", batch.Text)
	require.Len(t, batch.Results, 4)
	assert.Equal(t, StatusExtracted, batch.Results[0].Status)
	assert.Equal(t, StatusUnreadable, batch.Results[1].Status)
	assert.Equal(t, StatusExtracted, batch.Results[2].Status)
	assert.Equal(t, StatusNoFile, batch.Results[3].Status)
	assert.Equal(t, []string{"pdf", "pdf", "jpeg", "png"}, batch.SourceTypes())
}

func TestExtractBatchSkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(Config{})
	e.runner = &stubRunner{out: "SpO2 97"}
	e.readPDF = func(path string) ([]string, error) {
		return []string{"Diagnosis: HTN"}, nil
	}

	paths := []string{
		touch(t, dir, "a.pdf", "x"),
		touch(t, dir, "notes.docx", "x"),
		touch(t, dir, "b.png", "x"),
	}
	batch := e.Extract(context.Background(), paths)
	assert.Equal(t, "Diagnosis: HTN\nSpO2 97", batch.Text)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, StatusUnsupported, batch.Results[1].Status)
}

func TestExtractNoFiles(t *testing.T) {
	batch := NewExtractor(Config{}).Extract(context.Background(), nil)
	assert.Equal(t, "", batch.Text)
	assert.Empty(t, batch.SourceTypes())
}
