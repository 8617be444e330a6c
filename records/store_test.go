package records

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	PatientID string `json:"patient_id"`
	Grade     string `json:"hypertension_grade"`
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "data"))
	require.NoError(t, err)

	ctx := context.Background()
	key := Key("req-1", ParsedRecordFile)
	require.NoError(t, store.Save(ctx, key, doc{"PR_1", "stage_2"}))

	_, err = os.Stat(filepath.Join(dir, "data", "req-1", ParsedRecordFile))
	require.NoError(t, err)

	var got doc
	require.NoError(t, store.Load(ctx, key, &got))
	assert.Equal(t, doc{"PR_1", "stage_2"}, got)

	assert.Error(t, store.Save(ctx, "../escape.json", got))
	assert.Error(t, store.Save(ctx, "", got))
	assert.Error(t, store.Load(ctx, Key("req-2", ParsedRecordFile), &got))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.Save(cancelled, key, got), context.Canceled)
}

type memoryStorage struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStorage) Download(ctx context.Context, key string) ([]byte, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return b, nil
}

func TestS3Store(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
	store := NewS3Store(storage, "results")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Key("req-1", FinalRecordFile), doc{"PR_9", "resistant"}))
	assert.Contains(t, storage.objects, "results/req-1/"+FinalRecordFile)
	assert.Equal(t, "application/json", storage.types["results/req-1/"+FinalRecordFile])

	var got doc
	require.NoError(t, store.Load(ctx, Key("req-1", FinalRecordFile), &got))
	assert.Equal(t, "resistant", got.Grade)
	assert.Error(t, store.Load(ctx, "missing", &got))
}

func TestDiscard(t *testing.T) {
	var store Store = Discard{}
	require.NoError(t, store.Save(context.Background(), "k", doc{}))
	assert.ErrorIs(t, store.Load(context.Background(), "k", &doc{}), os.ErrNotExist)
}
