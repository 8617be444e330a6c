package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusDoc struct {
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
	Errors   []string `json:"errors"`
}

func newTestClient(t *testing.T) (Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return Wrap(rc, time.Second, 2), mr
}

func TestGetAndSaveDocument(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SaveDocument(ctx, "task-1", statusDoc{Status: "submitted"}))
	var doc statusDoc
	require.NoError(t, client.GetDocument(ctx, "task-1", &doc))
	assert.Equal(t, "submitted", doc.Status)

	err := client.GetDocument(ctx, "missing", &doc)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateDocumentKeepsUnknownFields(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("task-1", `{"status":"submitted","attempts":1,"owner":"intake","errors":["first"]}`))

	var doc statusDoc
	err := client.UpdateDocument(ctx, "task-1", &doc, func() {
		doc.Status = "started"
		doc.Attempts++
		doc.Errors = append(doc.Errors, "second")
	})
	require.NoError(t, err)

	stored, err := mr.Get("task-1")
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stored), &raw))
	assert.Equal(t, "started", raw["status"])
	assert.Equal(t, float64(2), raw["attempts"])
	assert.Equal(t, "intake", raw["owner"])
	assert.Equal(t, []interface{}{"first", "second"}, raw["errors"])

	assert.False(t, mr.Exists("lock:task-1"), "lock should be released")
}

func TestUpdateDocumentMissing(t *testing.T) {
	client, _ := newTestClient(t)
	var doc statusDoc
	called := false
	err := client.UpdateDocument(context.Background(), "missing", &doc, func() { called = true })
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, called)
}

func TestLockIsExclusive(t *testing.T) {
	client, _ := newTestClient(t)
	client.lockRetries = 0
	ctx := context.Background()

	release, err := client.Lock(ctx, "task-1")
	require.NoError(t, err)
	_, err = client.Lock(ctx, "task-1")
	assert.Error(t, err)
	require.NoError(t, release())

	release, err = client.Lock(ctx, "task-1")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestReadEnvironment(t *testing.T) {
	t.Setenv("HAI_REDIS_HOST", "cache.local")
	cfg, err := readEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "cache.local", cfg.Host)
	assert.Equal(t, "6379", cfg.Port)
	assert.Equal(t, 3, cfg.LockExpirationSeconds)
	assert.False(t, cfg.HAMode)
}
