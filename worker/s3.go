package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"healthai.com/rider/pipeline"
	"healthai.com/rider/s3client"
)

type s3Transactions interface {
	fetchDocuments(ctx context.Context, task *Task, dir string) ([]string, error)
	saveResultsFile(ctx context.Context, task *Task, response pipeline.Response) error
	close()
}

type objectDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

// getResultsFileKey is where the response of a task is uploaded.
func getResultsFileKey(task *Task) string {
	return path.Join("processed", "tasks", task.redisKey, task.redisKey+".rider_results.json")
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) saveResultsFile(ctx context.Context, task *Task, response pipeline.Response) error {
	b, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return wrapper.s3Client.Upload(ctx, getResultsFileKey(task), b, "application/json")
}

func (wrapper *s3ClientWrapper) fetchDocuments(ctx context.Context, task *Task, dir string) ([]string, error) {
	return downloadDocuments(ctx, wrapper.s3Client, task.task.DocumentKeys, dir)
}

// downloadDocuments writes every key into dir and returns the local paths in
// key order. File names keep the key's base name so the extension survives.
func downloadDocuments(ctx context.Context, storage objectDownloader, keys []string, dir string) ([]string, error) {
	paths := make([]string, 0, len(keys))
	for i, key := range keys {
		data, err := storage.Download(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		local := filepath.Join(dir, fmt.Sprintf("%02d-%s", i, path.Base(key)))
		if err := os.WriteFile(local, data, 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, local)
	}
	return paths, nil
}
