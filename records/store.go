// Package records persists the intermediate and final patient records of a request.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	ParsedRecordFile = "combined_output.json"
	RiderRecordFile  = "final_combined_with_rider.json"
	FinalRecordFile  = "final_output_with_gemini.json"
)

// Store saves JSON documents under slash separated keys.
type Store interface {
	Save(ctx context.Context, key string, v interface{}) error
	Load(ctx context.Context, key string, v interface{}) error
}

// Key builds the key of a document that belongs to one request.
func Key(tid, name string) string {
	return path.Join(tid, name)
}

// FileStore writes documents below a base directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid record key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *FileStore) Save(ctx context.Context, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) Load(ctx context.Context, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ObjectStorage is the part of the S3 client the S3 store needs.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// S3Store writes documents to a bucket under a key prefix.
type S3Store struct {
	storage ObjectStorage
	prefix  string
}

func NewS3Store(storage ObjectStorage, prefix string) *S3Store {
	return &S3Store{storage: storage, prefix: prefix}
}

func (s *S3Store) key(key string) string {
	return path.Join(s.prefix, key)
}

func (s *S3Store) Save(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.storage.Upload(ctx, s.key(key), b, "application/json")
}

func (s *S3Store) Load(ctx context.Context, key string, v interface{}) error {
	b, err := s.storage.Download(ctx, s.key(key))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Discard drops every document. Used when persistence is switched off.
type Discard struct{}

func (Discard) Save(ctx context.Context, key string, v interface{}) error { return nil }

func (Discard) Load(ctx context.Context, key string, v interface{}) error {
	return fmt.Errorf("record %s: %w", key, os.ErrNotExist)
}
