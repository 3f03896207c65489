// Package storage persists raw document text outside the database. The
// database rows only carry a storage path; analysis always re-reads the
// text from here.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// DocumentStore stores and retrieves the normalized text of legal documents
type DocumentStore interface {
	// PutDocument stores the text of a document and returns the storage path
	PutDocument(ctx context.Context, documentID uuid.UUID, text string) (string, error)

	// GetDocument retrieves document text by storage path
	GetDocument(ctx context.Context, storagePath string) (string, error)

	// Delete removes a document by storage path
	Delete(ctx context.Context, storagePath string) error
}

// BackendType selects the storage backend
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
)

// Config holds configuration for the document store
type Config struct {
	Type         BackendType
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New creates a document store from configuration
func New(cfg Config) (DocumentStore, error) {
	switch cfg.Type {
	case BackendLocal:
		return NewLocalStore(cfg.LocalPath)
	case BackendS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewFromEnv creates a document store from environment variables
func NewFromEnv() (DocumentStore, error) {
	backendType := os.Getenv("STORAGE_TYPE")
	if backendType == "" {
		backendType = "local"
	}

	switch BackendType(backendType) {
	case BackendLocal:
		localPath := os.Getenv("STORAGE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./storage/documents"
		}
		return NewLocalStore(localPath)

	case BackendS3:
		cfg := Config{
			Type:         BackendS3,
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			S3Region:     os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}
		return NewS3Store(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", backendType)
	}
}

// documentPath derives the storage path of a document from its ID. The
// two-character prefix fans files out across directories.
func documentPath(documentID uuid.UUID) string {
	id := documentID.String()
	return fmt.Sprintf("%s/%s.txt", id[:2], id)
}
