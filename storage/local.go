package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps document text on the local filesystem
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a local document store rooted at basePath
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
	}, nil
}

// PutDocument writes document text to the local filesystem
func (s *LocalStore) PutDocument(ctx context.Context, documentID uuid.UUID, text string) (string, error) {
	storagePath := documentPath(documentID)
	fullPath := filepath.Join(s.basePath, storagePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	return storagePath, nil
}

// GetDocument reads document text from the local filesystem
func (s *LocalStore) GetDocument(ctx context.Context, storagePath string) (string, error) {
	fullPath := filepath.Join(s.basePath, storagePath)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("document not found: %s", storagePath)
		}
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	return string(data), nil
}

// Delete removes a document from the local filesystem
func (s *LocalStore) Delete(ctx context.Context, storagePath string) error {
	fullPath := filepath.Join(s.basePath, storagePath)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}
