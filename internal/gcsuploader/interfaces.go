package gcsuploader

import "context"

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes stores data under objectName and returns its gs:// URI.
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error)

	// UploadFile uploads a local file under objectName and returns its gs:// URI.
	UploadFile(ctx context.Context, objectName, filePath string) (string, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

var _ StorageService = (*GCSStorageService)(nil)
