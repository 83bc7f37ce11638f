package storage

import (
	"context"
	"io"
)

// UploadResult описывает загруженный объект: ключ в бакете, публичный адрес
// и ETag от хранилища.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader абстрагирует объектное хранилище для логотипов групп.
// GetPublicURL работает без сетевого вызова: адрес строится из ключа.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}
