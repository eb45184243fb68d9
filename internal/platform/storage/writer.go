package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// ObjectWriter persists generated documents (invoices, exports) to Cloud Storage.
type ObjectWriter struct {
	client *gcs.Client
	bucket string
}

// NewObjectWriter constructs an ObjectWriter bound to a bucket.
func NewObjectWriter(client *gcs.Client, bucket string) (*ObjectWriter, error) {
	if client == nil {
		return nil, errors.New("storage writer: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	return &ObjectWriter{client: client, bucket: bucket}, nil
}

// Bucket returns the bucket the writer targets.
func (w *ObjectWriter) Bucket() string {
	if w == nil {
		return ""
	}
	return w.bucket
}

// Write stores the payload under the given object path with the supplied content type.
func (w *ObjectWriter) Write(ctx context.Context, object, contentType string, payload []byte) error {
	if w == nil || w.client == nil {
		return errors.New("storage writer: not initialised")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return errInvalidObject
	}
	if len(payload) == 0 {
		return errors.New("storage writer: payload is empty")
	}

	writer := w.client.Bucket(w.bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(payload); err != nil {
		_ = writer.Close()
		return fmt.Errorf("storage writer: write %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("storage writer: close %s: %w", object, err)
	}
	return nil
}
