// Package storage uploads artwork images to an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const uploadPrefix = "uploads"

var unsafeExt = regexp.MustCompile(`[^a-z0-9]`)

var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/avif": "avif",
}

// UploadInput holds one file to store.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// SignedUpload is a presigned PUT for one object.
type SignedUpload struct {
	Path      string `json:"path"`
	URL       string `json:"url"`
	PublicURL string `json:"public_url"`
}

// MinioStorage stores objects with minio-go and serves them from a public
// base URL.
type MinioStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	signedTTL     time.Duration
}

// NewMinioStorage connects to the object store. publicBaseURL is the prefix
// under which the bucket's objects are publicly readable; when empty it is
// derived from the endpoint.
func NewMinioStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool, publicBaseURL string, signedTTL time.Duration) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	if publicBaseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	return &MinioStorage{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		signedTTL:     signedTTL,
	}, nil
}

// Upload stores the file under a generated key and returns its public URL
func (s *MinioStorage) Upload(ctx context.Context, in *UploadInput) (string, error) {
	key := ObjectKey(in.FileName, in.ContentType)

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, in.Data, in.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s failed: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// SignUpload issues a presigned PUT URL for a file the browser uploads itself
func (s *MinioStorage) SignUpload(ctx context.Context, fileName, contentType string) (*SignedUpload, error) {
	key := ObjectKey(fileName, contentType)

	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.signedTTL)
	if err != nil {
		return nil, fmt.Errorf("sign upload %s failed: %w", key, err)
	}
	return &SignedUpload{Path: key, URL: u.String(), PublicURL: s.PublicURL(key)}, nil
}

// PublicURL returns the public address of an object key
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBaseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// ObjectKey builds a collision-resistant key under uploads/ whose extension
// comes from the content type, or the file name when the type is unknown.
func ObjectKey(fileName, contentType string) string {
	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok {
		ext = strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
		ext = unsafeExt.ReplaceAllString(ext, "")
	}
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d_%s.%s", uploadPrefix, time.Now().UnixMilli(), uuid.New().String(), ext)
}
