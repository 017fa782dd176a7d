package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// MaxImageBytes caps uploaded payloads. Larger images are a client error.
const MaxImageBytes = 5 << 20

var (
	// ErrEmptyPayload and ErrTooLarge are validation failures, never retried.
	ErrEmptyPayload = errors.New("image payload is empty")
	ErrTooLarge     = fmt.Errorf("image payload exceeds %d bytes", MaxImageBytes)
)

// Gateway persists image payloads under a namespaced prefix and hands back a
// stable reference. Uploads are all-or-nothing: S3 PutObject either creates
// the full object or nothing retrievable.
type Gateway struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// Ref identifies a stored object for downstream analysis.
type Ref struct {
	Bucket string
	Key    string
}

// String renders the bucket-relative reference returned to callers.
func (r Ref) String() string {
	return "s3://" + r.Bucket + "/" + r.Key
}

func NewGateway(client s3iface.S3API, bucket, prefix string) *Gateway {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Gateway{client: client, bucket: bucket, prefix: prefix}
}

// Store validates and uploads the payload, returning its reference.
// The key is collision-resistant (uuid hex) and keeps the original extension
// so the content type survives the round trip.
func (g *Gateway) Store(ctx context.Context, imageBytes []byte, filename string) (Ref, error) {
	if len(imageBytes) == 0 {
		return Ref{}, ErrEmptyPayload
	}
	if len(imageBytes) > MaxImageBytes {
		return Ref{}, ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := g.prefix + strings.ReplaceAll(uuid.New().String(), "-", "") + ext

	_, err := g.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(g.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(imageBytes),
		ContentType:          aws.String(contentTypeFor(ext)),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("uploading s3://%s/%s: %w", g.bucket, key, err)
	}

	return Ref{Bucket: g.bucket, Key: key}, nil
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
