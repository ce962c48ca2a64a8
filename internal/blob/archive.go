package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectStore is the slice of *minio.Client the archive uses.
type objectStore interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// Archive keeps the raw bytes of every uploaded dataset in an S3 bucket,
// keyed by catalog version.
type Archive struct {
	client objectStore
	bucket string
}

// NewArchive connects to an S3-compatible endpoint such as MinIO.
func NewArchive(endpoint, accessKey, secretKey, bucket string, secure bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return NewArchiveWithClient(client, bucket), nil
}

// NewArchiveWithClient creates an archive over an injected client.
func NewArchiveWithClient(client objectStore, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Key is the object key of a version's raw upload.
func Key(versionID, name string) string {
	base := path.Base(name)
	if base == "." || base == "/" {
		base = "upload.csv"
	}
	return path.Join("datasets", versionID, base)
}

// Upload stores data under Key(versionID, name) and returns the key.
func (a *Archive) Upload(ctx context.Context, versionID, name string, data []byte) (string, error) {
	key := Key(versionID, name)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return key, nil
}

// DownloadURL returns a presigned GET URL for an archived upload.
func (a *Archive) DownloadURL(ctx context.Context, versionID, name string, expiry time.Duration) (string, error) {
	key := Key(versionID, name)
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigned get object %s: %w", key, err)
	}
	return u.String(), nil
}
