package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"postboard/internal/config"
)

// objectPutter is the subset of *minio.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// s3Storage implements the Storage interface using an S3-compatible backend (AWS S3, MinIO, etc.).
// It is safe for concurrent use by multiple goroutines.
type s3Storage struct {
	client          objectPutter
	bucket          string
	publicBase      string
	transferTimeout time.Duration
	now             func() time.Time
}

// NewS3 creates an S3-compatible storage client.
// It validates connectivity and checks the bucket exists, creating it when
// cfg.CreateBucket is set and applying a public-read policy when cfg.PublicRead is set.
func NewS3(cfg config.StorageConfig) (Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage transport: %w", err)
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentialsFor(cfg),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
		}
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	if cfg.PublicRead {
		if err := cli.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	return newS3Storage(cli, cfg), nil
}

func newS3Storage(client objectPutter, cfg config.StorageConfig) *s3Storage {
	timeout := time.Duration(cfg.TransferTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &s3Storage{
		client:          client,
		bucket:          cfg.Bucket,
		publicBase:      publicBaseURL(cfg),
		transferTimeout: timeout,
		now:             time.Now,
	}
}

// Upload streams r to the bucket under a timestamped key. The whole transfer is
// bounded by the configured transfer timeout.
func (s *s3Storage) Upload(ctx context.Context, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	key := ObjectKey(s.now(), opt.Filename)

	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	// S3 user metadata must be US-ASCII.
	meta := map[string]string{"original-filename": url.PathEscape(opt.Filename)}
	for k, v := range opt.Metadata {
		meta[k] = v
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, opt.Size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %q: %w", key, err)
	}

	return ObjectInfo{
		Key:         key,
		URL:         s.PublicURL(key),
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opt.ContentType,
	}, nil
}

// PublicURL returns the unsigned, browser-accessible URL for key.
func (s *s3Storage) PublicURL(key string) string {
	return s.publicBase + "/" + url.PathEscape(key)
}

// publicBaseURL returns the configured public base, or the AWS virtual-hosted
// style base "https://{bucket}.s3.{region}.amazonaws.com".
func publicBaseURL(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// credentialsFor uses static keys when both are configured, otherwise the
// AWS/MinIO environment variables and finally the instance IAM role.
func credentialsFor(cfg config.StorageConfig) *credentials.Credentials {
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// newTransport fails fast on connection setup; the transfer itself is bounded
// per request in Upload.
func newTransport(cfg config.StorageConfig) (http.RoundTripper, error) {
	tr, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}
	return otelhttp.NewTransport(tr), nil
}

// newHTTPTransport applies the connect timeout to dialing, the TLS handshake
// and the wait for response headers.
func newHTTPTransport(cfg config.StorageConfig) (*http.Transport, error) {
	connect := time.Duration(cfg.ConnectTimeoutSec) * time.Second
	if connect <= 0 {
		connect = 5 * time.Second
	}

	tr, err := minio.DefaultTransport(cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	tr.DialContext = (&net.Dialer{
		Timeout:   connect,
		KeepAlive: 30 * time.Second,
	}).DialContext
	tr.TLSHandshakeTimeout = connect
	tr.ResponseHeaderTimeout = connect

	return tr, nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
