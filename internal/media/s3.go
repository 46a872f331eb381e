package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dreamlog/internal/config"
	"dreamlog/internal/dream"
)

// S3Store is an S3-backed implementation of the MediaStore interface. Objects
// are written with the upload manager (multipart for large files) under
// <prefix>/<key>; S3 puts are upserts by nature, so retrying a failed save
// simply overwrites the object.
type S3Store struct {
	client        *s3.Client
	uploader      *manager.Uploader
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Store creates an S3 media store from the media config. Credentials
// fall back to the default AWS chain when no static pair is configured; a
// custom endpoint (MinIO, Supabase storage gateways) switches the client to
// path-style addressing.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 media store requires s3_bucket to be set")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.S3PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, awsCfg.Region)
	}

	return &S3Store{
		client:        client,
		uploader:      manager.NewUploader(client),
		bucket:        cfg.S3Bucket,
		prefix:        strings.Trim(cfg.S3Prefix, "/"),
		publicBaseURL: baseURL,
	}, nil
}

func (v *S3Store) objectKey(key string) string {
	if v.prefix == "" {
		return key
	}
	return v.prefix + "/" + key
}

// Put uploads an object and returns its public URL.
func (v *S3Store) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(v.bucket),
		Key:         aws.String(v.objectKey(key)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading to s3: %w", err)
	}
	return v.publicBaseURL + "/" + v.objectKey(key), nil
}

// Get retrieves an object by key and writes it to w.
func (v *S3Store) Get(ctx context.Context, key string, w io.Writer) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("fetching from s3: %w", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading s3 object: %w", err)
	}
	return nil
}

// Delete removes an object. S3 delete is idempotent; missing keys succeed.
func (v *S3Store) Delete(ctx context.Context, key string) error {
	_, err := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

// KeyFromURL derives the object key from a URL returned by Put.
func (v *S3Store) KeyFromURL(url string) string {
	prefix := v.publicBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	key := strings.TrimPrefix(url, prefix)
	if v.prefix != "" {
		key = strings.TrimPrefix(key, v.prefix+"/")
	}
	// Signed URLs carry a query string; the key ends at it.
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	return key
}

// ValidateSetup verifies the bucket is reachable with the configured
// credentials.
func (v *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket not accessible: %w", err)
	}
	return nil
}

// Compile-time check that S3Store implements dream.MediaStore.
var _ dream.MediaStore = (*S3Store)(nil)
