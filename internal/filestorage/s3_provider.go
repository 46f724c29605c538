package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	buckets Buckets
	expiry  time.Duration
}

// NewS3Storage loads credentials from the default AWS chain.
func NewS3Storage(ctx context.Context, region string, buckets Buckets, expiry time.Duration) (*S3Storage, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		buckets: buckets,
		expiry:  expiry,
	}, nil
}

func (f *S3Storage) withExpiry(po *s3.PresignOptions) {
	po.Expires = f.expiry
}

func (f *S3Storage) PresignPut(ctx context.Context, bucket usecase.Bucket, path string) (usecase.SignedURL, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	expiresAt := time.Now().Add(f.expiry)
	req, err := f.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &name,
		Key:    &path,
	}, f.withExpiry)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	return usecase.SignedURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}

func (f *S3Storage) PresignGet(ctx context.Context, bucket usecase.Bucket, path string) (usecase.SignedURL, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	expiresAt := time.Now().Add(f.expiry)
	req, err := f.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &name,
		Key:    &path,
	}, f.withExpiry)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	return usecase.SignedURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}

func (f *S3Storage) GetObject(ctx context.Context, bucket usecase.Bucket, path string) (io.ReadCloser, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &name,
		Key:    &path,
	})
	if err != nil {
		return nil, s3Err(err, bucket, path)
	}
	return out.Body, nil
}

func (f *S3Storage) StatObject(ctx context.Context, bucket usecase.Bucket, path string) (usecase.ObjectInfo, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.ObjectInfo{}, err
	}
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &name,
		Key:    &path,
	})
	if err != nil {
		return usecase.ObjectInfo{}, s3Err(err, bucket, path)
	}
	info := usecase.ObjectInfo{}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

// s3Err maps a missing key to usecase.ErrNotFound. HeadObject has no body
// so it only reports a bare 404.
func s3Err(err error, bucket usecase.Bucket, path string) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		respErr  *awshttp.ResponseError
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) ||
		(errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound) {
		return fmt.Errorf("%s/%s: %w", bucket, path, usecase.ErrNotFound)
	}
	return err
}

func (f *S3Storage) RemoveObject(ctx context.Context, bucket usecase.Bucket, path string) error {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return err
	}
	_, err = f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &name,
		Key:    &path,
	})
	return err
}
