package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Secure          bool
	// Region skips the bucket location lookup when set.
	Region  string
	Buckets Buckets
	Expiry  time.Duration
}

type MinIOStorage struct {
	client  *minio.Client
	buckets Buckets
	expiry  time.Duration
}

func NewMinIOStorage(opt MinIOOptions) (*MinIOStorage, error) {
	m, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKeyID, opt.SecretAccessKey, ""),
		Secure: opt.Secure,
		Region: opt.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinIOStorage{
		client:  m,
		buckets: opt.Buckets,
		expiry:  opt.Expiry,
	}, nil
}

// EnsureBuckets creates any missing bucket. Used by local setups.
func (f *MinIOStorage) EnsureBuckets(ctx context.Context) error {
	for _, name := range f.buckets {
		exists, err := f.client.BucketExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := f.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (f *MinIOStorage) PresignPut(ctx context.Context, bucket usecase.Bucket, path string) (usecase.SignedURL, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	expiresAt := time.Now().Add(f.expiry)
	u, err := f.client.PresignedPutObject(ctx, name, path, f.expiry)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	return usecase.SignedURL{URL: u.String(), ExpiresAt: expiresAt}, nil
}

func (f *MinIOStorage) PresignGet(ctx context.Context, bucket usecase.Bucket, path string) (usecase.SignedURL, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	expiresAt := time.Now().Add(f.expiry)
	u, err := f.client.PresignedGetObject(ctx, name, path, f.expiry, nil)
	if err != nil {
		return usecase.SignedURL{}, err
	}
	return usecase.SignedURL{URL: u.String(), ExpiresAt: expiresAt}, nil
}

func (f *MinIOStorage) GetObject(ctx context.Context, bucket usecase.Bucket, path string) (io.ReadCloser, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return nil, err
	}
	obj, err := f.client.GetObject(ctx, name, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, minioErr(err, bucket, path)
	}
	return obj, nil
}

func (f *MinIOStorage) StatObject(ctx context.Context, bucket usecase.Bucket, path string) (usecase.ObjectInfo, error) {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return usecase.ObjectInfo{}, err
	}
	info, err := f.client.StatObject(ctx, name, path, minio.StatObjectOptions{})
	if err != nil {
		return usecase.ObjectInfo{}, minioErr(err, bucket, path)
	}
	return usecase.ObjectInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

func minioErr(err error, bucket usecase.Bucket, path string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s/%s: %w", bucket, path, usecase.ErrNotFound)
	}
	return err
}

func (f *MinIOStorage) RemoveObject(ctx context.Context, bucket usecase.Bucket, path string) error {
	name, err := f.buckets.resolve(bucket)
	if err != nil {
		return err
	}
	return f.client.RemoveObject(ctx, name, path, minio.RemoveObjectOptions{})
}
