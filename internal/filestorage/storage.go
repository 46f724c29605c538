package filestorage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/usecase"
)

// Buckets maps the logical buckets onto provider bucket names.
type Buckets map[usecase.Bucket]string

func (b Buckets) resolve(bucket usecase.Bucket) (string, error) {
	name, ok := b[bucket]
	if !ok || name == "" {
		return "", fmt.Errorf("unknown bucket %q", bucket)
	}
	return name, nil
}

func BucketsFromEnv() Buckets {
	return Buckets{
		usecase.BucketAssets:   config.Getenv(config.ENV_KEY_ASSETS_BUCKET, config.DEFAULT_ASSETS_BUCKET),
		usecase.BucketPreviews: config.Getenv(config.ENV_KEY_PREVIEWS_BUCKET, config.DEFAULT_PREVIEWS_BUCKET),
	}
}

func PresignExpiryFromEnv() time.Duration {
	if m, err := strconv.Atoi(os.Getenv(config.ENV_KEY_PRESIGN_EXPIRE)); err == nil && m > 0 {
		return time.Duration(m) * time.Minute
	}
	return time.Minute * config.PRESIGN_URL_EXPIRE_MINUTES
}

// NewFromEnv picks the provider named by STORAGE_PROVIDER, defaulting to minio.
func NewFromEnv(ctx context.Context) (usecase.FileStorageProvider, error) {
	var (
		buckets = BucketsFromEnv()
		expiry  = PresignExpiryFromEnv()
		region  = os.Getenv(config.ENV_KEY_S3_REGION)
	)
	switch strings.ToLower(os.Getenv(config.ENV_KEY_STORAGE_PROVIDER)) {
	case "", "minio":
		return NewMinIOStorage(MinIOOptions{
			Endpoint:        os.Getenv(config.ENV_KEY_MINIO_ENDPOINT),
			AccessKeyID:     os.Getenv(config.ENV_KEY_MINIO_ACCESS_KEY),
			SecretAccessKey: os.Getenv(config.ENV_KEY_MINIO_SECRET_KEY),
			Secure:          config.GetenvBool(config.ENV_KEY_MINIO_USE_SSL, true),
			Region:          region,
			Buckets:         buckets,
			Expiry:          expiry,
		})
	case "s3":
		return NewS3Storage(ctx, region, buckets, expiry)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", os.Getenv(config.ENV_KEY_STORAGE_PROVIDER))
	}
}
