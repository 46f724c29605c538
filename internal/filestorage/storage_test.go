package filestorage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketsFromEnv(t *testing.T) {
	t.Setenv("ASSETS_BUCKET", "")
	t.Setenv("PREVIEWS_BUCKET", "thumbs")

	b := BucketsFromEnv()
	assert.Equal(t, "assets", b[usecase.BucketAssets])
	assert.Equal(t, "thumbs", b[usecase.BucketPreviews])

	_, err := b.resolve("nope")
	assert.Error(t, err)
}

func TestPresignExpiryFromEnv(t *testing.T) {
	t.Setenv("PRESIGN_URL_EXPIRE_MINUTES", "")
	assert.Equal(t, 15*time.Minute, PresignExpiryFromEnv())
	t.Setenv("PRESIGN_URL_EXPIRE_MINUTES", "5")
	assert.Equal(t, 5*time.Minute, PresignExpiryFromEnv())
}

func TestNewFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "ftp")
	_, err := NewFromEnv(context.Background())
	assert.Error(t, err)
}

// Presigning is computed locally once the region is known.
func TestMinIOStorage_Presign(t *testing.T) {
	s, err := NewMinIOStorage(MinIOOptions{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Region:          "us-east-1",
		Buckets:         Buckets{usecase.BucketAssets: "ads-primary", usecase.BucketPreviews: "ads-previews"},
		Expiry:          10 * time.Minute,
	})
	require.NoError(t, err)

	put, err := s.PresignPut(context.Background(), usecase.BucketAssets, "owner/1-abc-ad.png")
	require.NoError(t, err)
	u, err := url.Parse(put.URL)
	require.NoError(t, err)
	assert.Equal(t, "/ads-primary/owner/1-abc-ad.png", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), put.ExpiresAt, 5*time.Second)

	get, err := s.PresignGet(context.Background(), usecase.BucketPreviews, "owner/1-abc-ad.png")
	require.NoError(t, err)
	assert.Contains(t, get.URL, "/ads-previews/owner/1-abc-ad.png")

	_, err = s.PresignPut(context.Background(), "unknown", "x")
	assert.Error(t, err)
}
