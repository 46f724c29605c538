package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Bucket string

const (
	BucketAssets   Bucket = "assets"
	BucketPreviews Bucket = "previews"
)

type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

type ObjectInfo struct {
	Size        int64
	ContentType string
}

// SignedUpload is one client-direct PUT target handed out by InitUpload.
type SignedUpload struct {
	Bucket    Bucket
	Path      string
	URL       string
	ExpiresAt time.Time
}

const maxSanitizedNameLen = 100

// SanitizeFilename keeps [A-Za-z0-9._-] and collapses every other run of
// characters into a single underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var (
		b       strings.Builder
		pending bool
	)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxSanitizedNameLen {
		out = out[len(out)-maxSanitizedNameLen:]
	}
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}

// StoragePath builds owner/<unix-millis>-<random>-<sanitized name>.
func StoragePath(ownerID uuid.UUID, filename string, at time.Time, suffix string) string {
	return fmt.Sprintf("%s/%d-%s-%s", ownerID, at.UnixMilli(), suffix, SanitizeFilename(filename))
}

func (u Usecase) newStoragePath(ownerID uuid.UUID, filename string) (string, error) {
	suffix, err := randomString(8)
	if err != nil {
		return "", err
	}
	return StoragePath(ownerID, filename, u.clock(), strings.ToLower(suffix)), nil
}

func (u Usecase) presignUpload(ctx context.Context, bucket Bucket, p string) (SignedUpload, error) {
	signed, err := u.fileStorageProvider.PresignPut(ctx, bucket, p)
	if err != nil {
		return SignedUpload{}, err
	}
	return SignedUpload{
		Bucket:    bucket,
		Path:      p,
		URL:       signed.URL,
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// previewURL mints a short-lived GET URL for the preview object, consulting
// the cache first. A preview that was never uploaded, or any storage
// failure, yields nil.
func (u Usecase) previewURL(ctx context.Context, p string) *string {
	if p == "" {
		return nil
	}
	key := string(BucketPreviews) + "/" + p
	if u.previews != nil {
		if v, ok := u.previews.Get(ctx, key); ok {
			return &v
		}
	}
	if _, err := u.fileStorageProvider.StatObject(ctx, BucketPreviews, p); err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "stat preview", "path", p, "err", err)
		}
		return nil
	}
	signed, err := u.fileStorageProvider.PresignGet(ctx, BucketPreviews, p)
	if err != nil || signed.URL == "" {
		return nil
	}
	if u.previews != nil {
		if ttl := time.Until(signed.ExpiresAt) / 2; ttl > 0 {
			u.previews.Set(ctx, key, signed.URL, ttl)
		}
	}
	return &signed.URL
}
