package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	"github.com/cenkalti/dominantcolor"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const paletteSize = 4

// ExtractColors decodes a jpeg, png, gif or webp image and returns its
// dominant colours as hex strings together with its bounds.
func ExtractColors(r io.Reader) ([]string, image.Rectangle, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	found := dominantcolor.FindN(img, paletteSize)
	colors := make([]string, 0, len(found))
	for _, c := range found {
		colors = append(colors, dominantcolor.Hex(c))
	}
	return colors, img.Bounds(), nil
}

type analyzeSource struct {
	bucket  Bucket
	path    string
	primary bool
}

// analyzeSources orders the objects worth decoding. Dimensions may only
// come from the primary, so an image still missing them reads the primary
// first.
func analyzeSources(a Asset, needDims bool) []analyzeSource {
	var preview, primary *analyzeSource
	if a.PreviewPath != nil {
		preview = &analyzeSource{bucket: BucketPreviews, path: *a.PreviewPath}
	}
	if a.StoragePath != nil && a.MimeClass() == MimeClassImage {
		primary = &analyzeSource{bucket: BucketAssets, path: *a.StoragePath, primary: true}
	}
	first, second := preview, primary
	if needDims {
		first, second = primary, preview
	}
	var out []analyzeSource
	for _, s := range []*analyzeSource{first, second} {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// ProcessAnalyzeAsset runs in the worker after finalize. It stores the
// dominant palette and, for images finalized without dimensions, the size
// of the primary object. A missing object is skipped rather than retried.
func (u Usecase) ProcessAnalyzeAsset(ctx context.Context, id uuid.UUID) error {
	a, err := u.repo.GetAssetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != AssetStatusReady {
		slog.InfoContext(ctx, "skip asset analysis", "asset_id", id, "status", a.Status)
		return nil
	}
	needDims := a.MimeClass() == MimeClassImage && (a.Width == nil || a.Height == nil)

	var (
		rc  io.ReadCloser
		src analyzeSource
	)
	for _, s := range analyzeSources(a, needDims) {
		rc, err = u.fileStorageProvider.GetObject(ctx, s.bucket, s.path)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s object for asset %s: %w", s.bucket, id, err)
		}
		src = s
		break
	}
	if rc == nil {
		slog.InfoContext(ctx, "skip asset analysis, no stored object", "asset_id", id)
		return nil
	}
	defer rc.Close()

	colors, bounds, err := ExtractColors(io.LimitReader(rc, u.uploadMaxBytes))
	if err != nil {
		slog.WarnContext(ctx, "undecodable asset", "asset_id", id, "bucket", src.bucket, "err", err)
		return nil
	}

	analysis := AssetAnalysis{Colors: colors}
	if needDims && src.primary {
		w, h := bounds.Dx(), bounds.Dy()
		analysis.Width, analysis.Height = &w, &h
	}
	if err := u.repo.UpdateAssetAnalysis(ctx, id, analysis); err != nil {
		return err
	}
	u.publish(ctx, EventAssetAnalyzed, a)
	return nil
}
