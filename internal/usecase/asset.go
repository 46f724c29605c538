package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	AssetStatusDraft     = "draft"
	AssetStatusUploading = "uploading"
	AssetStatusReady     = "ready"
	AssetStatusFailed    = "failed"
)

const (
	CaptureWebUpload = "web_upload"
	CaptureExtension = "extension"
)

const (
	MimeClassImage = "image"
	MimeClassVideo = "video"
)

const (
	DefaultListLimit = 30
	MaxListLimit     = 100

	previewConcurrency = 8
)

type Asset struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Status          string
	CaptureMethod   string
	SourcePlatform  string
	SourceURL       *string
	FileName        string
	MimeType        string
	SizeBytes       *int64
	Width           *int
	Height          *int
	DurationSeconds *float64
	StoragePath     *string
	PreviewPath     *string
	ContentHash     *string
	Notes           *string
	Extra           map[string]any
	Colors          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tags       []Tag
	PreviewURL *string
}

func (a Asset) MimeClass() string {
	class, _, _ := strings.Cut(a.MimeType, "/")
	return class
}

type InitUpload struct {
	FileName       string
	MimeType       string
	SizeBytes      *int64
	SourcePlatform string
	SourceURL      string
	Notes          string
	CaptureMethod  string
	Extra          map[string]any
	// RemoteOnly records an extension capture whose bytes could not be
	// fetched. The asset is ready immediately and holds only SourceURL.
	RemoteOnly bool
}

type UploadTicket struct {
	Asset   Asset
	Upload  *SignedUpload
	Preview *SignedUpload
}

type FinalizeUpload struct {
	AssetID         uuid.UUID
	Width           *int
	Height          *int
	DurationSeconds *float64
	ContentHash     *string
	SizeBytes       *int64
	// nil keeps the current links, empty clears them
	TagIDs uuid.UUIDs
}

// AssetPatch fields left nil are not touched.
type AssetPatch struct {
	Notes          *string
	SourcePlatform *string
	FileName       *string
	Extra          map[string]any
	TagIDs         uuid.UUIDs
}

type AssetAnalysis struct {
	Colors []string
	Width  *int
	Height *int
}

type ListAssetsOption struct {
	Skip  int
	Limit int

	OwnerID        uuid.UUID
	Query          string
	SourcePlatform string
	MimeClass      string
	From           *time.Time
	To             *time.Time
	TagIDs         uuid.UUIDs
}

// ParseDateBound accepts RFC 3339 or a bare date. A bare date used as an
// upper bound covers the whole day.
func ParseDateBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, validationError("invalid date %q", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func validMime(m string) bool {
	class, sub, ok := strings.Cut(m, "/")
	return ok && sub != "" && (class == MimeClassImage || class == MimeClassVideo)
}

func validRemoteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (u Usecase) InitUpload(ctx context.Context, in InitUpload) (UploadTicket, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return UploadTicket{}, err
	}

	in.FileName = strings.TrimSpace(in.FileName)
	in.MimeType = strings.ToLower(strings.TrimSpace(in.MimeType))
	in.SourceURL = strings.TrimSpace(in.SourceURL)
	switch {
	case in.FileName == "":
		return UploadTicket{}, validationError("file name is required")
	case !validMime(in.MimeType):
		return UploadTicket{}, validationError("mime type must be image/* or video/*")
	case in.SizeBytes != nil && (*in.SizeBytes < 0 || *in.SizeBytes > u.uploadMaxBytes):
		return UploadTicket{}, validationError("size must be between 0 and %d bytes", u.uploadMaxBytes)
	case in.SourceURL != "" && !validRemoteURL(in.SourceURL):
		return UploadTicket{}, validationError("source url must be http(s)")
	case in.RemoteOnly && in.SourceURL == "":
		return UploadTicket{}, validationError("source url is required for remote captures")
	}
	switch in.CaptureMethod {
	case "":
		in.CaptureMethod = CaptureWebUpload
	case CaptureWebUpload, CaptureExtension:
	default:
		return UploadTicket{}, validationError("invalid capture method %q", in.CaptureMethod)
	}

	platform, err := u.resolveSource(ctx, userID, in.SourcePlatform, in.SourceURL)
	if err != nil {
		return UploadTicket{}, err
	}

	a := Asset{
		OwnerID:        userID,
		CaptureMethod:  in.CaptureMethod,
		SourcePlatform: platform,
		FileName:       in.FileName,
		MimeType:       in.MimeType,
		SizeBytes:      in.SizeBytes,
		Extra:          in.Extra,
	}
	if in.SourceURL != "" {
		a.SourceURL = &in.SourceURL
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		a.Notes = &notes
	}

	if in.RemoteOnly {
		a.Status = AssetStatusReady
		a, err = u.repo.CreateAsset(ctx, a)
		if err != nil {
			return UploadTicket{}, err
		}
		u.publish(ctx, EventAssetReady, a)
		return UploadTicket{Asset: a}, nil
	}

	p, err := u.newStoragePath(userID, in.FileName)
	if err != nil {
		return UploadTicket{}, err
	}
	a.Status = AssetStatusUploading
	a.StoragePath = &p
	a.PreviewPath = &p

	a, err = u.repo.CreateAsset(ctx, a)
	if err != nil {
		return UploadTicket{}, err
	}

	upload, err := u.presignUpload(ctx, BucketAssets, p)
	if err == nil {
		var preview SignedUpload
		preview, err = u.presignUpload(ctx, BucketPreviews, p)
		if err == nil {
			return UploadTicket{Asset: a, Upload: &upload, Preview: &preview}, nil
		}
	}

	if _, derr := u.repo.DeleteAsset(ctx, userID, a.ID); derr != nil {
		slog.ErrorContext(ctx, "rollback asset after presign failure", "asset_id", a.ID, "err", derr)
	}
	return UploadTicket{}, err
}

// FinalizeUpload promotes an uploading asset to ready. Ready and failed
// assets are rejected with ErrConflict.
func (u Usecase) FinalizeUpload(ctx context.Context, in FinalizeUpload) (Asset, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Asset{}, err
	}
	switch {
	case in.Width != nil && *in.Width < 0, in.Height != nil && *in.Height < 0:
		return Asset{}, validationError("dimensions must not be negative")
	case in.DurationSeconds != nil && *in.DurationSeconds < 0:
		return Asset{}, validationError("duration must not be negative")
	case in.SizeBytes != nil && (*in.SizeBytes < 0 || *in.SizeBytes > u.uploadMaxBytes):
		return Asset{}, validationError("size must be between 0 and %d bytes", u.uploadMaxBytes)
	}

	in.TagIDs = dedupeIDs(in.TagIDs)
	if err := u.ensureOwnedTags(ctx, userID, in.TagIDs); err != nil {
		return Asset{}, err
	}

	a, err := u.repo.FinalizeAsset(ctx, userID, in.AssetID, in)
	if err != nil {
		return Asset{}, err
	}

	u.enqueue(ctx, TaskAnalyzeAsset, AnalyzeAssetPayload{AssetID: a.ID})
	u.publish(ctx, EventAssetReady, a)

	return u.enrichAsset(ctx, a)
}

func (u Usecase) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Asset{}, err
	}
	a, err := u.repo.GetAsset(ctx, userID, id)
	if err != nil {
		return Asset{}, err
	}
	return u.enrichAsset(ctx, a)
}

// UpdateAsset applies the patch as-is. Concurrent updates are last write wins.
func (u Usecase) UpdateAsset(ctx context.Context, id uuid.UUID, patch AssetPatch) (Asset, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Asset{}, err
	}

	if patch.FileName != nil {
		name := strings.TrimSpace(*patch.FileName)
		if name == "" {
			return Asset{}, validationError("file name must not be empty")
		}
		patch.FileName = &name
	}
	if patch.Notes != nil {
		notes := strings.TrimSpace(*patch.Notes)
		patch.Notes = &notes
	}
	if patch.SourcePlatform != nil {
		key, err := u.resolveSource(ctx, userID, *patch.SourcePlatform, "")
		if err != nil {
			return Asset{}, err
		}
		patch.SourcePlatform = &key
	}
	patch.TagIDs = dedupeIDs(patch.TagIDs)
	if err := u.ensureOwnedTags(ctx, userID, patch.TagIDs); err != nil {
		return Asset{}, err
	}

	a, err := u.repo.UpdateAsset(ctx, userID, id, patch)
	if err != nil {
		return Asset{}, err
	}
	return u.enrichAsset(ctx, a)
}

// DeleteAsset removes the row and its tag links, then tries to remove both
// stored objects. Storage errors are logged only.
func (u Usecase) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	a, err := u.repo.DeleteAsset(ctx, userID, id)
	if err != nil {
		return err
	}
	u.removeObjects(ctx, a)
	u.publish(ctx, EventAssetDeleted, a)
	return nil
}

func (u Usecase) removeObjects(ctx context.Context, a Asset) {
	if a.StoragePath != nil {
		if err := u.fileStorageProvider.RemoveObject(ctx, BucketAssets, *a.StoragePath); err != nil {
			slog.WarnContext(ctx, "remove asset object", "asset_id", a.ID, "err", err)
		}
	}
	if a.PreviewPath != nil {
		if err := u.fileStorageProvider.RemoveObject(ctx, BucketPreviews, *a.PreviewPath); err != nil {
			slog.WarnContext(ctx, "remove preview object", "asset_id", a.ID, "err", err)
		}
	}
}

// ListAssets returns ready assets, newest first. When TagIDs is set an asset
// must carry every one of them.
func (u Usecase) ListAssets(ctx context.Context, opt ListAssetsOption) ([]Asset, int, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	opt.OwnerID = userID
	opt.Query = strings.TrimSpace(opt.Query)
	opt.SourcePlatform = strings.ToLower(strings.TrimSpace(opt.SourcePlatform))
	opt.TagIDs = dedupeIDs(opt.TagIDs)

	switch opt.MimeClass {
	case "", MimeClassImage, MimeClassVideo:
	default:
		return nil, 0, validationError("mime class must be image or video")
	}
	if opt.From != nil && opt.To != nil && opt.To.Before(*opt.From) {
		return nil, 0, validationError("to must not be before from")
	}
	if opt.Skip < 0 {
		opt.Skip = 0
	}
	if opt.Limit <= 0 {
		opt.Limit = DefaultListLimit
	}
	if opt.Limit > MaxListLimit {
		opt.Limit = MaxListLimit
	}

	assets, total, err := u.repo.ListAssets(ctx, opt)
	if err != nil {
		return nil, 0, err
	}
	if len(assets) == 0 {
		return assets, total, nil
	}

	ids := make(uuid.UUIDs, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	tags, err := u.repo.ListTagsByAssetIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range assets {
		assets[i].Tags = tags[assets[i].ID]
	}

	u.attachPreviews(ctx, assets)
	return assets, total, nil
}

// attachPreviews signs preview URLs concurrently. A failed signature leaves
// PreviewURL nil.
func (u Usecase) attachPreviews(ctx context.Context, assets []Asset) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i := range assets {
		if assets[i].PreviewPath == nil {
			continue
		}
		g.Go(func() error {
			assets[i].PreviewURL = u.previewURL(gctx, *assets[i].PreviewPath)
			return nil
		})
	}
	_ = g.Wait()
}

func (u Usecase) enrichAsset(ctx context.Context, a Asset) (Asset, error) {
	tags, err := u.repo.ListTagsByAssetIDs(ctx, uuid.UUIDs{a.ID})
	if err != nil {
		return Asset{}, err
	}
	a.Tags = tags[a.ID]
	if a.PreviewPath != nil {
		a.PreviewURL = u.previewURL(ctx, *a.PreviewPath)
	}
	return a, nil
}
