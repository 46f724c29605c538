package database

import (
	"context"
	"strings"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Asset struct {
	ID              uuid.UUID                   `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	OwnerID         uuid.UUID                   `gorm:"column:owner_id;type:uuid;not null;index:idx_assets_owner_created,priority:1"`
	Status          string                      `gorm:"column:status;type:varchar(16);not null;default:'draft';index"`
	CaptureMethod   string                      `gorm:"column:capture_method;type:varchar(16);not null;default:'web_upload'"`
	SourcePlatform  string                      `gorm:"column:source_platform;type:varchar(50);not null;default:'other'"`
	SourceURL       *string                     `gorm:"column:source_url;type:text"`
	FileName        string                      `gorm:"column:file_name;type:varchar(255);not null"`
	MimeType        string                      `gorm:"column:mime_type;type:varchar(127);not null"`
	SizeBytes       *int64                      `gorm:"column:size_bytes"`
	Width           *int                        `gorm:"column:width"`
	Height          *int                        `gorm:"column:height"`
	DurationSeconds *float64                    `gorm:"column:duration_seconds"`
	StoragePath     *string                     `gorm:"column:storage_path;type:text"`
	PreviewPath     *string                     `gorm:"column:preview_path;type:text"`
	ContentHash     *string                     `gorm:"column:content_hash;type:varchar(128)"`
	Notes           *string                     `gorm:"column:notes;type:text"`
	Extra           datatypes.JSONMap           `gorm:"column:extra;type:jsonb"`
	Colors          datatypes.JSONSlice[string] `gorm:"column:colors;type:jsonb"`
	CreatedAt       time.Time                   `gorm:"column:created_at;index:idx_assets_owner_created,priority:2,sort:desc"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a Asset) ConvertToUsecase() usecase.Asset {
	ua := usecase.Asset{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		Status:          a.Status,
		CaptureMethod:   a.CaptureMethod,
		SourcePlatform:  a.SourcePlatform,
		SourceURL:       a.SourceURL,
		FileName:        a.FileName,
		MimeType:        a.MimeType,
		SizeBytes:       a.SizeBytes,
		Width:           a.Width,
		Height:          a.Height,
		DurationSeconds: a.DurationSeconds,
		StoragePath:     a.StoragePath,
		PreviewPath:     a.PreviewPath,
		ContentHash:     a.ContentHash,
		Notes:           a.Notes,
		Extra:           a.Extra,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if len(a.Colors) > 0 {
		ua.Colors = []string(a.Colors)
	}
	return ua
}

func (s *service) CreateAsset(ctx context.Context, ua usecase.Asset) (usecase.Asset, error) {
	a := Asset{
		OwnerID:        ua.OwnerID,
		Status:         ua.Status,
		CaptureMethod:  ua.CaptureMethod,
		SourcePlatform: ua.SourcePlatform,
		SourceURL:      ua.SourceURL,
		FileName:       ua.FileName,
		MimeType:       ua.MimeType,
		SizeBytes:      ua.SizeBytes,
		StoragePath:    ua.StoragePath,
		PreviewPath:    ua.PreviewPath,
		Notes:          ua.Notes,
	}
	if ua.Extra != nil {
		a.Extra = datatypes.JSONMap(ua.Extra)
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return usecase.Asset{}, translate(err)
	}
	return a.ConvertToUsecase(), nil
}

func ownedAsset(tx *gorm.DB, ownerID, id uuid.UUID) (Asset, error) {
	var a Asset
	err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&a).Error
	return a, translate(err)
}

func (s *service) GetAsset(ctx context.Context, ownerID, id uuid.UUID) (usecase.Asset, error) {
	a, err := ownedAsset(s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return usecase.Asset{}, err
	}
	return a.ConvertToUsecase(), nil
}

// GetAssetByID skips the owner filter. Only background tasks call it.
func (s *service) GetAssetByID(ctx context.Context, id uuid.UUID) (usecase.Asset, error) {
	var a Asset
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return usecase.Asset{}, translate(err)
	}
	return a.ConvertToUsecase(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *service) ListAssets(ctx context.Context, opt usecase.ListAssetsOption) ([]usecase.Asset, int, error) {
	var (
		assets  []Asset
		uassets []usecase.Asset
		count   int64
	)

	db := s.db.WithContext(ctx).Model(&Asset{}).
		Where("owner_id = ? AND status = ?", opt.OwnerID, usecase.AssetStatusReady)

	if opt.Query != "" {
		like := "%" + likeEscaper.Replace(opt.Query) + "%"
		db = db.Where("(file_name ILIKE ? OR notes ILIKE ?)", like, like)
	}
	if opt.SourcePlatform != "" {
		db = db.Where("source_platform = ?", opt.SourcePlatform)
	}
	if opt.MimeClass != "" {
		db = db.Where("mime_type LIKE ?", opt.MimeClass+"/%")
	}
	if opt.From != nil {
		db = db.Where("created_at >= ?", *opt.From)
	}
	if opt.To != nil {
		db = db.Where("created_at <= ?", *opt.To)
	}
	if len(opt.TagIDs) > 0 {
		matching := s.db.Model(&AssetTag{}).
			Select("asset_id").
			Where("tag_id IN ?", opt.TagIDs).
			Group("asset_id").
			Having("COUNT(DISTINCT tag_id) = ?", len(opt.TagIDs))
		db = db.Where("id IN (?)", matching)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if opt.Limit > 0 {
		db = db.Limit(opt.Limit)
	}
	if opt.Skip > 0 {
		db = db.Offset(opt.Skip)
	}

	if err := db.Order("created_at DESC, id DESC").Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	uassets = make([]usecase.Asset, 0, len(assets))
	for _, a := range assets {
		uassets = append(uassets, a.ConvertToUsecase())
	}
	return uassets, int(count), nil
}

func replaceAssetTags(tx *gorm.DB, assetID uuid.UUID, tagIDs uuid.UUIDs) error {
	if err := tx.Where("asset_id = ?", assetID).Delete(&AssetTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]AssetTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, AssetTag{AssetID: assetID, TagID: id})
	}
	return tx.Create(&links).Error
}

// FinalizeAsset locks the row so two finalize calls cannot both pass the
// status check.
func (s *service) FinalizeAsset(ctx context.Context, ownerID, id uuid.UUID, in usecase.FinalizeUpload) (usecase.Asset, error) {
	var a Asset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = ownedAsset(tx.Clauses(clause.Locking{Strength: "UPDATE"}), ownerID, id)
		if err != nil {
			return err
		}
		if a.Status != usecase.AssetStatusDraft && a.Status != usecase.AssetStatusUploading {
			return usecase.ErrConflict
		}

		updates := map[string]any{"status": usecase.AssetStatusReady}
		if in.Width != nil {
			updates["width"] = *in.Width
		}
		if in.Height != nil {
			updates["height"] = *in.Height
		}
		if in.DurationSeconds != nil {
			updates["duration_seconds"] = *in.DurationSeconds
		}
		if in.ContentHash != nil {
			updates["content_hash"] = *in.ContentHash
		}
		if in.SizeBytes != nil {
			updates["size_bytes"] = *in.SizeBytes
		}
		if err := tx.Model(&a).Updates(updates).Error; err != nil {
			return err
		}
		if in.TagIDs != nil {
			if err := replaceAssetTags(tx, id, in.TagIDs); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&a).Error
	})
	if err != nil {
		return usecase.Asset{}, translate(err)
	}
	return a.ConvertToUsecase(), nil
}

func (s *service) UpdateAsset(ctx context.Context, ownerID, id uuid.UUID, p usecase.AssetPatch) (usecase.Asset, error) {
	var a Asset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = ownedAsset(tx, ownerID, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if p.Notes != nil {
			updates["notes"] = *p.Notes
		}
		if p.SourcePlatform != nil {
			updates["source_platform"] = *p.SourcePlatform
		}
		if p.FileName != nil {
			updates["file_name"] = *p.FileName
		}
		if p.Extra != nil {
			updates["extra"] = datatypes.JSONMap(p.Extra)
		}
		if len(updates) > 0 {
			if err := tx.Model(&a).Updates(updates).Error; err != nil {
				return err
			}
		}
		if p.TagIDs != nil {
			if err := replaceAssetTags(tx, id, p.TagIDs); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&a).Error
	})
	if err != nil {
		return usecase.Asset{}, translate(err)
	}
	return a.ConvertToUsecase(), nil
}

// DeleteAsset removes the tag links and the row in one transaction and
// returns the deleted row so the caller can clean up storage.
func (s *service) DeleteAsset(ctx context.Context, ownerID, id uuid.UUID) (usecase.Asset, error) {
	var a Asset
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		a, err = ownedAsset(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("asset_id = ?", id).Delete(&AssetTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Asset{}, "id = ?", id).Error
	})
	if err != nil {
		return usecase.Asset{}, translate(err)
	}
	return a.ConvertToUsecase(), nil
}

func (s *service) UpdateAssetAnalysis(ctx context.Context, id uuid.UUID, an usecase.AssetAnalysis) error {
	updates := map[string]any{
		"colors": datatypes.JSONSlice[string](an.Colors),
	}
	if an.Width != nil {
		updates["width"] = *an.Width
	}
	if an.Height != nil {
		updates["height"] = *an.Height
	}
	res := s.db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (s *service) ListOrphanAssets(ctx context.Context, before time.Time, limit int) ([]usecase.Asset, error) {
	var assets []Asset
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", usecase.AssetStatusUploading, before).
		Order("created_at").
		Limit(limit).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	uassets := make([]usecase.Asset, 0, len(assets))
	for _, a := range assets {
		uassets = append(uassets, a.ConvertToUsecase())
	}
	return uassets, nil
}

// MarkAssetFailed only moves uploading rows; it reports false when a
// finalize won the race.
func (s *service) MarkAssetFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Asset{}).
		Where("id = ? AND status = ?", id, usecase.AssetStatusUploading).
		Update("status", usecase.AssetStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
