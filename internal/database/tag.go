package database

import (
	"context"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Tag struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:idx_tags_owner_name"`
	Name      string    `gorm:"column:name;type:varchar(50);not null;uniqueIndex:idx_tags_owner_name"`
	Color     string    `gorm:"column:color;type:varchar(7);not null;default:'#64748b'"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	AssetCount int `gorm:"column:asset_count;->;-:migration"`

	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t Tag) ConvertToUsecase() usecase.Tag {
	return usecase.Tag{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		Name:       t.Name,
		Color:      t.Color,
		AssetCount: t.AssetCount,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// AssetTag links an asset to a tag. It has no identity of its own.
type AssetTag struct {
	AssetID   uuid.UUID `gorm:"column:asset_id;type:uuid;primaryKey"`
	TagID     uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"column:created_at"`

	Asset *Asset `gorm:"foreignKey:AssetID;references:ID;constraint:OnDelete:CASCADE"`
	Tag   *Tag   `gorm:"foreignKey:TagID;references:ID;constraint:OnDelete:CASCADE"`
}

func (AssetTag) TableName() string {
	return "asset_tags"
}

func (s *service) ListTags(ctx context.Context, ownerID uuid.UUID) ([]usecase.Tag, error) {
	var tags []Tag
	err := s.db.WithContext(ctx).Model(&Tag{}).
		Select("tags.*, COUNT(asset_tags.asset_id) AS asset_count").
		Joins("LEFT JOIN asset_tags ON asset_tags.tag_id = tags.id").
		Where("tags.owner_id = ?", ownerID).
		Group("tags.id").
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	utags := make([]usecase.Tag, 0, len(tags))
	for _, t := range tags {
		utags = append(utags, t.ConvertToUsecase())
	}
	return utags, nil
}

func (s *service) CountOwnedTags(ctx context.Context, ownerID uuid.UUID, ids uuid.UUIDs) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Tag{}).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Count(&n).Error
	return int(n), err
}

func (s *service) CreateTag(ctx context.Context, ut usecase.Tag) (usecase.Tag, error) {
	t := Tag{
		OwnerID: ut.OwnerID,
		Name:    ut.Name,
		Color:   ut.Color,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return usecase.Tag{}, translate(err)
	}
	return t.ConvertToUsecase(), nil
}

func (s *service) UpdateTag(ctx context.Context, ownerID, id uuid.UUID, p usecase.TagPatch) (usecase.Tag, error) {
	var t Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&t).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		if p.Name != nil {
			updates["name"] = *p.Name
		}
		if p.Color != nil {
			updates["color"] = *p.Color
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&t).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&t).Error
	})
	if err != nil {
		return usecase.Tag{}, translate(err)
	}
	return t.ConvertToUsecase(), nil
}

// DeleteTag removes the tag and its links. Assets are untouched.
func (s *service) DeleteTag(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Limit(1).Find(&Tag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("tag_id = ?", id).Delete(&AssetTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Tag{}, "id = ?", id).Error
	})
	return translate(err)
}

func (s *service) ListTagsByAssetIDs(ctx context.Context, ids uuid.UUIDs) (map[uuid.UUID][]usecase.Tag, error) {
	type row struct {
		AssetID uuid.UUID `gorm:"column:asset_id"`
		Tag     `gorm:"embedded"`
	}

	out := make(map[uuid.UUID][]usecase.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []row
	err := s.db.WithContext(ctx).Table("asset_tags").
		Select("asset_tags.asset_id, tags.id, tags.owner_id, tags.name, tags.color, tags.created_at, tags.updated_at").
		Joins("JOIN tags ON tags.id = asset_tags.tag_id").
		Where("asset_tags.asset_id IN ?", ids).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.AssetID] = append(out[r.AssetID], r.Tag.ConvertToUsecase())
	}
	return out, nil
}
