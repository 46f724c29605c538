package database

import (
	"context"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Source holds an owner's custom platform. Built-in platforms are not stored.
type Source struct {
	ID        uuid.UUID                   `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	OwnerID   uuid.UUID                   `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:idx_sources_owner_key"`
	Key       string                      `gorm:"column:key;type:varchar(50);not null;uniqueIndex:idx_sources_owner_key"`
	Label     string                      `gorm:"column:label;type:varchar(100);not null"`
	Patterns  datatypes.JSONSlice[string] `gorm:"column:patterns;type:jsonb"`
	CreatedAt time.Time                   `gorm:"column:created_at"`
	UpdatedAt time.Time                   `gorm:"column:updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Source) TableName() string {
	return "sources"
}

func (s Source) ConvertToUsecase() usecase.Source {
	return usecase.Source{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Key:       s.Key,
		Label:     s.Label,
		Patterns:  []string(s.Patterns),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (s *service) ListCustomSources(ctx context.Context, ownerID uuid.UUID) ([]usecase.Source, error) {
	var sources []Source
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	usources := make([]usecase.Source, 0, len(sources))
	for _, src := range sources {
		usources = append(usources, src.ConvertToUsecase())
	}
	return usources, nil
}

func (s *service) CreateSource(ctx context.Context, us usecase.Source) (usecase.Source, error) {
	src := Source{
		OwnerID:  us.OwnerID,
		Key:      us.Key,
		Label:    us.Label,
		Patterns: datatypes.JSONSlice[string](us.Patterns),
	}
	if err := s.db.WithContext(ctx).Create(&src).Error; err != nil {
		return usecase.Source{}, translate(err)
	}
	return src.ConvertToUsecase(), nil
}

func (s *service) DeleteSource(ctx context.Context, ownerID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&Source{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrNotFound
	}
	return nil
}
