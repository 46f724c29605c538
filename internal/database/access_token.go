package database

import (
	"context"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessToken struct {
	ID         uuid.UUID  `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	OwnerID    uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index"`
	Name       string     `gorm:"column:name;type:varchar(100);not null"`
	TokenHash  string     `gorm:"column:token_hash;type:char(64);not null;uniqueIndex"`
	Prefix     string     `gorm:"column:prefix;type:varchar(12);not null"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID;references:ID;constraint:OnDelete:CASCADE"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

func (t AccessToken) ConvertToUsecase() usecase.AccessToken {
	return usecase.AccessToken{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		Name:       t.Name,
		TokenHash:  t.TokenHash,
		Prefix:     t.Prefix,
		LastUsedAt: t.LastUsedAt,
		RevokedAt:  t.RevokedAt,
		ExpiresAt:  t.ExpiresAt,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func (s *service) CreateAccessToken(ctx context.Context, ut usecase.AccessToken) (usecase.AccessToken, error) {
	t := AccessToken{
		OwnerID:   ut.OwnerID,
		Name:      ut.Name,
		TokenHash: ut.TokenHash,
		Prefix:    ut.Prefix,
		ExpiresAt: ut.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return usecase.AccessToken{}, translate(err)
	}
	return t.ConvertToUsecase(), nil
}

func (s *service) ListAccessTokens(ctx context.Context, ownerID uuid.UUID) ([]usecase.AccessToken, error) {
	var tokens []AccessToken
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	utokens := make([]usecase.AccessToken, 0, len(tokens))
	for _, t := range tokens {
		utokens = append(utokens, t.ConvertToUsecase())
	}
	return utokens, nil
}

// RevokeAccessToken keeps the first revocation time on repeat calls.
func (s *service) RevokeAccessToken(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t AccessToken
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&t).Error; err != nil {
			return err
		}
		if t.RevokedAt != nil {
			return nil
		}
		return tx.Model(&t).Update("revoked_at", at).Error
	})
	return translate(err)
}

func (s *service) GetActiveAccessTokenByHash(ctx context.Context, hash string) (usecase.AccessToken, error) {
	var t AccessToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		First(&t).Error
	if err != nil {
		return usecase.AccessToken{}, translate(err)
	}
	return t.ConvertToUsecase(), nil
}

func (s *service) TouchAccessToken(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&AccessToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}
