package database

import (
	"context"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	UID       string    `gorm:"column:uid;type:varchar(128);not null;uniqueIndex"`
	Email     string    `gorm:"column:email;type:varchar(255)"`
	Name      string    `gorm:"column:name;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u User) ConvertToUsecase() usecase.User {
	return usecase.User{
		ID:        u.ID,
		UID:       u.UID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (usecase.User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return usecase.User{}, translate(err)
	}
	return u.ConvertToUsecase(), nil
}

func (s *service) GetUserByUID(ctx context.Context, uid string) (usecase.User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return usecase.User{}, translate(err)
	}
	return u.ConvertToUsecase(), nil
}

func (s *service) CreateUser(ctx context.Context, user usecase.User) (usecase.User, error) {
	u := User{
		UID:   user.UID,
		Email: user.Email,
		Name:  user.Name,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return usecase.User{}, translate(err)
	}
	return u.ConvertToUsecase(), nil
}
