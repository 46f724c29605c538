package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	UID       string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolveUID maps an identity-provider subject to a local user, creating
// the user row on first sight.
func (u Usecase) ResolveUID(ctx context.Context, uid string) (User, error) {
	user, err := u.repo.GetUserByUID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	identity, err := u.identityProvider.GetIdentity(ctx, uid)
	if err != nil {
		return User{}, err
	}

	user, err = u.repo.CreateUser(ctx, User{
		UID:   uid,
		Email: identity.Email,
		Name:  identity.Name,
	})
	if errors.Is(err, ErrConflict) {
		// lost a race with a concurrent first request
		return u.repo.GetUserByUID(ctx, uid)
	}
	return user, err
}

func (u Usecase) GetMe(ctx context.Context) (User, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return User{}, err
	}
	return u.repo.GetUserByID(ctx, userID)
}
