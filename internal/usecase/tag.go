package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTagColor = "#64748b"

var tagColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Tag struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	Color      string
	AssetCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TagPatch struct {
	Name  *string
	Color *string
}

func normalizeTagName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || len(name) > 50 {
		return "", validationError("tag name must be 1-50 characters")
	}
	return name, nil
}

func normalizeTagColor(color string) (string, error) {
	color = strings.ToLower(strings.TrimSpace(color))
	if !tagColorRe.MatchString(color) {
		return "", validationError("invalid tag color %q", color)
	}
	return color, nil
}

func (u Usecase) ListTags(ctx context.Context) ([]Tag, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return u.repo.ListTags(ctx, userID)
}

func (u Usecase) CreateTag(ctx context.Context, name, color string) (Tag, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Tag{}, err
	}
	name, err = normalizeTagName(name)
	if err != nil {
		return Tag{}, err
	}
	if color == "" {
		color = DefaultTagColor
	}
	if color, err = normalizeTagColor(color); err != nil {
		return Tag{}, err
	}
	return u.repo.CreateTag(ctx, Tag{
		OwnerID: userID,
		Name:    name,
		Color:   color,
	})
}

func (u Usecase) UpdateTag(ctx context.Context, id uuid.UUID, patch TagPatch) (Tag, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Tag{}, err
	}
	if patch.Name != nil {
		name, err := normalizeTagName(*patch.Name)
		if err != nil {
			return Tag{}, err
		}
		patch.Name = &name
	}
	if patch.Color != nil {
		color, err := normalizeTagColor(*patch.Color)
		if err != nil {
			return Tag{}, err
		}
		patch.Color = &color
	}
	return u.repo.UpdateTag(ctx, userID, id, patch)
}

// DeleteTag drops the tag and its links. Tagged assets are kept.
func (u Usecase) DeleteTag(ctx context.Context, id uuid.UUID) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	return u.repo.DeleteTag(ctx, userID, id)
}

// ensureOwnedTags fails with ErrValidation unless every id belongs to the owner.
func (u Usecase) ensureOwnedTags(ctx context.Context, ownerID uuid.UUID, ids uuid.UUIDs) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := u.repo.CountOwnedTags(ctx, ownerID, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return validationError("unknown tag ids")
	}
	return nil
}
