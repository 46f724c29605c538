package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/adstash/adstash/internal/config"
	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// userIDFromContext returns the authenticated owner placed by the auth middleware.
func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(config.CTX_KEY_USER_ID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: user id not found in context", ErrUnauthenticated)
	}
	return userID, nil
}

// WithUserID is used by the auth middleware and by tests to scope a context to an owner.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, config.CTX_KEY_USER_ID, id)
}

// dedupeIDs drops nil and repeated ids. A nil input stays nil so callers can
// tell "not given" apart from "empty".
func dedupeIDs(ids uuid.UUIDs) uuid.UUIDs {
	if ids == nil {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make(uuid.UUIDs, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
