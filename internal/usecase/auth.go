package usecase

import (
	"context"
	"fmt"
	"time"
)

// used by middleware
func (u Usecase) VerifyIDToken(ctx context.Context, token string) (string, error) {
	uid, err := u.identityProvider.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return uid, nil
}

// used by middleware
func (u Usecase) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	uid, err := u.identityProvider.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return uid, nil
}

// CreateSession exchanges a freshly issued ID token for a session cookie value.
func (u Usecase) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	uid, err := u.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	if _, err := u.ResolveUID(ctx, uid); err != nil {
		return "", err
	}
	cookie, err := u.identityProvider.CreateSessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return cookie, nil
}
