package firebase

import (
	"context"
	"fmt"
	"time"

	"github.com/adstash/adstash/internal/usecase"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var _ usecase.IdentityProvider = (*Firebase)(nil)

// New builds an auth client from a service account key file.
func New(ctx context.Context, credentialsPath string) (*Firebase, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := fb.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %w", err)
	}

	return &Firebase{auth: client}, nil
}

type Firebase struct {
	auth *auth.Client
}

// used by middleware
func (f *Firebase) VerifyIDToken(ctx context.Context, token string) (string, error) {
	t, err := f.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return t.UID, nil
}

// used by middleware; also rejects cookies issued before a revocation
func (f *Firebase) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	t, err := f.auth.VerifySessionCookieAndCheckRevoked(ctx, cookie)
	if err != nil {
		return "", err
	}
	return t.UID, nil
}

func (f *Firebase) CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	return f.auth.SessionCookie(ctx, idToken, expiresIn)
}

func (f *Firebase) GetIdentity(ctx context.Context, uid string) (usecase.Identity, error) {
	u, err := f.auth.GetUser(ctx, uid)
	if err != nil {
		return usecase.Identity{}, err
	}
	return usecase.Identity{
		UID:   u.UID,
		Email: u.Email,
		Name:  u.DisplayName,
	}, nil
}
