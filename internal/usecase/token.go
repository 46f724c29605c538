package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	TokenPrefix    = "adst_"
	tokenSecretLen = 40
	tokenPrefixLen = 12
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

type AccessToken struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	TokenHash  string
	Prefix     string
	LastUsedAt *time.Time
	RevokedAt  *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IssuedToken carries the raw secret. It is only ever returned by CreateToken.
type IssuedToken struct {
	AccessToken
	Token     string
	QRCodeURL string
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(alnum)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alnum[idx.Int64()]
	}
	return string(b), nil
}

func GenerateToken() (string, error) {
	secret, err := randomString(tokenSecretLen)
	if err != nil {
		return "", err
	}
	return TokenPrefix + secret, nil
}

func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func LooksLikeToken(raw string) bool {
	return strings.HasPrefix(raw, TokenPrefix) && len(raw) == len(TokenPrefix)+tokenSecretLen
}

func (u Usecase) CreateToken(ctx context.Context, name string, expiresAt *time.Time) (IssuedToken, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return IssuedToken{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return IssuedToken{}, validationError("token name must be 1-100 characters")
	}
	if expiresAt != nil && !expiresAt.After(u.clock()) {
		return IssuedToken{}, validationError("expires_at must be in the future")
	}

	raw, err := GenerateToken()
	if err != nil {
		return IssuedToken{}, fmt.Errorf("generate token: %w", err)
	}

	t, err := u.repo.CreateAccessToken(ctx, AccessToken{
		OwnerID:   userID,
		Name:      name,
		TokenHash: HashToken(raw),
		Prefix:    raw[:tokenPrefixLen],
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return IssuedToken{}, err
	}

	issued := IssuedToken{AccessToken: t, Token: raw}
	if png, err := qrcode.Encode(raw, qrcode.Medium, 256); err == nil {
		issued.QRCodeURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	u.enqueue(ctx, TaskTokenCreated, TokenCreatedPayload{
		UserID:  userID,
		TokenID: t.ID,
	})

	return issued, nil
}

func (u Usecase) ListTokens(ctx context.Context) ([]AccessToken, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return u.repo.ListAccessTokens(ctx, userID)
}

func (u Usecase) RevokeToken(ctx context.Context, id uuid.UUID) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	return u.repo.RevokeAccessToken(ctx, userID, id, u.clock())
}

// VerifyToken resolves a raw bearer token to its owner. Revoked, expired and
// unknown tokens are all reported as ErrUnauthenticated.
func (u Usecase) VerifyToken(ctx context.Context, raw string) (uuid.UUID, error) {
	if !LooksLikeToken(raw) {
		return uuid.Nil, fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	}
	t, err := u.repo.GetActiveAccessTokenByHash(ctx, HashToken(raw))
	if errors.Is(err, ErrNotFound) {
		return uuid.Nil, fmt.Errorf("%w: unknown or revoked token", ErrUnauthenticated)
	}
	if err != nil {
		return uuid.Nil, err
	}

	now := u.clock()
	if t.ExpiresAt != nil && !now.Before(*t.ExpiresAt) {
		return uuid.Nil, fmt.Errorf("%w: token expired", ErrUnauthenticated)
	}

	if err := u.repo.TouchAccessToken(ctx, t.ID, now); err != nil {
		slog.WarnContext(ctx, "touch access token", "token_id", t.ID, "err", err)
	}
	return t.OwnerID, nil
}
