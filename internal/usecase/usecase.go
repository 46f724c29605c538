package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

func New(
	repo Repository,
	ip IdentityProvider,
	fsp FileStorageProvider,
	mailer MailProvider,
	queue Queue,
) Usecase {
	return Usecase{
		repo:                repo,
		identityProvider:    ip,
		fileStorageProvider: fsp,
		mailer:              mailer,
		queue:               queue,
		uploadMaxBytes:      500 << 20,
		orphanTTL:           24 * time.Hour,
	}
}

type Repository interface {
	Health() map[string]string
	Close() error

	GetUserByID(context.Context, uuid.UUID) (User, error)
	GetUserByUID(context.Context, string) (User, error)
	CreateUser(context.Context, User) (User, error)

	CreateAsset(context.Context, Asset) (Asset, error)
	GetAsset(context.Context, uuid.UUID, uuid.UUID) (Asset, error)
	GetAssetByID(context.Context, uuid.UUID) (Asset, error)
	ListAssets(context.Context, ListAssetsOption) ([]Asset, int, error)
	FinalizeAsset(context.Context, uuid.UUID, uuid.UUID, FinalizeUpload) (Asset, error)
	UpdateAsset(context.Context, uuid.UUID, uuid.UUID, AssetPatch) (Asset, error)
	DeleteAsset(context.Context, uuid.UUID, uuid.UUID) (Asset, error)
	UpdateAssetAnalysis(context.Context, uuid.UUID, AssetAnalysis) error
	ListOrphanAssets(context.Context, time.Time, int) ([]Asset, error)
	MarkAssetFailed(context.Context, uuid.UUID) (bool, error)
	ListTagsByAssetIDs(context.Context, uuid.UUIDs) (map[uuid.UUID][]Tag, error)

	ListTags(context.Context, uuid.UUID) ([]Tag, error)
	CountOwnedTags(context.Context, uuid.UUID, uuid.UUIDs) (int, error)
	CreateTag(context.Context, Tag) (Tag, error)
	UpdateTag(context.Context, uuid.UUID, uuid.UUID, TagPatch) (Tag, error)
	DeleteTag(context.Context, uuid.UUID, uuid.UUID) error

	ListCustomSources(context.Context, uuid.UUID) ([]Source, error)
	CreateSource(context.Context, Source) (Source, error)
	DeleteSource(context.Context, uuid.UUID, uuid.UUID) error

	CreateAccessToken(context.Context, AccessToken) (AccessToken, error)
	ListAccessTokens(context.Context, uuid.UUID) ([]AccessToken, error)
	RevokeAccessToken(context.Context, uuid.UUID, uuid.UUID, time.Time) error
	GetActiveAccessTokenByHash(context.Context, string) (AccessToken, error)
	TouchAccessToken(context.Context, uuid.UUID, time.Time) error
}

// IdentityProvider verifies credentials issued by the external auth service.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, token string) (string, error)
	VerifySessionCookie(ctx context.Context, cookie string) (string, error)
	CreateSessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	GetIdentity(ctx context.Context, uid string) (Identity, error)
}

type Identity struct {
	UID   string
	Email string
	Name  string
}

type FileStorageProvider interface {
	PresignPut(ctx context.Context, bucket Bucket, path string) (SignedURL, error)
	PresignGet(ctx context.Context, bucket Bucket, path string) (SignedURL, error)
	GetObject(ctx context.Context, bucket Bucket, path string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket Bucket, path string) (ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket Bucket, path string) error
}

type MailProvider interface {
	SendEmail(context.Context, Email) error
}

type Queue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}

type EventPublisher interface {
	Publish(context.Context, Event) error
}

// PreviewCache keeps signed preview URLs keyed by storage path.
type PreviewCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type Usecase struct {
	repo                Repository
	identityProvider    IdentityProvider
	fileStorageProvider FileStorageProvider
	mailer              MailProvider
	queue               Queue
	events              EventPublisher
	previews            PreviewCache

	uploadMaxBytes int64
	orphanTTL      time.Duration
	mailFrom       string
	now            func() time.Time
}

func (u Usecase) WithEventPublisher(p EventPublisher) Usecase {
	u.events = p
	return u
}

func (u Usecase) WithPreviewCache(c PreviewCache) Usecase {
	u.previews = c
	return u
}

func (u Usecase) WithUploadMaxBytes(n int64) Usecase {
	if n > 0 {
		u.uploadMaxBytes = n
	}
	return u
}

func (u Usecase) WithOrphanTTL(d time.Duration) Usecase {
	if d > 0 {
		u.orphanTTL = d
	}
	return u
}

func (u Usecase) WithMailFrom(from string) Usecase {
	u.mailFrom = from
	return u
}

func (u Usecase) clock() time.Time {
	if u.now != nil {
		return u.now()
	}
	return time.Now()
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

func (u Usecase) Close() error {
	return u.repo.Close()
}
