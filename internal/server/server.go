package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adstash/adstash/internal/events"
	"github.com/adstash/adstash/internal/usecase"
)

// Service is the usecase surface the HTTP layer depends on.
type Service interface {
	Health() map[string]string

	VerifyIDToken(context.Context, string) (string, error)
	VerifySessionCookie(context.Context, string) (string, error)
	CreateSession(context.Context, string, time.Duration) (string, error)
	VerifyToken(context.Context, string) (uuid.UUID, error)
	ResolveUID(context.Context, string) (usecase.User, error)
	GetMe(context.Context) (usecase.User, error)

	InitUpload(context.Context, usecase.InitUpload) (usecase.UploadTicket, error)
	FinalizeUpload(context.Context, usecase.FinalizeUpload) (usecase.Asset, error)
	GetAsset(context.Context, uuid.UUID) (usecase.Asset, error)
	UpdateAsset(context.Context, uuid.UUID, usecase.AssetPatch) (usecase.Asset, error)
	DeleteAsset(context.Context, uuid.UUID) error
	ListAssets(context.Context, usecase.ListAssetsOption) ([]usecase.Asset, int, error)

	ListTags(context.Context) ([]usecase.Tag, error)
	CreateTag(context.Context, string, string) (usecase.Tag, error)
	UpdateTag(context.Context, uuid.UUID, usecase.TagPatch) (usecase.Tag, error)
	DeleteTag(context.Context, uuid.UUID) error

	ListSources(context.Context) ([]usecase.Source, error)
	CreateSource(context.Context, usecase.Source) (usecase.Source, error)
	DeleteSource(context.Context, uuid.UUID) error

	CreateToken(context.Context, string, *time.Time) (usecase.IssuedToken, error)
	ListTokens(context.Context) ([]usecase.AccessToken, error)
	RevokeToken(context.Context, uuid.UUID) error
}

var _ Service = usecase.Usecase{}

type SessionConfig struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

type Options struct {
	Session SessionConfig
	// requests per second per token on /api/extension
	ExtensionRate float64
	AllowOrigins  []string
}

type Server struct {
	server    Service
	validator *validator.Validate
	hub       *events.Hub
	logger    *slog.Logger
	opts      Options
}

func NewServer(svc Service, hub *events.Hub, logger *slog.Logger, opts Options) *Server {
	if opts.Session.CookieName == "" {
		opts.Session.CookieName = "__session"
	}
	if opts.Session.MaxAge <= 0 {
		opts.Session.MaxAge = 5 * 24 * time.Hour
	}
	if opts.ExtensionRate <= 0 {
		opts.ExtensionRate = 20
	}
	return &Server{
		server:    svc,
		validator: validator.New(),
		hub:       hub,
		logger:    logger,
		opts:      opts,
	}
}
