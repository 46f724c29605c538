package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/adstash/adstash/internal/config"
	"github.com/adstash/adstash/internal/events"
	"github.com/adstash/adstash/internal/usecase"
)

type mockService struct {
	mock.Mock
}

var _ Service = (*mockService)(nil)

func (m *mockService) Health() map[string]string {
	return m.Called().Get(0).(map[string]string)
}

func (m *mockService) VerifyIDToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *mockService) VerifySessionCookie(ctx context.Context, cookie string) (string, error) {
	args := m.Called(ctx, cookie)
	return args.String(0), args.Error(1)
}

func (m *mockService) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	args := m.Called(ctx, idToken, expiresIn)
	return args.String(0), args.Error(1)
}

func (m *mockService) VerifyToken(ctx context.Context, raw string) (uuid.UUID, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockService) ResolveUID(ctx context.Context, uid string) (usecase.User, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(usecase.User), args.Error(1)
}

func (m *mockService) GetMe(ctx context.Context) (usecase.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(usecase.User), args.Error(1)
}

func (m *mockService) InitUpload(ctx context.Context, in usecase.InitUpload) (usecase.UploadTicket, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.UploadTicket), args.Error(1)
}

func (m *mockService) FinalizeUpload(ctx context.Context, in usecase.FinalizeUpload) (usecase.Asset, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.Asset), args.Error(1)
}

func (m *mockService) GetAsset(ctx context.Context, id uuid.UUID) (usecase.Asset, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(usecase.Asset), args.Error(1)
}

func (m *mockService) UpdateAsset(ctx context.Context, id uuid.UUID, patch usecase.AssetPatch) (usecase.Asset, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(usecase.Asset), args.Error(1)
}

func (m *mockService) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) ListAssets(ctx context.Context, opt usecase.ListAssetsOption) ([]usecase.Asset, int, error) {
	args := m.Called(ctx, opt)
	return args.Get(0).([]usecase.Asset), args.Int(1), args.Error(2)
}

func (m *mockService) ListTags(ctx context.Context) ([]usecase.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]usecase.Tag), args.Error(1)
}

func (m *mockService) CreateTag(ctx context.Context, name, color string) (usecase.Tag, error) {
	args := m.Called(ctx, name, color)
	return args.Get(0).(usecase.Tag), args.Error(1)
}

func (m *mockService) UpdateTag(ctx context.Context, id uuid.UUID, patch usecase.TagPatch) (usecase.Tag, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(usecase.Tag), args.Error(1)
}

func (m *mockService) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) ListSources(ctx context.Context) ([]usecase.Source, error) {
	args := m.Called(ctx)
	return args.Get(0).([]usecase.Source), args.Error(1)
}

func (m *mockService) CreateSource(ctx context.Context, src usecase.Source) (usecase.Source, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(usecase.Source), args.Error(1)
}

func (m *mockService) DeleteSource(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) CreateToken(ctx context.Context, name string, expiresAt *time.Time) (usecase.IssuedToken, error) {
	args := m.Called(ctx, name, expiresAt)
	return args.Get(0).(usecase.IssuedToken), args.Error(1)
}

func (m *mockService) ListTokens(ctx context.Context) ([]usecase.AccessToken, error) {
	args := m.Called(ctx)
	return args.Get(0).([]usecase.AccessToken), args.Error(1)
}

func (m *mockService) RevokeToken(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

const (
	testCookie = "session-cookie"
	testPAT    = "adst_0123456789012345678901234567890123456789"
)

type harness struct {
	svc    *mockService
	srv    *Server
	hub    *events.Hub
	userID uuid.UUID
	h      http.Handler
}

func newHarness(t *testing.T, opts ...func(*Options)) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := Options{}
	for _, fn := range opts {
		fn(&o)
	}
	svc := new(mockService)
	hub := events.NewHub(logger)
	srv := NewServer(svc, hub, logger, o)
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return &harness{svc: svc, srv: srv, hub: hub, userID: uuid.New(), h: srv.RegisterRoutes()}
}

// asSession lets requests carrying testCookie through AuthMiddleware.
func (h *harness) asSession() {
	h.svc.On("VerifySessionCookie", mock.Anything, testCookie).Return("firebase-uid", nil).Maybe()
	h.svc.On("ResolveUID", mock.Anything, "firebase-uid").Return(usecase.User{ID: h.userID}, nil).Maybe()
}

// asToken lets requests carrying testPAT through AuthMiddleware.
func (h *harness) asToken() {
	h.svc.On("VerifyToken", mock.Anything, testPAT).Return(h.userID, nil).Maybe()
}

type auth int

const (
	noAuth auth = iota
	sessionAuth
	tokenAuth
)

func (h *harness) do(method, target, body string, a auth) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	switch a {
	case sessionAuth:
		req.AddCookie(&http.Cookie{Name: "__session", Value: testCookie})
	case tokenAuth:
		req.Header.Set("Authorization", "Bearer "+testPAT)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

// owned matches contexts scoped to the harness user.
func (h *harness) owned() any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		id, _ := ctx.Value(config.CTX_KEY_USER_ID).(uuid.UUID)
		return id == h.userID
	})
}
