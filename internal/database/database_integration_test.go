//go:build integration

package database

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "adstash",
			"POSTGRES_PASSWORD": "adstash",
			"POSTGRES_DB":       "adstash",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://adstash:adstash@%s:%s/adstash?sslmode=disable", host, port.Port())
	db, err := Open(dsn, slog.Default())
	require.NoError(t, err)

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *service) uuid.UUID {
	t.Helper()
	u, err := s.CreateUser(context.Background(), usecase.User{UID: uuid.NewString(), Email: "t@example.com"})
	require.NoError(t, err)
	return u.ID
}

func createReadyAsset(t *testing.T, s *service, owner uuid.UUID, name string, tags ...uuid.UUID) usecase.Asset {
	t.Helper()
	ctx := context.Background()
	p := owner.String() + "/1-abcdefgh-" + name
	a, err := s.CreateAsset(ctx, usecase.Asset{
		OwnerID:        owner,
		Status:         usecase.AssetStatusUploading,
		CaptureMethod:  usecase.CaptureWebUpload,
		SourcePlatform: usecase.SourceOther,
		FileName:       name,
		MimeType:       "image/png",
		StoragePath:    &p,
		PreviewPath:    &p,
	})
	require.NoError(t, err)
	w, h := 800, 600
	a, err = s.FinalizeAsset(ctx, owner, a.ID, usecase.FinalizeUpload{Width: &w, Height: &h, TagIDs: tags})
	require.NoError(t, err)
	return a
}

func TestRepository(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	t.Run("new migrates the schema and can run again", func(t *testing.T) {
		for _, table := range []any{User{}, Asset{}, Tag{}, AssetTag{}, Source{}, AccessToken{}} {
			assert.True(t, s.db.Migrator().HasTable(table))
		}
		again, err := New(s.db)
		require.NoError(t, err)
		assert.NotNil(t, again)
	})

	t.Run("user uid is unique", func(t *testing.T) {
		_, err := s.CreateUser(ctx, usecase.User{UID: "dup"})
		require.NoError(t, err)
		_, err = s.CreateUser(ctx, usecase.User{UID: "dup"})
		assert.ErrorIs(t, err, usecase.ErrConflict)

		_, err = s.GetUserByUID(ctx, "missing")
		assert.ErrorIs(t, err, usecase.ErrNotFound)
	})

	t.Run("finalize persists metadata and guards status", func(t *testing.T) {
		owner := createTestUser(t, s)
		a := createReadyAsset(t, s, owner, "ad.png")
		assert.Equal(t, usecase.AssetStatusReady, a.Status)
		assert.Equal(t, 800, *a.Width)
		assert.Equal(t, 600, *a.Height)

		_, err := s.FinalizeAsset(ctx, owner, a.ID, usecase.FinalizeUpload{})
		assert.ErrorIs(t, err, usecase.ErrConflict)
	})

	t.Run("owner isolation", func(t *testing.T) {
		alice, bob := createTestUser(t, s), createTestUser(t, s)
		a := createReadyAsset(t, s, alice, "alice.png")

		_, err := s.GetAsset(ctx, bob, a.ID)
		assert.ErrorIs(t, err, usecase.ErrNotFound)
		_, err = s.DeleteAsset(ctx, bob, a.ID)
		assert.ErrorIs(t, err, usecase.ErrNotFound)
		notes := "x"
		_, err = s.UpdateAsset(ctx, bob, a.ID, usecase.AssetPatch{Notes: &notes})
		assert.ErrorIs(t, err, usecase.ErrNotFound)

		list, total, err := s.ListAssets(ctx, usecase.ListAssetsOption{OwnerID: bob, Limit: 30})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Zero(t, total)
	})

	t.Run("tag names are unique per owner", func(t *testing.T) {
		alice, bob := createTestUser(t, s), createTestUser(t, s)
		_, err := s.CreateTag(ctx, usecase.Tag{OwnerID: alice, Name: "promo", Color: "#64748b"})
		require.NoError(t, err)
		_, err = s.CreateTag(ctx, usecase.Tag{OwnerID: alice, Name: "promo", Color: "#64748b"})
		assert.ErrorIs(t, err, usecase.ErrConflict)
		_, err = s.CreateTag(ctx, usecase.Tag{OwnerID: bob, Name: "promo", Color: "#64748b"})
		assert.NoError(t, err)
	})

	t.Run("tag filter is an intersection", func(t *testing.T) {
		owner := createTestUser(t, s)
		t1, err := s.CreateTag(ctx, usecase.Tag{OwnerID: owner, Name: "t1", Color: "#000000"})
		require.NoError(t, err)
		t2, err := s.CreateTag(ctx, usecase.Tag{OwnerID: owner, Name: "t2", Color: "#000000"})
		require.NoError(t, err)

		both := createReadyAsset(t, s, owner, "both.png", t1.ID, t2.ID)
		createReadyAsset(t, s, owner, "one.png", t1.ID)

		list, total, err := s.ListAssets(ctx, usecase.ListAssetsOption{
			OwnerID: owner,
			TagIDs:  uuid.UUIDs{t1.ID, t2.ID},
			Limit:   30,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 1, total)
		assert.Equal(t, both.ID, list[0].ID)

		list, _, err = s.ListAssets(ctx, usecase.ListAssetsOption{OwnerID: owner, TagIDs: uuid.UUIDs{t1.ID}, Limit: 30})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		tags, err := s.ListTagsByAssetIDs(ctx, uuid.UUIDs{both.ID})
		require.NoError(t, err)
		assert.Len(t, tags[both.ID], 2)

		n, err := s.CountOwnedTags(ctx, owner, uuid.UUIDs{t1.ID, t2.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("free text and mime filters", func(t *testing.T) {
		owner := createTestUser(t, s)
		createReadyAsset(t, s, owner, "Summer_Sale.png")
		createReadyAsset(t, s, owner, "winter.png")

		list, _, err := s.ListAssets(ctx, usecase.ListAssetsOption{OwnerID: owner, Query: "summer", Limit: 30})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Summer_Sale.png", list[0].FileName)

		list, _, err = s.ListAssets(ctx, usecase.ListAssetsOption{OwnerID: owner, Query: "%", Limit: 30})
		require.NoError(t, err)
		assert.Empty(t, list, "like wildcards are matched literally")

		list, _, err = s.ListAssets(ctx, usecase.ListAssetsOption{OwnerID: owner, MimeClass: usecase.MimeClassVideo, Limit: 30})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("deleting a tag keeps assets", func(t *testing.T) {
		owner := createTestUser(t, s)
		tag, err := s.CreateTag(ctx, usecase.Tag{OwnerID: owner, Name: "gone", Color: "#000000"})
		require.NoError(t, err)
		a := createReadyAsset(t, s, owner, "kept.png", tag.ID)

		require.NoError(t, s.DeleteTag(ctx, owner, tag.ID))

		got, err := s.GetAsset(ctx, owner, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		tags, err := s.ListTagsByAssetIDs(ctx, uuid.UUIDs{a.ID})
		require.NoError(t, err)
		assert.Empty(t, tags[a.ID])

		assert.ErrorIs(t, s.DeleteTag(ctx, owner, tag.ID), usecase.ErrNotFound)
	})

	t.Run("deleting an asset removes its links", func(t *testing.T) {
		owner := createTestUser(t, s)
		tag, err := s.CreateTag(ctx, usecase.Tag{OwnerID: owner, Name: "linked", Color: "#000000"})
		require.NoError(t, err)
		a := createReadyAsset(t, s, owner, "doomed.png", tag.ID)

		deleted, err := s.DeleteAsset(ctx, owner, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.StoragePath, deleted.StoragePath)

		var links int64
		require.NoError(t, s.db.Model(&AssetTag{}).Where("asset_id = ?", a.ID).Count(&links).Error)
		assert.Zero(t, links)

		tags, err := s.ListTags(ctx, owner)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Zero(t, tags[0].AssetCount)
	})

	t.Run("revoked tokens are not active", func(t *testing.T) {
		owner := createTestUser(t, s)
		tok, err := s.CreateAccessToken(ctx, usecase.AccessToken{
			OwnerID:   owner,
			Name:      "ext",
			TokenHash: usecase.HashToken("adst_example"),
			Prefix:    "adst_example",
		})
		require.NoError(t, err)

		got, err := s.GetActiveAccessTokenByHash(ctx, tok.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, owner, got.OwnerID)
		require.NoError(t, s.TouchAccessToken(ctx, tok.ID, time.Now()))

		assert.ErrorIs(t, s.RevokeAccessToken(ctx, createTestUser(t, s), tok.ID, time.Now()), usecase.ErrNotFound)
		require.NoError(t, s.RevokeAccessToken(ctx, owner, tok.ID, time.Now()))
		require.NoError(t, s.RevokeAccessToken(ctx, owner, tok.ID, time.Now()))

		_, err = s.GetActiveAccessTokenByHash(ctx, tok.TokenHash)
		assert.ErrorIs(t, err, usecase.ErrNotFound)

		list, err := s.ListAccessTokens(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.NotNil(t, list[0].RevokedAt)
		assert.NotNil(t, list[0].LastUsedAt)
	})

	t.Run("orphans are reaped once", func(t *testing.T) {
		owner := createTestUser(t, s)
		p := owner.String() + "/1-abcdefgh-orphan.png"
		a, err := s.CreateAsset(ctx, usecase.Asset{
			OwnerID: owner, Status: usecase.AssetStatusUploading, CaptureMethod: usecase.CaptureWebUpload,
			SourcePlatform: usecase.SourceOther, FileName: "orphan.png", MimeType: "image/png",
			StoragePath: &p, PreviewPath: &p,
		})
		require.NoError(t, err)

		orphans, err := s.ListOrphanAssets(ctx, time.Now().Add(time.Minute), 100)
		require.NoError(t, err)
		var found bool
		for _, o := range orphans {
			found = found || o.ID == a.ID
		}
		assert.True(t, found)

		ok, err := s.MarkAssetFailed(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.MarkAssetFailed(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("custom sources", func(t *testing.T) {
		owner := createTestUser(t, s)
		src, err := s.CreateSource(ctx, usecase.Source{OwnerID: owner, Key: "threads", Label: "Threads", Patterns: []string{"threads.net"}})
		require.NoError(t, err)
		_, err = s.CreateSource(ctx, usecase.Source{OwnerID: owner, Key: "threads", Label: "Threads"})
		assert.ErrorIs(t, err, usecase.ErrConflict)

		list, err := s.ListCustomSources(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, []string{"threads.net"}, list[0].Patterns)

		assert.ErrorIs(t, s.DeleteSource(ctx, createTestUser(t, s), src.ID), usecase.ErrNotFound)
		assert.NoError(t, s.DeleteSource(ctx, owner, src.ID))
	})
}
