package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository used by the usecase tests.
type memRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]User
	assets  map[uuid.UUID]Asset
	tags    map[uuid.UUID]Tag
	links   map[uuid.UUID]map[uuid.UUID]struct{} // asset -> tags
	sources map[uuid.UUID]Source
	tokens  map[uuid.UUID]AccessToken
	touched map[uuid.UUID]time.Time
	now     func() time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:   map[uuid.UUID]User{},
		assets:  map[uuid.UUID]Asset{},
		tags:    map[uuid.UUID]Tag{},
		links:   map[uuid.UUID]map[uuid.UUID]struct{}{},
		sources: map[uuid.UUID]Source{},
		tokens:  map[uuid.UUID]AccessToken{},
		touched: map[uuid.UUID]time.Time{},
		now:     time.Now,
	}
}

func (r *memRepo) Health() map[string]string { return map[string]string{"status": "up"} }
func (r *memRepo) Close() error { return nil }

func (r *memRepo) GetUserByID(_ context.Context, id uuid.UUID) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memRepo) GetUserByUID(_ context.Context, uid string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UID == uid {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memRepo) CreateUser(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.UID == u.UID {
			return User{}, ErrConflict
		}
	}
	u.ID = uuid.New()
	u.CreatedAt, u.UpdatedAt = r.now(), r.now()
	r.users[u.ID] = u
	return u, nil
}

func (r *memRepo) CreateAsset(_ context.Context, a Asset) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = r.now(), r.now()
	r.assets[a.ID] = a
	return a, nil
}

func (r *memRepo) GetAsset(_ context.Context, ownerID, id uuid.UUID) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.OwnerID != ownerID {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

func (r *memRepo) GetAssetByID(_ context.Context, id uuid.UUID) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

func (r *memRepo) ListAssets(_ context.Context, opt ListAssetsOption) ([]Asset, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Asset
	for _, a := range r.assets {
		if a.OwnerID != opt.OwnerID || a.Status != AssetStatusReady {
			continue
		}
		if opt.Query != "" {
			q := strings.ToLower(opt.Query)
			notes := ""
			if a.Notes != nil {
				notes = *a.Notes
			}
			if !strings.Contains(strings.ToLower(a.FileName), q) && !strings.Contains(strings.ToLower(notes), q) {
				continue
			}
		}
		if opt.SourcePlatform != "" && a.SourcePlatform != opt.SourcePlatform {
			continue
		}
		if opt.MimeClass != "" && a.MimeClass() != opt.MimeClass {
			continue
		}
		if opt.From != nil && a.CreatedAt.Before(*opt.From) {
			continue
		}
		if opt.To != nil && a.CreatedAt.After(*opt.To) {
			continue
		}
		held := 0
		for _, tid := range opt.TagIDs {
			if _, ok := r.links[a.ID][tid]; ok {
				held++
			}
		}
		if held != len(opt.TagIDs) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if opt.Skip >= len(out) {
		return []Asset{}, total, nil
	}
	out = out[opt.Skip:]
	if len(out) > opt.Limit {
		out = out[:opt.Limit]
	}
	return out, total, nil
}

func (r *memRepo) replaceLinks(assetID uuid.UUID, ids uuid.UUIDs) {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	r.links[assetID] = set
}

func (r *memRepo) FinalizeAsset(_ context.Context, ownerID, id uuid.UUID, in FinalizeUpload) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.OwnerID != ownerID {
		return Asset{}, ErrNotFound
	}
	if a.Status != AssetStatusDraft && a.Status != AssetStatusUploading {
		return Asset{}, ErrConflict
	}
	a.Status = AssetStatusReady
	if in.Width != nil {
		a.Width = in.Width
	}
	if in.Height != nil {
		a.Height = in.Height
	}
	if in.DurationSeconds != nil {
		a.DurationSeconds = in.DurationSeconds
	}
	if in.ContentHash != nil {
		a.ContentHash = in.ContentHash
	}
	if in.SizeBytes != nil {
		a.SizeBytes = in.SizeBytes
	}
	if in.TagIDs != nil {
		r.replaceLinks(id, in.TagIDs)
	}
	a.UpdatedAt = r.now()
	r.assets[id] = a
	return a, nil
}

func (r *memRepo) UpdateAsset(_ context.Context, ownerID, id uuid.UUID, p AssetPatch) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.OwnerID != ownerID {
		return Asset{}, ErrNotFound
	}
	if p.Notes != nil {
		a.Notes = p.Notes
	}
	if p.SourcePlatform != nil {
		a.SourcePlatform = *p.SourcePlatform
	}
	if p.FileName != nil {
		a.FileName = *p.FileName
	}
	if p.Extra != nil {
		a.Extra = p.Extra
	}
	if p.TagIDs != nil {
		r.replaceLinks(id, p.TagIDs)
	}
	r.assets[id] = a
	return a, nil
}

func (r *memRepo) DeleteAsset(_ context.Context, ownerID, id uuid.UUID) (Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.OwnerID != ownerID {
		return Asset{}, ErrNotFound
	}
	delete(r.links, id)
	delete(r.assets, id)
	return a, nil
}

func (r *memRepo) UpdateAssetAnalysis(_ context.Context, id uuid.UUID, an AssetAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return ErrNotFound
	}
	a.Colors = an.Colors
	if an.Width != nil {
		a.Width = an.Width
	}
	if an.Height != nil {
		a.Height = an.Height
	}
	r.assets[id] = a
	return nil
}

func (r *memRepo) ListOrphanAssets(_ context.Context, before time.Time, limit int) ([]Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Asset
	for _, a := range r.assets {
		if a.Status == AssetStatusUploading && a.CreatedAt.Before(before) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) MarkAssetFailed(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.Status != AssetStatusUploading {
		return false, nil
	}
	a.Status = AssetStatusFailed
	r.assets[id] = a
	return true, nil
}

func (r *memRepo) ListTagsByAssetIDs(_ context.Context, ids uuid.UUIDs) (map[uuid.UUID][]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID][]Tag, len(ids))
	for _, id := range ids {
		for tid := range r.links[id] {
			if t, ok := r.tags[tid]; ok {
				out[id] = append(out[id], t)
			}
		}
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].Name < out[id][j].Name })
	}
	return out, nil
}

func (r *memRepo) ListTags(_ context.Context, ownerID uuid.UUID) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Tag
	for _, t := range r.tags {
		if t.OwnerID != ownerID {
			continue
		}
		for _, set := range r.links {
			if _, ok := set[t.ID]; ok {
				t.AssetCount++
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) CountOwnedTags(_ context.Context, ownerID uuid.UUID, ids uuid.UUIDs) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range ids {
		if t, ok := r.tags[id]; ok && t.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) nameTaken(ownerID, except uuid.UUID, name string) bool {
	for _, t := range r.tags {
		if t.OwnerID == ownerID && t.ID != except && t.Name == name {
			return true
		}
	}
	return false
}

func (r *memRepo) CreateTag(_ context.Context, t Tag) (Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(t.OwnerID, uuid.Nil, t.Name) {
		return Tag{}, fmt.Errorf("tag %q: %w", t.Name, ErrConflict)
	}
	t.ID = uuid.New()
	r.tags[t.ID] = t
	return t, nil
}

func (r *memRepo) UpdateTag(_ context.Context, ownerID, id uuid.UUID, p TagPatch) (Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[id]
	if !ok || t.OwnerID != ownerID {
		return Tag{}, ErrNotFound
	}
	if p.Name != nil {
		if r.nameTaken(ownerID, id, *p.Name) {
			return Tag{}, ErrConflict
		}
		t.Name = *p.Name
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	r.tags[id] = t
	return t, nil
}

func (r *memRepo) DeleteTag(_ context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	for _, set := range r.links {
		delete(set, id)
	}
	delete(r.tags, id)
	return nil
}

func (r *memRepo) ListCustomSources(_ context.Context, ownerID uuid.UUID) ([]Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Source
	for _, s := range r.sources {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) CreateSource(_ context.Context, s Source) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sources {
		if existing.OwnerID == s.OwnerID && existing.Key == s.Key {
			return Source{}, ErrConflict
		}
	}
	s.ID = uuid.New()
	r.sources[s.ID] = s
	return s, nil
}

func (r *memRepo) DeleteSource(_ context.Context, ownerID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok || s.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.sources, id)
	return nil
}

func (r *memRepo) CreateAccessToken(_ context.Context, t AccessToken) (AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = r.now()
	r.tokens[t.ID] = t
	return t, nil
}

func (r *memRepo) ListAccessTokens(_ context.Context, ownerID uuid.UUID) ([]AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AccessToken
	for _, t := range r.tokens {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) RevokeAccessToken(_ context.Context, ownerID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	if t.RevokedAt == nil {
		t.RevokedAt = &at
		r.tokens[id] = t
	}
	return nil
}

func (r *memRepo) GetActiveAccessTokenByHash(_ context.Context, hash string) (AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == hash && t.RevokedAt == nil {
			return t, nil
		}
	}
	return AccessToken{}, ErrNotFound
}

func (r *memRepo) TouchAccessToken(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.LastUsedAt = &at
	r.tokens[id] = t
	r.touched[id] = at
	return nil
}

// memStorage records every call and can be told to fail.
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	removed  []string
	failSign bool
	failGet  bool
	failRm   bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) key(b Bucket, p string) string { return string(b) + "/" + p }

// put stands in for a client PUT to a signed URL.
func (s *memStorage) put(b Bucket, p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[s.key(b, p)] = data
}

func (s *memStorage) PresignPut(_ context.Context, b Bucket, p string) (SignedURL, error) {
	if s.failSign {
		return SignedURL{}, errors.New("sign failed")
	}
	return SignedURL{URL: "https://storage.test/" + s.key(b, p) + "?op=put", ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

func (s *memStorage) PresignGet(_ context.Context, b Bucket, p string) (SignedURL, error) {
	if s.failSign || s.failGet {
		return SignedURL{}, errors.New("sign failed")
	}
	return SignedURL{URL: "https://storage.test/" + s.key(b, p) + "?op=get", ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

func (s *memStorage) StatObject(_ context.Context, b Bucket, p string) (ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[s.key(b, p)]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return ObjectInfo{Size: int64(len(data))}, nil
}

func (s *memStorage) GetObject(_ context.Context, b Bucket, p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[s.key(b, p)]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) RemoveObject(_ context.Context, b Bucket, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, s.key(b, p))
	if s.failRm {
		return errors.New("remove failed")
	}
	delete(s.objects, s.key(b, p))
	return nil
}

type enqueued struct {
	taskType string
	payload  any
}

type memQueue struct {
	mu    sync.Mutex
	tasks []enqueued
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, taskType string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, enqueued{taskType, payload})
	return q.err
}

type memEvents struct {
	mu     sync.Mutex
	events []Event
}

func (e *memEvents) Publish(_ context.Context, ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

type memMailer struct {
	sent []Email
}

func (m *memMailer) SendEmail(_ context.Context, e Email) error {
	m.sent = append(m.sent, e)
	return nil
}

type memIdentity struct {
	tokens     map[string]string
	identities map[string]Identity
}

func (m memIdentity) VerifyIDToken(_ context.Context, token string) (string, error) {
	uid, ok := m.tokens[token]
	if !ok {
		return "", errors.New("bad id token")
	}
	return uid, nil
}

func (m memIdentity) VerifySessionCookie(_ context.Context, cookie string) (string, error) {
	uid, ok := m.tokens[strings.TrimPrefix(cookie, "session:")]
	if !ok {
		return "", errors.New("bad session")
	}
	return uid, nil
}

func (m memIdentity) CreateSessionCookie(_ context.Context, idToken string, _ time.Duration) (string, error) {
	return "session:" + idToken, nil
}

func (m memIdentity) GetIdentity(_ context.Context, uid string) (Identity, error) {
	id, ok := m.identities[uid]
	if !ok {
		return Identity{UID: uid}, nil
	}
	return id, nil
}

type fixture struct {
	uc      Usecase
	repo    *memRepo
	storage *memStorage
	queue   *memQueue
	events  *memEvents
	mailer  *memMailer
}

func newFixture() fixture {
	f := fixture{
		repo:    newMemRepo(),
		storage: newMemStorage(),
		queue:   &memQueue{},
		events:  &memEvents{},
		mailer:  &memMailer{},
	}
	ip := memIdentity{
		tokens:     map[string]string{"good-id-token": "firebase-uid-1"},
		identities: map[string]Identity{"firebase-uid-1": {UID: "firebase-uid-1", Email: "ada@example.com", Name: "Ada"}},
	}
	f.uc = New(f.repo, ip, f.storage, f.mailer, f.queue).WithEventPublisher(f.events)
	return f
}

func (f fixture) owner() context.Context {
	u, _ := f.repo.CreateUser(context.Background(), User{UID: uuid.NewString(), Email: "owner@example.com"})
	return WithUserID(context.Background(), u.ID)
}

func ptr[T any](v T) *T { return &v }
