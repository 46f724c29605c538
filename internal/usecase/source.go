package usecase

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const SourceOther = "other"

type Source struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Key       string
	Label     string
	Patterns  []string
	BuiltIn   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuiltInSources is matched in order; the first pattern contained in the
// hostname wins. Hostnames are matched with a leading dot so short patterns
// like ".x.com" only hit whole labels.
var BuiltInSources = []Source{
	{Key: "facebook", Label: "Facebook", Patterns: []string{"facebook.com", ".fb.com", "fbcdn.net"}, BuiltIn: true},
	{Key: "instagram", Label: "Instagram", Patterns: []string{"instagram.com", "cdninstagram.com"}, BuiltIn: true},
	{Key: "tiktok", Label: "TikTok", Patterns: []string{"tiktok.com", "tiktokcdn.com"}, BuiltIn: true},
	{Key: "youtube", Label: "YouTube", Patterns: []string{"youtube.com", "youtu.be", "ytimg.com"}, BuiltIn: true},
	{Key: "linkedin", Label: "LinkedIn", Patterns: []string{"linkedin.com", "licdn.com"}, BuiltIn: true},
	{Key: "x", Label: "X / Twitter", Patterns: []string{"twitter.com", ".x.com", "twimg.com"}, BuiltIn: true},
	{Key: "pinterest", Label: "Pinterest", Patterns: []string{"pinterest.", "pinimg.com"}, BuiltIn: true},
	{Key: "snapchat", Label: "Snapchat", Patterns: []string{"snapchat.com"}, BuiltIn: true},
	{Key: "reddit", Label: "Reddit", Patterns: []string{"reddit.com", "redd.it"}, BuiltIn: true},
	{Key: "google", Label: "Google Ads Transparency", Patterns: []string{"adstransparency.google.com"}, BuiltIn: true},
	{Key: SourceOther, Label: "Other", BuiltIn: true},
}

func builtInSource(key string) (Source, bool) {
	for _, s := range BuiltInSources {
		if s.Key == key {
			return s, true
		}
	}
	return Source{}, false
}

// DetectSource classifies a hostname or URL by substring match. Custom
// sources are consulted before the built-in table.
func DetectSource(hostOrURL string, custom ...Source) string {
	host := strings.ToLower(strings.TrimSpace(hostOrURL))
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	if host == "" {
		return SourceOther
	}
	host = "." + host
	for _, list := range [][]Source{custom, BuiltInSources} {
		for _, s := range list {
			for _, p := range s.Patterns {
				if p != "" && strings.Contains(host, strings.ToLower(p)) {
					return s.Key
				}
			}
		}
	}
	return SourceOther
}

var sourceKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,49}$`)

func (u Usecase) ListSources(ctx context.Context) ([]Source, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	custom, err := u.repo.ListCustomSources(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := make([]Source, 0, len(BuiltInSources)+len(custom))
	list = append(list, BuiltInSources...)
	return append(list, custom...), nil
}

func (u Usecase) CreateSource(ctx context.Context, s Source) (Source, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return Source{}, err
	}
	s.Key = strings.ToLower(strings.TrimSpace(s.Key))
	if !sourceKeyRe.MatchString(s.Key) {
		return Source{}, validationError("invalid source key %q", s.Key)
	}
	if _, ok := builtInSource(s.Key); ok {
		return Source{}, validationError("source key %q is reserved", s.Key)
	}
	s.Label = strings.TrimSpace(s.Label)
	if s.Label == "" {
		s.Label = s.Key
	}
	patterns := make([]string, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			patterns = append(patterns, p)
		}
	}
	s.Patterns = patterns
	s.OwnerID = userID
	s.BuiltIn = false
	return u.repo.CreateSource(ctx, s)
}

func (u Usecase) DeleteSource(ctx context.Context, id uuid.UUID) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	return u.repo.DeleteSource(ctx, userID, id)
}

// resolveSource validates an explicit platform key or detects one from the
// source url.
func (u Usecase) resolveSource(ctx context.Context, ownerID uuid.UUID, key, sourceURL string) (string, error) {
	custom, err := u.repo.ListCustomSources(ctx, ownerID)
	if err != nil {
		return "", err
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		if sourceURL == "" {
			return SourceOther, nil
		}
		return DetectSource(sourceURL, custom...), nil
	}
	if _, ok := builtInSource(key); ok {
		return key, nil
	}
	for _, s := range custom {
		if s.Key == key {
			return key, nil
		}
	}
	return "", validationError("unknown source platform %q", key)
}
