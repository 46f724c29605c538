// Package scraper finds ad media on a captured page. It mirrors what the
// browser extension's content script does so the server can rescan HTML
// posted by clients that cannot run scripts.
package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/adstash/adstash/internal/usecase"
)

// MinSize drops images that declare a width or height below it.
const MinSize = 100

const (
	KindImage = "image"
	KindVideo = "video"
)

// Where a candidate was found.
const (
	OriginImg        = "img"
	OriginBackground = "background"
	OriginVideo      = "video"
	OriginPoster     = "poster"
	OriginMeta       = "meta"
	OriginTikTok     = "tiktok"
)

type Media struct {
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Origin string `json:"origin"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type Page struct {
	URL    string  `json:"url"`
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Media  []Media `json:"media"`
}

var (
	// only background declarations count; fonts, imports and cursors do not
	cssBackgroundRe = regexp.MustCompile(`(?i)(?:^|[;{\s])background(?:-image)?\s*:([^;}]*)`)
	cssURLRe        = regexp.MustCompile(`url\(\s*(?:"([^"]*)"|'([^']*)'|([^)'"\s]+))\s*\)`)

	metaKeysRe   = regexp.MustCompile(`"(video_hd_url|video_sd_url|original_image_url|resized_image_url)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	tiktokKeysRe = regexp.MustCompile(`"(playAddr|downloadAddr|originCover)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// scan holds the candidates of one Scan call, one list per pass so the
// result keeps pass order regardless of document order.
type scan struct {
	base    *url.URL
	title   string
	ogTitle string

	images, backgrounds, videos, scripts []Media
}

// Scan parses doc and returns the page context plus every media URL found,
// resolved against pageURL and deduplicated in discovery order.
func Scan(pageURL, doc string) Page {
	base, _ := url.Parse(pageURL)
	s := &scan{base: base}

	if root, err := html.Parse(strings.NewReader(doc)); err == nil {
		s.walk(root)
	}

	title := s.title
	if title == "" {
		title = s.ogTitle
	}

	p := Page{
		URL:    pageURL,
		Title:  title,
		Source: usecase.DetectSource(pageURL),
		Media:  []Media{},
	}

	seen := make(map[string]struct{})
	for _, pass := range [][]Media{s.images, s.backgrounds, s.videos, s.scripts} {
		for _, m := range pass {
			if _, ok := seen[m.URL]; ok {
				continue
			}
			seen[m.URL] = struct{}{}
			p.Media = append(p.Media, m)
		}
	}
	return p
}

func (s *scan) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if style := attr(n, "style"); style != "" {
			s.addCSS(style)
		}

		switch n.DataAtom {
		case atom.Title:
			if s.title == "" {
				s.title = strings.TrimSpace(text(n))
			}
		case atom.Meta:
			if attr(n, "property") == "og:title" && s.ogTitle == "" {
				s.ogTitle = strings.TrimSpace(attr(n, "content"))
			}
		case atom.Img:
			s.addImg(n)
		case atom.Style:
			s.addCSS(text(n))
		case atom.Video:
			s.addVideo(n)
		case atom.Script:
			if attr(n, "src") == "" {
				s.addScript(text(n))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c)
	}
}

func (s *scan) addImg(n *html.Node) {
	w, h := dimension(attr(n, "width")), dimension(attr(n, "height"))
	if (w > 0 && w < MinSize) || (h > 0 && h < MinSize) {
		return
	}
	for _, raw := range []string{attr(n, "src"), attr(n, "data-src"), largestSrcset(attr(n, "srcset"))} {
		if u, ok := s.resolve(raw); ok {
			s.images = append(s.images, Media{URL: u, Kind: KindImage, Origin: OriginImg, Width: w, Height: h})
		}
	}
}

func (s *scan) addCSS(css string) {
	if !strings.Contains(css, "url(") {
		return
	}
	for _, decl := range cssBackgroundRe.FindAllStringSubmatch(css, -1) {
		for _, m := range cssURLRe.FindAllStringSubmatch(decl[1], -1) {
			raw := m[1] + m[2] + m[3]
			if u, ok := s.resolve(raw); ok {
				s.backgrounds = append(s.backgrounds, Media{URL: u, Kind: KindImage, Origin: OriginBackground})
			}
		}
	}
}

// addVideo takes the element's src and its <source> children; the poster is
// used only when neither yields a fetchable URL.
func (s *scan) addVideo(n *html.Node) {
	candidates := []string{attr(n, "src")}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Source {
			candidates = append(candidates, attr(c, "src"))
		}
	}

	found := false
	for _, raw := range candidates {
		if u, ok := s.resolve(raw); ok {
			s.videos = append(s.videos, Media{URL: u, Kind: KindVideo, Origin: OriginVideo})
			found = true
		}
	}
	if found {
		return
	}
	if u, ok := s.resolve(attr(n, "poster")); ok {
		s.videos = append(s.videos, Media{URL: u, Kind: KindImage, Origin: OriginPoster})
	}
}

func (s *scan) addScript(body string) {
	for _, m := range metaKeysRe.FindAllStringSubmatch(body, -1) {
		kind := KindImage
		if strings.HasPrefix(m[1], "video_") {
			kind = KindVideo
		}
		if u, ok := s.resolve(unescapeJSON(m[2])); ok {
			s.scripts = append(s.scripts, Media{URL: u, Kind: kind, Origin: OriginMeta})
		}
	}
	for _, m := range tiktokKeysRe.FindAllStringSubmatch(body, -1) {
		kind := KindVideo
		if m[1] == "originCover" {
			kind = KindImage
		}
		if u, ok := s.resolve(unescapeJSON(m[2])); ok {
			s.scripts = append(s.scripts, Media{URL: u, Kind: kind, Origin: OriginTikTok})
		}
	}
}

// resolve makes raw absolute and keeps only http(s) URLs.
func (s *scan) resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "blob:") {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if s.base != nil {
		u = s.base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// unescapeJSON decodes a JSON string body such as `https:\/\/a\u0026b`.
// An &amp; left by server-side templating is decoded too.
func unescapeJSON(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		out = strings.ReplaceAll(s, `\/`, "/")
	}
	return strings.ReplaceAll(out, "&amp;", "&")
}

type srcsetEntry struct {
	url  string
	size float64
}

// largestSrcset picks the candidate with the biggest width or density
// descriptor. Entries without a descriptor count as 1x.
func largestSrcset(srcset string) string {
	if strings.TrimSpace(srcset) == "" {
		return ""
	}
	var entries []srcsetEntry
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		e := srcsetEntry{url: fields[0], size: 1}
		if len(fields) > 1 {
			d := fields[1]
			if len(d) > 1 {
				if n, err := strconv.ParseFloat(d[:len(d)-1], 64); err == nil {
					e.size = n
				}
			}
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return ""
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].size > entries[j].size })
	return entries[0].url
}

func dimension(v string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
