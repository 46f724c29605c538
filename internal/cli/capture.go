package cli

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adstash/adstash/internal/client"
	"github.com/adstash/adstash/internal/scraper"
)

type captureOptions struct {
	scanOptions
	tags  []string
	notes string
	kind  string
	limit int
}

func newCaptureCmd(a *app) *cobra.Command {
	var opts captureOptions
	cmd := &cobra.Command{
		Use:   "capture <url|file>",
		Short: "Scan a page and save its media to your library",
		Long: `capture scans a page and uploads each image or video it finds, one at a time.
Media that cannot be downloaded is saved as a remote reference instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			page, err := scanPage(cmd.Context(), c, args[0], opts.scanOptions)
			if err != nil {
				return err
			}

			media := filterMedia(page.Media, opts.kind, opts.limit)
			if len(media) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no media found")
				return nil
			}

			maxBytes := a.settings.MaxBytes
			if maxBytes <= 0 {
				maxBytes = defaultMaxBytes
			}
			var failed int
			for _, m := range media {
				res, err := captureMedia(cmd.Context(), c, page, m, opts, maxBytes)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "failed  %s: %v\n", m.URL, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-7s %s  %s\n", res.mode, res.asset.ID, m.URL)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d captures failed", failed, len(media))
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "tag id to attach (repeatable)")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "notes stored on every captured asset")
	cmd.Flags().StringVar(&opts.kind, "only", "", "capture only image or video")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "capture at most n media")
	return cmd
}

func filterMedia(media []scraper.Media, kind string, limit int) []scraper.Media {
	out := make([]scraper.Media, 0, len(media))
	for _, m := range media {
		if kind != "" && m.Kind != kind {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type captureResult struct {
	mode  string
	asset client.Asset
}

func captureMedia(ctx context.Context, c *client.Client, page scraper.Page, m scraper.Media, opts captureOptions, maxBytes int64) (captureResult, error) {
	extra := map[string]any{
		"page_url":  page.URL,
		"media_url": m.URL,
		"origin":    m.Origin,
	}
	if page.Title != "" {
		extra["page_title"] = page.Title
	}

	data, contentType, err := c.Fetch(ctx, m.URL, maxBytes)
	if err != nil {
		ticket, err := c.InitUpload(ctx, client.InitUploadRequest{
			FileName:       fileName(m),
			MimeType:       mimeType(m, ""),
			SourcePlatform: page.Source,
			SourceURL:      m.URL,
			Notes:          opts.notes,
			Extra:          extra,
			RemoteOnly:     true,
		})
		if err != nil {
			return captureResult{}, err
		}
		return captureResult{mode: "remote", asset: ticket.Asset}, nil
	}

	size := int64(len(data))
	mt := mimeType(m, contentType)
	ticket, err := c.InitUpload(ctx, client.InitUploadRequest{
		FileName:       fileName(m),
		MimeType:       mt,
		SizeBytes:      &size,
		SourcePlatform: page.Source,
		SourceURL:      page.URL,
		Notes:          opts.notes,
		Extra:          extra,
	})
	if err != nil {
		return captureResult{}, err
	}
	if err := c.Upload(ctx, ticket.Upload, mt, data); err != nil {
		return captureResult{}, err
	}

	hash := client.ContentHash(data)
	fin := client.FinalizeUploadRequest{
		AssetID:     ticket.Asset.ID,
		ContentHash: &hash,
		SizeBytes:   &size,
		TagIDs:      opts.tags,
	}
	if m.Kind == scraper.KindImage {
		// the asset is still usable without a preview
		if p, err := client.MakePreview(data); err == nil {
			if c.Upload(ctx, ticket.Preview, "image/jpeg", p.JPEG) == nil {
				fin.Width, fin.Height = &p.Width, &p.Height
			}
		}
	}

	asset, err := c.FinalizeUpload(ctx, fin)
	if err != nil {
		return captureResult{}, err
	}
	return captureResult{mode: "ready", asset: asset}, nil
}

func fileName(m scraper.Media) string {
	if u, err := url.Parse(m.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	if m.Kind == scraper.KindVideo {
		return "video.mp4"
	}
	return "image.jpg"
}

// mimeType prefers the response header, then the url extension, then the
// media kind.
func mimeType(m scraper.Media, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if u, err := url.Parse(m.URL); err == nil {
		if mt := mime.TypeByExtension(strings.ToLower(path.Ext(u.Path))); mt != "" {
			if base, _, err := mime.ParseMediaType(mt); err == nil {
				return base
			}
		}
	}
	if m.Kind == scraper.KindVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}
