package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adstash/adstash/internal/client"
	"github.com/adstash/adstash/internal/scraper"
)

const maxPageBytes = 5 << 20

type scanOptions struct {
	pageURL string
	server  bool
}

func (o *scanOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.pageURL, "page-url", "", "url the saved html was captured from (required for files)")
	cmd.Flags().BoolVar(&o.server, "server", false, "run the scanner on the API instead of locally")
}

func newScanCmd(a *app) *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan <url|file>",
		Short: "List the images and videos found on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(opts.server)
			if err != nil {
				return err
			}
			page, err := scanPage(cmd.Context(), c, args[0], opts)
			if err != nil {
				return err
			}
			return printPage(cmd.OutOrStdout(), page)
		},
	}
	opts.bind(cmd)
	return cmd
}

func isRemote(arg string) bool {
	u, err := url.Parse(arg)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// scanPage loads html from a url or a saved file and scans it.
func scanPage(ctx context.Context, c *client.Client, arg string, opts scanOptions) (scraper.Page, error) {
	var (
		pageURL = opts.pageURL
		doc     []byte
		err     error
	)
	if isRemote(arg) {
		if pageURL == "" {
			pageURL = arg
		}
		doc, _, err = c.Fetch(ctx, arg, maxPageBytes)
	} else {
		if pageURL == "" {
			return scraper.Page{}, errors.New("--page-url is required when scanning a file")
		}
		doc, err = os.ReadFile(arg)
	}
	if err != nil {
		return scraper.Page{}, fmt.Errorf("failed to load page: %w", err)
	}

	if opts.server {
		return c.Scan(ctx, pageURL, string(doc))
	}
	return scraper.Scan(pageURL, string(doc)), nil
}

func printPage(out io.Writer, page scraper.Page) error {
	fmt.Fprintf(out, "%s\nsource: %s\n\n", pageTitle(page), page.Source)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKIND\tORIGIN\tURL")
	for i, m := range page.Media {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, m.Kind, m.Origin, m.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d media found\n", len(page.Media))
	return nil
}

func pageTitle(page scraper.Page) string {
	if page.Title != "" {
		return page.Title
	}
	return page.URL
}
