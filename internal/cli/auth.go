package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adstash/adstash/internal/client"
)

const tokenPrefix = "adst_"

func newLoginCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a personal access token",
		Long:  "Verify a personal access token against the API and store it in the OS keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Personal access token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if !strings.HasPrefix(token, tokenPrefix) {
				return errors.New("token must start with " + tokenPrefix)
			}

			c := client.New(a.settings.APIURL, token)
			u, err := c.Verify(cmd.Context())
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			if err := a.store.Save(token); err != nil {
				return err
			}
			if a.apiURL != "" {
				if err := SaveAPIURL(a.v, a.dir, a.apiURL); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", displayName(u))
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "personal access token (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			u, err := c.Verify(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", displayName(u), u.ID)
			return nil
		},
	}
}

func newTagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List your tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			tags, err := c.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOLOR\tASSETS")
			for _, t := range tags {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Color, t.AssetCount)
			}
			return w.Flush()
		},
	}
}

func displayName(u client.User) string {
	switch {
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	default:
		return u.ID
	}
}
