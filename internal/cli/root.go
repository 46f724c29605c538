package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adstash/adstash/internal/client"
)

type app struct {
	dir      string
	apiURL   string
	v        *viper.Viper
	settings Settings
	store    TokenStore
}

// client builds an API client from flags, config and the stored token.
func (a *app) client(requireToken bool) (*client.Client, error) {
	token := a.settings.Token
	if token == "" {
		t, err := a.store.Load()
		if err != nil && requireToken {
			return nil, err
		}
		token = t
	}
	return client.New(a.settings.APIURL, token), nil
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "adstash",
		Short: "Capture ad creatives into your AdStash library",
		Long: `adstash scans web pages for images and videos and saves them to your
AdStash library using a personal access token.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ConfigDir(a.dir)
			if err != nil {
				return err
			}
			a.dir = dir
			a.v, a.settings, err = LoadSettings(dir)
			if err != nil {
				return err
			}
			if a.apiURL != "" {
				a.settings.APIURL = a.apiURL
			}
			a.store = NewTokenStore(dir)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.dir, "config-dir", "", "config directory (default ~/.adstash)")
	cmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "AdStash API base url")

	cmd.AddCommand(newLoginCmd(a))
	cmd.AddCommand(newLogoutCmd(a))
	cmd.AddCommand(newWhoamiCmd(a))
	cmd.AddCommand(newTagsCmd(a))
	cmd.AddCommand(newScanCmd(a))
	cmd.AddCommand(newCaptureCmd(a))

	return cmd
}
