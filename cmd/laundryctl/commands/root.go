package commands

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/klynnlabs/laundry-core/internal/config"
	"github.com/klynnlabs/laundry-core/pkg/logger"
	"github.com/klynnlabs/laundry-core/supabase/client"
)

var (
	home        string
	catalogPath string

	cfg     *config.Config
	catalog *config.Catalog
	sb      *client.Client
	log     *logger.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "laundryctl",
		Short:         "Book and track laundry pickups",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			log = logger.NewDefault("laundryctl")

			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".laundryctl")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			cfg, err = config.FromEnv()
			if err != nil {
				return err
			}

			if catalogPath != "" {
				catalog, err = config.LoadCatalog(catalogPath)
				if err != nil {
					return err
				}
			} else {
				catalog = config.DefaultCatalog()
			}

			sb, err = client.New(client.Config{
				URL:        cfg.SupabaseURL,
				APIKey:     cfg.SupabaseAnonKey,
				HTTPClient: client.NewRetryHTTPClient(cfg.HTTPTimeout, client.DefaultRetryConfig()),
			})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.laundryctl)")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "service catalog yaml (default built-in)")

	root.AddCommand(signupCmd(), signinCmd(), signoutCmd(), profileCmd(), orderCmd(), trackCmd())
	return root.Execute()
}
