package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igfollow/pkg/auth"
	"igfollow/pkg/config"
	"igfollow/pkg/storage"
)

const exampleConfig = `# igfollow configuration
#
# Every value can also be set with an IGFOLLOW_ environment variable,
# for example IGFOLLOW_SESSION_ID or IGFOLLOW_MIN_DELAY, or in a .env file.

instagram:
  # Session cookies. Prefer 'igfollow auth login' over storing them here.
  session_id: ""
  csrf_token: ""
  # Extra cookies sent after sessionid and csrftoken (name=value; name=value)
  cookies: ""
  user_agent: ""
  app_id: "936619743392459"
  base_url: "https://www.instagram.com"
  # Per-request timeout, 0 disables
  timeout: 30s
  # http or stealth (browser TLS fingerprint)
  transport: http
  # Proxy URL, stealth transport only
  proxy: ""

collector:
  # following or followers
  kind: following
  # Accounts per page, 1-200
  page_size: 200
  # Random delay before every page, whole seconds, inclusive
  min_delay: 2
  max_delay: 4
  # Hard cap on requests per minute, 0 disables
  requests_per_minute: 0
  # Retries for 429, 5xx and network failures, 0 disables
  max_retries: 0
  output_file: ./following.json
  # Continue an unfinished snapshot of the same account
  resume: false

database:
  # Prospects database for 'igfollow crossref'. DATABASE_URL also works.
  url: ""

notifications:
  enabled: false

logging:
  # debug, info, warn, error
  level: info
  # Log to this file instead of the console
  file: ""
`

func newConfigCmd(g *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage igfollow configuration.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (IGFOLLOW_*, DATABASE_URL)
  - .env file
  - Configuration file
  - Default values`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configFile
			if path == "" {
				path = ".igfollow.yaml"
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := storage.WriteBytesAtomic(path, []byte(exampleConfig), 0600); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile, g.flags())
			if err != nil {
				return err
			}

			display := maskConfig(cfg)
			data, err := yaml.Marshal(&display)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for invalid values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile, g.flags())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			if !cfg.HasCredentials() {
				fmt.Fprintln(cmd.OutOrStdout(), "No session configured here; stored accounts will be used")
			}
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

// maskConfig returns a copy of cfg safe to print
func maskConfig(cfg *config.Config) config.Config {
	display := *cfg
	masked := auth.SanitizeAccount(&auth.Account{
		SessionID: cfg.Instagram.SessionID,
		CSRFToken: cfg.Instagram.CSRFToken,
		Cookies:   cfg.Instagram.Cookies,
	})
	if cfg.Instagram.SessionID != "" {
		display.Instagram.SessionID = masked.SessionID
	}
	if cfg.Instagram.CSRFToken != "" {
		display.Instagram.CSRFToken = masked.CSRFToken
	}
	display.Instagram.Cookies = masked.Cookies
	if cfg.Database.URL != "" {
		display.Database.URL = "********"
	}
	return display
}
