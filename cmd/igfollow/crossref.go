package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"igfollow/pkg/config"
	"igfollow/pkg/export"
	"igfollow/pkg/logger"
	"igfollow/pkg/prospects"
	"igfollow/pkg/snapshot"
)

func newCrossrefCmd(g *globalOptions) *cobra.Command {
	var (
		snapshotPath string
		databaseURL  string
		outputPath   string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "crossref",
		Short: "Compare collected accounts with the prospects table",
		Long: `Look up every collected pk in prospects.instagram_prospects and report which
accounts are already prospects and which are new. The connection string is
read from --database-url, DATABASE_URL or database.url in the config file.`,
		Example: `  igfollow crossref
  igfollow crossref --snapshot alice.json --output new_pks.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile, g.flags())
			if err != nil {
				return err
			}
			if err := logger.Initialize(&cfg.Logging); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			log := logger.GetLogger()

			if snapshotPath == "" {
				snapshotPath = cfg.Collector.OutputFile
			}
			if databaseURL == "" {
				databaseURL = cfg.Database.URL
			}
			if databaseURL == "" {
				return errors.New("no database configured, set DATABASE_URL or pass --database-url")
			}

			s, err := snapshot.Load(snapshotPath)
			if err != nil {
				return err
			}
			pks, err := export.PKs(s, limit)
			if err != nil {
				return err
			}

			store, err := prospects.Open(cmd.Context(), databaseURL, log)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := prospects.Partition(cmd.Context(), store, pks)
			if err != nil {
				return err
			}

			console := g.console()
			console.PrintInfo("Collected", fmt.Sprintf("%d", result.Total()))
			console.PrintInfo("Already prospects", fmt.Sprintf("%d", len(result.Existing)))
			console.PrintInfo("New", fmt.Sprintf("%d", len(result.New)))

			if outputPath != "" {
				if err := export.Write(outputPath, result.New); err != nil {
					return err
				}
				console.PrintSuccess(fmt.Sprintf("%d new pks written to %s", len(result.New), outputPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot file to read (default: collector output file)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the new pks to this file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only consider the first n accounts, 0 for all")
	return cmd
}
