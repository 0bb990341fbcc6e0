package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igfollow/pkg/config"
	"igfollow/pkg/export"
)

func newExportCmd(g *globalOptions) *cobra.Command {
	var (
		snapshotPath string
		outputPath   string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the pks of a snapshot as a JSON array",
		Long: `Read a collection snapshot and write the pk of each collected account, in
collection order, as a JSON array. The output file is replaced atomically.`,
		Example: `  # First 500 accounts of ./following.json into dist/scrape_data.json
  igfollow export --limit 500

  # Everything from a specific snapshot
  igfollow export --snapshot alice.json --output alice_pks.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" {
				cfg, err := config.Load(g.configFile, g.flags())
				if err != nil {
					return err
				}
				snapshotPath = cfg.Collector.OutputFile
			}

			n, err := export.FromFile(snapshotPath, outputPath, limit)
			if err != nil {
				return err
			}

			g.console().PrintSuccess(fmt.Sprintf("%d scrape data written to %s", n, outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot file to read (default: collector output file)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", export.DefaultOutputPath, "file to write")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only export the first n accounts, 0 for all")
	return cmd
}
