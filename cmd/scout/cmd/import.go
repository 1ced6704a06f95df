package cmd

import (
	"github.com/spf13/cobra"

	"github.com/addls/scout/internal/output"
	"github.com/addls/scout/pkg/indexer"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		driver    string
		batchSize int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Index every row of the configured table",
		Long: `Read every row of the configured repository table and upsert it into
the search backend. Re-running import is safe; existing documents are
replaced.`,
		Example: `  scout import
  scout import --driver elasticsearch --batch-size 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			engine, err := a.registry.Engine(cmd.Context(), driver)
			if err != nil {
				return err
			}
			repo, err := a.repository()
			if err != nil {
				return err
			}
			idx, err := indexer.New(engine,
				indexer.WithBatchSize(batchSize),
				indexer.WithWorkers(workers),
				indexer.WithLogger(a.logger))
			if err != nil {
				return err
			}

			stats, err := idx.Import(cmd.Context(), repo)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("Imported %d records from %s in %d batches", stats.Records, repo.Table(), stats.Batches)
			return nil
		},
	}

	cmd.Flags().StringVarP(&driver, "driver", "d", "", "Search driver (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", indexer.DefaultBatchSize, "Records per bulk request")
	cmd.Flags().IntVar(&workers, "workers", indexer.DefaultWorkers, "Bulk requests in flight")

	return cmd
}
