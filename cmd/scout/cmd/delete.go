package cmd

import (
	"github.com/spf13/cobra"

	"github.com/addls/scout/internal/output"
	"github.com/addls/scout/pkg/indexer"
)

func newDeleteCmd(a *app) *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "delete <key>...",
		Short: "Remove records from the index",
		Long: `Remove the documents with the given keys from the search backend.
The repository table is not touched.`,
		Example: `  scout delete 42
  scout delete 1 2 3 --driver bleve`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			idx, err := indexer.New(engine, indexer.WithLogger(a.logger))
			if err != nil {
				return err
			}

			if err := idx.Remove(cmd.Context(), repo.Stubs(args)); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Successf("Removed %d records", len(args))
			return nil
		},
	}

	cmd.Flags().StringVarP(&driver, "driver", "d", "", "Search driver (default from config)")

	return cmd
}
