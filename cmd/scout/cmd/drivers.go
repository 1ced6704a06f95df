package cmd

import (
	"github.com/spf13/cobra"

	"github.com/addls/scout/internal/output"
)

func newDriversCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List search drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			def := a.registry.DefaultDriver()

			rows := make([][]string, 0)
			for _, name := range a.registry.Drivers() {
				mark := ""
				if name == def {
					mark = "*"
				}
				rows = append(rows, []string{name, mark})
			}
			output.New(cmd.OutOrStdout()).Table([]string{"DRIVER", "DEFAULT"}, rows)
			return nil
		},
	}
}
