package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and --set overrides are applied.

Examples:
  vtree config
  vtree config --format=json
  vtree config --set log.level=debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.cfg.Marshal(format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")

	return cmd
}
