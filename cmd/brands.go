package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/spf13/cobra"
)

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List the brand filter options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := sharedSources()
		if err != nil {
			return err
		}
		rows, err := pipeline.DeriveTimes(pipeline.Join(src))
		if err != nil {
			return err
		}
		for _, b := range pipeline.Brands(rows) {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(brandsCmd)
}
