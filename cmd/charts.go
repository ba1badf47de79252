package cmd

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/tripboard/internal/dashboard"
	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/KaramelBytes/tripboard/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chartsBrand      string
	chartsOutputPath string
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render all dashboard charts to a standalone HTML file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := sharedSources()
		if err != nil {
			return err
		}
		v, err := pipeline.ComputeView(src, chartsBrand, pipeline.Options{PreviewRows: -1})
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := dashboard.RenderPage(&buf, v, cfg.AssetsHost); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(chartsOutputPath, buf.Bytes()); err != nil {
			return fmt.Errorf("write charts: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d charts for brand %s to %s\n", len(dashboard.Charts(v, cfg.AssetsHost)), v.Selection, chartsOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().StringVarP(&chartsBrand, "brand", "b", pipeline.AllBrands, "car brand to filter by ('All' for no filter)")
	chartsCmd.Flags().StringVarP(&chartsOutputPath, "output", "o", "charts.html", "path of the HTML file to write")
}
