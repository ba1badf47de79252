package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tripboard/internal/pipeline"
	"github.com/KaramelBytes/tripboard/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	sumBrand       string
	sumFormat      string
	sumPreviewRows int
	sumOutputPath  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print metrics and grouped aggregates for a brand selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, _, err := sharedSources()
		if err != nil {
			return err
		}
		preview := cfg.PreviewRows
		if cmd.Flags().Changed("preview-rows") {
			preview = sumPreviewRows
			if preview == 0 {
				preview = -1 // explicit 0 disables the preview
			}
		}
		v, err := pipeline.ComputeView(src, sumBrand, pipeline.Options{PreviewRows: preview})
		if err != nil {
			return err
		}

		var out []byte
		switch strings.ToLower(strings.TrimSpace(sumFormat)) {
		case "", "markdown", "md":
			out = []byte(v.Markdown())
		case "json":
			b, err := utils.PrettyJSON(v)
			if err != nil {
				return err
			}
			out = append(b, '\n')
		case "yaml", "yml":
			b, err := yaml.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal yaml: %w", err)
			}
			out = b
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", sumFormat)
		}

		if sumOutputPath != "" {
			if err := utils.SafeWriteFile(sumOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", sumOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumBrand, "brand", "b", pipeline.AllBrands, "car brand to filter by ('All' for no filter)")
	summaryCmd.Flags().StringVarP(&sumFormat, "format", "f", "markdown", "output format: markdown|json|yaml")
	summaryCmd.Flags().IntVar(&sumPreviewRows, "preview-rows", 0, "number of preview rows (overrides config; 0 = none)")
	summaryCmd.Flags().StringVarP(&sumOutputPath, "output", "o", "", "optional path to write the summary")
}
