package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/source"
)

var fetchProject string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the remote workbook and refresh the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, info, p, err := openWorkbook(cmd.Context(), fetchProject)
		if err != nil {
			return err
		}
		spec, _ := resolveSpec(p)
		if spec.Kind != source.KindRemote {
			return fmt.Errorf("fetch needs a remote source (--url, source_url or a project created with --url)")
		}
		out := cmd.OutOrStdout()
		if info.FromCache {
			fmt.Fprintf(out, "⚠ Download failed; %s is still in use\n", info)
		} else {
			fmt.Fprintf(out, "✓ %s saved to %s\n", info, spec.CachePath)
		}
		fmt.Fprintf(out, "  Business units: %d\n", len(wb.BusinessUnits(cfg.ExcludedSheets)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchProject, "project", "p", "", "project whose remote source to fetch")
}
