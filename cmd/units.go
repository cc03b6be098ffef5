package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var unitsProject string

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List the business units (sheets) of the workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, info, p, err := openWorkbook(cmd.Context(), unitsProject)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source: %s\n", info)
		units := wb.BusinessUnits(cfg.ExcludedSheets)
		if len(units) == 0 {
			return fmt.Errorf("no business units (sheets) found in the workbook")
		}
		def := defaultUnit(p)
		for _, u := range units {
			mark := " "
			if strings.EqualFold(u, def) {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unitsCmd)
	unitsCmd.Flags().StringVarP(&unitsProject, "project", "p", "", "project whose source to use")
}
