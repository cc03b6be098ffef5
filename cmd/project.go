package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
	"github.com/KaramelBytes/stability-cli/internal/source"
)

var (
	pmProject string
	pmClear   bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings",
}

var projectSetUnitCmd = &cobra.Command{
	Use:   "set-unit <business-unit>",
	Short: "Set or clear a project's default business unit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if pmClear {
			p.Config.DefaultBusinessUnit = ""
		} else {
			if len(args) == 0 || args[0] == "" {
				return fmt.Errorf("business unit is required unless --clear is set")
			}
			p.Config.DefaultBusinessUnit = args[0]
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared default business unit for %s\n", pmProject)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Set default business unit for %s: %s\n", pmProject, p.Config.DefaultBusinessUnit)
		}
		return nil
	},
}

var projectSetThresholdCmd = &cobra.Command{
	Use:   "set-threshold <fraction>",
	Short: "Set or clear the threshold used for metrics without one (e.g. 0.05 or 5%)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if pmClear {
			p.Config.DefaultThreshold = 0
		} else {
			if len(args) == 0 {
				return fmt.Errorf("threshold is required unless --clear is set")
			}
			f, err := parseFraction("default_threshold", args[0])
			if err != nil {
				return err
			}
			if f == 0 {
				return fmt.Errorf("threshold must be greater than zero")
			}
			p.Config.DefaultThreshold = f
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared default threshold for %s\n", pmProject)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Set default threshold for %s: %s\n", pmProject, analysis.Percent(p.Config.DefaultThreshold))
		}
		return nil
	},
}

var projectSetSourceCmd = &cobra.Command{
	Use:   "set-source",
	Short: "Point a project at a workbook (--source or --url)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		var spec source.Spec
		switch {
		case flagSource != "":
			spec = source.Spec{Kind: source.KindFile, Path: flagSource}
		case flagURL != "":
			spec = source.Spec{Kind: source.KindRemote, URL: flagURL, CachePath: projectCachePath(p.RootDir())}
		default:
			return fmt.Errorf("pass --source or --url")
		}
		if err := p.SetSource(spec); err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Source for %s: %s\n", pmProject, describeSpec(p.Source))
		return nil
	},
}

func describeSpec(s source.Spec) string {
	if s.Kind == source.KindRemote {
		return "remote " + s.URL
	}
	return "file " + s.Path
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetUnitCmd)
	projectCmd.AddCommand(projectSetThresholdCmd)
	projectCmd.AddCommand(projectSetSourceCmd)

	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectCmd.PersistentFlags().BoolVar(&pmClear, "clear", false, "clear the project override")
	_ = projectCmd.MarkPersistentFlagRequired("project")
}
