package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/stability-cli/internal/project"
)

var (
	listProjects bool
	listReports  bool
	listProjName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects or the reports of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProjects == listReports { // either both true or both false
			return fmt.Errorf("specify exactly one of --projects or --reports")
		}
		if listProjects {
			return listAllProjects(cmd)
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when using --reports")
		}
		projDir, err := resolveProjectDirByName(listProjName)
		if err != nil {
			return err
		}
		p, err := project.LoadProject(projDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		reports := p.SortedReports()
		if len(reports) == 0 {
			fmt.Fprintln(out, "(no reports)")
			return nil
		}
		for _, r := range reports {
			cached := ""
			if r.FromCache {
				cached = ", cached data"
			}
			fmt.Fprintf(out, "- %s: %s %s (%d root causes, %d data points%s) %s\n",
				r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), r.BusinessUnit, r.Metrics, r.Rows, cached, r.Dir)
		}
		return nil
	},
}

func listAllProjects(cmd *cobra.Command) error {
	root, err := defaultProjectsDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		pj := filepath.Join(root, e.Name(), "project.json")
		if _, err := os.Stat(pj); err == nil {
			fmt.Fprintf(out, "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(out, "(no projects)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listReports, "reports", false, "list reports recorded in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name for --reports")
}
