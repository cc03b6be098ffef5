package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/stability-cli/internal/config"
	"github.com/KaramelBytes/stability-cli/internal/project"
	"github.com/KaramelBytes/stability-cli/internal/source"
	"github.com/KaramelBytes/stability-cli/internal/utils"
)

var (
	initDescription string
	initUnit        string
)

var initCmd = &cobra.Command{
	Use:   "init <project-name>",
	Short: "Initialize a new stability project",
	Long: `Create a project that remembers where the workbook lives (--source or --url)
and collects the reports generated from it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		root, err := defaultProjectsDir()
		if err != nil {
			return err
		}
		projDir := filepath.Join(root, name)
		// Refuse to overwrite an existing project.
		if info, err := os.Stat(projDir); err == nil && info.IsDir() {
			projectFile := filepath.Join(projDir, "project.json")
			if _, err := os.Stat(projectFile); err == nil {
				return fmt.Errorf("project already exists at %s", projDir)
			}
			entries, err := os.ReadDir(projDir)
			if err != nil {
				return fmt.Errorf("inspect project directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize project", projDir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat project directory: %w", err)
		}
		if err := utils.EnsureDir(projDir); err != nil {
			return err
		}
		p := project.NewProject(name, initDescription, projDir)
		switch {
		case flagSource != "":
			err = p.SetSource(source.Spec{Kind: source.KindFile, Path: flagSource})
		case flagURL != "":
			err = p.SetSource(source.Spec{Kind: source.KindRemote, URL: flagURL, CachePath: projectCachePath(projDir)})
		}
		if err != nil {
			return err
		}
		p.Config.DefaultBusinessUnit = strings.TrimSpace(initUnit)
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Project initialized: %s\n", projDir)
		if p.Source.Kind == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "  No source set; reports will use --source/--url or the configured source.")
		}
		return nil
	},
}

func defaultProjectsDir() (string, error) {
	if cfg != nil && cfg.ProjectsDir != "" {
		dir := cfg.ProjectsDir
		if strings.HasPrefix(dir, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			dir = strings.TrimPrefix(dir, "~")
			dir = strings.TrimPrefix(dir, string(os.PathSeparator))
			dir = strings.TrimPrefix(dir, "/")
			dir = filepath.Join(home, dir)
		}
		dir = filepath.Clean(dir)
		if err := utils.EnsureDir(dir); err != nil {
			return "", err
		}
		return dir, nil
	}
	cdir, err := cfgpkg.Dir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cdir, "projects")
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveProjectDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("project name is required")
	}
	root, err := defaultProjectsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func projectCachePath(projDir string) string {
	return filepath.Join(projDir, "cache", "stability_data.xlsx")
}

// loadProjectByName loads a project from the projects directory. A name that
// looks like a path ("." or containing a separator) is resolved by walking up to
// the nearest project.json instead.
func loadProjectByName(name string) (*project.Project, error) {
	if name == "." || strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		root, err := utils.FindProjectRoot(name)
		if err != nil {
			return nil, err
		}
		return project.LoadProject(root)
	}
	dir, err := resolveProjectDirByName(name)
	if err != nil {
		return nil, err
	}
	return project.LoadProject(dir)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "project description")
	initCmd.Flags().StringVar(&initUnit, "unit", "", "default business unit for this project")
}
