package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
	"github.com/KaramelBytes/stability-cli/internal/project"
	"github.com/KaramelBytes/stability-cli/internal/source"
	"github.com/KaramelBytes/stability-cli/internal/workbook"
)

var errNoSource = errors.New("no workbook source: pass --source or --url, set source_path/source_url in config, or use a project with a source")

// resolveSpec picks the workbook source: flags, then the project, then config.
func resolveSpec(p *project.Project) (source.Spec, error) {
	switch {
	case flagSource != "":
		return source.Spec{Kind: source.KindFile, Path: flagSource}, nil
	case flagURL != "":
		return source.Spec{Kind: source.KindRemote, URL: flagURL, CachePath: cfg.CachePath}, nil
	case p != nil && p.Source.Kind != "":
		spec := p.Source
		if rootCmd.PersistentFlags().Changed("cache") {
			spec.CachePath = cfg.CachePath
		}
		return spec, nil
	case cfg.SourceURL != "":
		return source.Spec{Kind: source.KindRemote, URL: cfg.SourceURL, CachePath: cfg.CachePath}, nil
	case cfg.SourcePath != "":
		return source.Spec{Kind: source.KindFile, Path: cfg.SourcePath}, nil
	}
	return source.Spec{}, errNoSource
}

func newLoader() *source.Loader {
	client := source.NewClient(
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
		cfg.RetryMaxAttempts,
		time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
	)
	return source.NewLoader(client, logger)
}

// openWorkbook resolves and loads the workbook for an optional project name.
func openWorkbook(ctx context.Context, projectName string) (*workbook.Workbook, source.Info, *project.Project, error) {
	if err := requireConfig(); err != nil {
		return nil, source.Info{}, nil, err
	}
	var p *project.Project
	if projectName != "" {
		pp, err := loadProjectByName(projectName)
		if err != nil {
			return nil, source.Info{}, nil, err
		}
		p = pp
	}
	spec, err := resolveSpec(p)
	if err != nil {
		return nil, source.Info{}, p, err
	}
	wb, info, err := newLoader().Load(ctx, spec)
	if err != nil {
		return nil, info, p, fmt.Errorf("load workbook: %w", err)
	}
	return wb, info, p, nil
}

// newEngine builds the analysis engine, applying a project's threshold override.
func newEngine(p *project.Project) *analysis.Engine {
	opt := cfg.EngineOptions()
	if p != nil && p.Config != nil && p.Config.DefaultThreshold > 0 {
		opt.DefaultThreshold = p.Config.DefaultThreshold
	}
	return analysis.NewEngine(opt, logger)
}

// defaultUnit returns the business unit used when none is given.
func defaultUnit(p *project.Project) string {
	if p != nil && p.Config != nil && p.Config.DefaultBusinessUnit != "" {
		return p.Config.DefaultBusinessUnit
	}
	return cfg.DefaultBusinessUnit
}
