package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/stability-cli/internal/source"
	"github.com/KaramelBytes/stability-cli/internal/utils"
)

const (
	projectFileName = "project.json"
	reportsDirName  = "reports"
)

// Project is a stability dashboard workspace persisted on disk: where the
// workbook comes from and which reports were generated from it.
type Project struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Source      source.Spec        `json:"source"`
	Reports     map[string]*Report `json:"reports"`
	Config      *ProjectConfig     `json:"config"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// ProjectConfig holds per-project overrides of the global configuration.
type ProjectConfig struct {
	DefaultBusinessUnit string  `json:"default_business_unit,omitempty"`
	DefaultThreshold    float64 `json:"default_threshold,omitempty"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Reports:     make(map[string]*Report),
		Config:      &ProjectConfig{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Reports == nil {
		p.Reports = make(map[string]*Report)
	}
	if p.Config == nil {
		p.Config = &ProjectConfig{}
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// ReportsDir is where reports generated for this project are written.
func (p *Project) ReportsDir() string { return filepath.Join(p.rootDir, reportsDirName) }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, projectFileName), data)
}

// SetSource replaces the workbook source. Relative file paths are made absolute.
func (p *Project) SetSource(spec source.Spec) error {
	if spec.Kind == source.KindFile && spec.Path != "" {
		abs, err := filepath.Abs(spec.Path)
		if err != nil {
			return fmt.Errorf("resolve source path: %w", err)
		}
		spec.Path = abs
	}
	spec.Data = nil
	p.Source = spec
	p.UpdatedAt = time.Now()
	return nil
}

// RecordReport stores r under a fresh id and returns the id.
func (p *Project) RecordReport(r Report) string {
	r.ID = uuid.NewString()
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}
	if p.Reports == nil {
		p.Reports = make(map[string]*Report)
	}
	p.Reports[r.ID] = &r
	p.UpdatedAt = time.Now()
	return r.ID
}

// SortedReports returns every report, newest first.
func (p *Project) SortedReports() []*Report {
	out := make([]*Report, 0, len(p.Reports))
	for _, r := range p.Reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out
}

// LatestReport returns the newest report for a business unit, or nil.
func (p *Project) LatestReport(bu string) *Report {
	for _, r := range p.SortedReports() {
		if strings.EqualFold(r.BusinessUnit, bu) {
			return r
		}
	}
	return nil
}
