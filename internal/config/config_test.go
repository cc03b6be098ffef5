package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Static Values", c.StaticValuesSheet)
	assert.Equal(t, "Kruidvat", c.DefaultBusinessUnit)
	assert.Contains(t, c.ExcludedSheets, "Instructions")
	assert.Equal(t, "{bu}_stability_data.csv", c.CSVFilenameTemplate)
	assert.Equal(t, filepath.Join(home, DirName, "projects"), c.ProjectsDir)
	assert.Equal(t, filepath.Join(home, DirName, "cache", "stability_data.xlsx"), c.CachePath)

	opt := c.EngineOptions()
	assert.InDelta(t, 0.05, opt.DefaultThreshold, 1e-12)
	assert.InDelta(t, 0.7, opt.FractionProportion, 1e-12)
	assert.InDelta(t, 0.5, opt.RescaleProportion, 1e-12)
	assert.Contains(t, opt.MetricPatterns, "TC in Review")
	assert.Equal(t, []string{"date", "week"}, opt.DatePatterns)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("default_threshold: 0.1\nworkers: 2\nsource_path: /data/a.xlsx\n"), 0o644))
	t.Setenv("STABILITY_WORKERS", "8")

	c, err := Load(cfgFile)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, c.DefaultThreshold, 1e-12)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, "/data/a.xlsx", c.SourcePath)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STABILITY_SOURCE_URL=https://example.com/book.xlsx?web=1\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("STABILITY_SOURCE_URL") })

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/book.xlsx?web=1", c.SourceURL)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	c.DefaultBusinessUnit = "Trekpleister"
	c.ExcludedSheets = []string{"Static Values"}
	require.NoError(t, Save(c, ""))

	dir, err := Dir()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Trekpleister", again.DefaultBusinessUnit)
	assert.Equal(t, []string{"Static Values"}, again.ExcludedSheets)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
