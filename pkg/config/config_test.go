package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/kimai-report/pkg/tags"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kimai:
  url: https://kimai.example.com
  timezone: Europe/Berlin
tags:
  record: kid
workers: 2
`), 0600))
	t.Setenv("KIMAI_REPORT_KIMAI_TOKEN", "secret")
	t.Setenv("KIMAI_REPORT_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://kimai.example.com", cfg.Kimai.URL)
	assert.Equal(t, "secret", cfg.Kimai.Token)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "kid", cfg.Tags.Record)
	assert.Equal(t, "kimai_project", cfg.Tags.Project)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, map[string]tags.Role{
		"kimai_project":  tags.Project,
		"kimai_activity": tags.Activity,
		"kid":            tags.Record,
	}, cfg.Classes())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad url", func(c *Config) { c.Kimai.URL = "not a url" }},
		{"empty url", func(c *Config) { c.Kimai.URL = "" }},
		{"class with separator", func(c *Config) { c.Tags.Project = "kimai:project" }},
		{"duplicate classes", func(c *Config) { c.Tags.Activity = c.Tags.Project }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown timezone", func(c *Config) { c.Kimai.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Kimai.URL = "https://kimai.example.com"
	cfg.Journal.Enabled = true

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestJournalPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := Default()
	p, err := cfg.JournalPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "kimai-report", "journal.json"), p)

	cfg.Journal.Path = "/tmp/j.json"
	p, err = cfg.JournalPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/j.json", p)
}
