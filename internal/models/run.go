package models

import (
	"path/filepath"
	"time"
)

// RunConfig is the configuration shared by every command and unit in one
// invocation. It is passed by value; Rebase returns a new value instead of
// changing the original.
type RunConfig struct {
	OutputBase string   `mapstructure:"output_base" yaml:"output_base" json:"output_base"`
	CheckName  string   `mapstructure:"check_name" yaml:"check_name" json:"check_name"`
	CheckDir   string   `mapstructure:"check_dir" yaml:"check_dir,omitempty" json:"check_dir,omitempty"`
	FailFast   bool     `mapstructure:"fail_fast" yaml:"fail_fast" json:"fail_fast"`
	LogLevel   string   `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFile    string   `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	LogFormat  string   `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Catalogs   []string `mapstructure:"catalogs" yaml:"catalogs,omitempty" json:"catalogs,omitempty"`
}

// Rebase returns a copy of the config whose CheckDir is the absolute path of
// CheckDir/name.
func (c RunConfig) Rebase(name string) (RunConfig, error) {
	dir, err := filepath.Abs(filepath.Join(c.CheckDir, name))
	if err != nil {
		return c, err
	}
	c.CheckDir = dir
	if len(c.Catalogs) > 0 {
		c.Catalogs = append([]string(nil), c.Catalogs...)
	}
	return c, nil
}

// RunManifest identifies a run on disk. It is written once, when the run
// directory is first created.
type RunManifest struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Host      string    `yaml:"host,omitempty" json:"host,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
