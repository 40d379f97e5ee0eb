// Package registry maps group names to ordered collection unit
// constructors, from built-ins and from TOML catalogs.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/unit"
	"github.com/spachava753/casscheck/internal/util"
)

// Registry is an ordered, group-keyed set of unit constructors. Entries keep
// their registration order, which is the order the runner executes them.
type Registry struct {
	groups map[string][]unit.Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{groups: make(map[string][]unit.Entry)}
}

// Register adds e to group. An entry with the same name is replaced in
// place, keeping its position.
func (r *Registry) Register(group string, e unit.Entry) {
	entries := r.groups[group]
	for i := range entries {
		if entries[i].Name == e.Name {
			entries[i] = e
			return
		}
	}
	r.groups[group] = append(entries, e)
}

// Entries returns a copy of the entries in group, in registration order.
func (r *Registry) Entries(group string) []unit.Entry {
	return slices.Clone(r.groups[group])
}

// Names returns the entry names in group.
func (r *Registry) Names(group string) []string {
	entries := r.groups[group]
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Groups returns the registered group names, sorted.
func (r *Registry) Groups() []string {
	groups := make([]string, 0, len(r.groups))
	for g := range r.groups {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups
}

// Apply registers every unit in c. Units without a group go to
// GroupCollection.
func (r *Registry) Apply(c *Catalog) error {
	for _, spec := range c.Units {
		ctor, err := spec.constructor()
		if err != nil {
			return fmt.Errorf("catalog %s: %w", c.Source, err)
		}
		group := spec.Group
		if group == "" {
			group = GroupCollection
		}
		if slices.Contains(r.Names(group), spec.Name) {
			slog.Info("catalog overrides unit", "source", c.Source, "group", group, "unit", spec.Name)
		}
		r.Register(group, unit.Entry{Name: spec.Name, Description: spec.Description, New: ctor})
	}
	return nil
}

func (u UnitSpec) constructor() (unit.Constructor, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	skipReport := u.Report != nil && !*u.Report

	switch u.Kind {
	case KindCopy:
		var maxSize int64
		if u.MaxFileSize != "" {
			maxSize, _ = util.ParseSize(u.MaxFileSize)
		}
		cfg := unit.FileCopyConfig{
			Name:        u.Name,
			Description: u.Description,
			SourceDir:   u.SourceDir,
			Prefixes:    slices.Clone(u.Prefixes),
			MaxFileSize: maxSize,
			SkipReport:  skipReport,
		}
		return func(models.RunConfig) (unit.Unit, error) {
			return unit.NewFileCopy(cfg), nil
		}, nil

	default:
		var timeout time.Duration
		if u.Timeout != "" {
			timeout, _ = time.ParseDuration(u.Timeout)
		}
		cfg := unit.CommandConfig{
			Name:        u.Name,
			Description: u.Description,
			Argv:        slices.Clone(u.Command),
			Timeout:     timeout,
			SkipReport:  skipReport,
		}
		shell := u.Shell
		return func(models.RunConfig) (unit.Unit, error) {
			if shell != "" {
				return unit.NewShellCommand(cfg, shell), nil
			}
			return unit.NewCommand(cfg), nil
		}, nil
	}
}

// Default returns a registry holding the built-in collection units.
func Default() *Registry {
	r := New()
	r.Register(GroupCollection, unit.Entry{
		Name:        "collect-logs",
		Description: "Collect logs",
		New: func(models.RunConfig) (unit.Unit, error) {
			return unit.NewFileCopy(unit.FileCopyConfig{
				Name:        "collect-logs",
				Description: "Collect logs",
				SourceDir:   "/var/log/cassandra",
				Prefixes:    []string{"system.log", "gc-"},
			}), nil
		},
	})
	r.Register(GroupCollection, unit.Entry{
		Name:        "collect-proxy-histograms",
		Description: "Collect proxy histograms",
		New: func(models.RunConfig) (unit.Unit, error) {
			return unit.NewCommand(unit.CommandConfig{
				Name:        "collect-proxy-histograms",
				Description: "Collect proxy histograms",
				Argv:        []string{"nodetool", "-h", "localhost", "proxyhistograms"},
			}), nil
		},
	})
	r.Register(GroupCollection, unit.Entry{
		Name:        "collect-system-info",
		Description: "Collect host CPU, memory, disk and load figures",
		New: func(models.RunConfig) (unit.Unit, error) {
			return unit.NewSystemInfo("collect-system-info"), nil
		},
	})
	r.Register(GroupCollection, unit.Entry{
		Name:        "collect-block-devices",
		Description: "Collect block device and partition inventory",
		New: func(models.RunConfig) (unit.Unit, error) {
			return unit.NewBlockDevices("collect-block-devices"), nil
		},
	})
	return r
}
