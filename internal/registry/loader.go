package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"github.com/spachava753/casscheck/internal/layout"
	"github.com/spachava753/casscheck/internal/unit"
	"github.com/spachava753/casscheck/internal/util"
)

// maxCatalogBytes caps how much of a remote catalog is read.
const maxCatalogBytes = 1 << 20

// LoadFromPath loads a catalog from a local TOML file.
func LoadFromPath(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return parse(path, data)
}

// LoadFromURL loads a catalog from a remote URL.
func LoadFromURL(ctx context.Context, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return parse(url, data)
}

// LoadAll loads every source concurrently. Sources starting with http:// or
// https:// are fetched, anything else is read from disk. Catalogs are
// returned in source order; the first failure cancels the rest.
func LoadAll(ctx context.Context, sources []string) ([]*Catalog, error) {
	catalogs := make([]*Catalog, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			var (
				c   *Catalog
				err error
			)
			if isURL(src) {
				c, err = LoadFromURL(ctx, src)
			} else {
				c, err = LoadFromPath(src)
			}
			if err != nil {
				return fmt.Errorf("loading catalog %s: %w", src, err)
			}
			catalogs[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return catalogs, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func parse(source string, data []byte) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog TOML: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("ignoring unknown catalog key", "source", source, "key", key.String())
	}
	c.Source = source

	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		if err := u.validate(); err != nil {
			return nil, fmt.Errorf("unit[%d]: %w", i, err)
		}
		if seen[u.Name] {
			return nil, fmt.Errorf("unit %s: duplicate name in catalog", u.Name)
		}
		seen[u.Name] = true
	}
	return &c, nil
}

func (u UnitSpec) validate() error {
	if err := unit.ValidateName(u.Name); err != nil {
		return err
	}
	if u.Group != "" {
		if err := layout.ValidateName(u.Group); err != nil {
			return fmt.Errorf("unit %s: group: %w", u.Name, err)
		}
	}

	switch u.Kind {
	case KindCopy:
		if u.SourceDir == "" {
			return fmt.Errorf("unit %s: copy unit needs source_dir", u.Name)
		}
		if len(u.Prefixes) == 0 {
			return fmt.Errorf("unit %s: copy unit needs at least one prefix", u.Name)
		}
		if u.MaxFileSize != "" {
			if _, err := util.ParseSize(u.MaxFileSize); err != nil {
				return fmt.Errorf("unit %s: max_file_size: %w", u.Name, err)
			}
		}
	case KindCommand:
		if (len(u.Command) == 0) == (u.Shell == "") {
			return fmt.Errorf("unit %s: command unit needs exactly one of command or shell", u.Name)
		}
		if u.Timeout != "" {
			d, err := time.ParseDuration(u.Timeout)
			if err != nil {
				return fmt.Errorf("unit %s: timeout: %w", u.Name, err)
			}
			if d < 0 {
				return fmt.Errorf("unit %s: timeout must not be negative", u.Name)
			}
		}
	default:
		return fmt.Errorf("unit %s: unknown kind %q", u.Name, u.Kind)
	}
	return nil
}
