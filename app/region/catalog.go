package region

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog holds the region configurations loaded from a directory of YAML
// files, one region per file.
type Catalog struct {
	regionsDir string
	byName     map[string]*Region
	bySlug     map[string]*Region
	mu         sync.RWMutex
}

func NewCatalog(regionsDir string) *Catalog {
	return &Catalog{
		regionsDir: regionsDir,
		byName:     make(map[string]*Region),
		bySlug:     make(map[string]*Region),
	}
}

func (c *Catalog) Run() error {
	if _, err := os.Stat(c.regionsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.regionsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		slug := strings.TrimSuffix(fileName, ".yml")

		r, err := c.LoadRegion(slug)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Region loaded", "region", r.Name, "zone", r.Zone, "sources", len(r.Sources))
	}

	return nil
}

func (c *Catalog) LoadRegion(slug string) (*Region, error) {
	configFile := filepath.Join(c.regionsDir, slug+".yml")
	r, err := c.parseRegion(configFile)
	if err != nil {
		return nil, err
	}

	r.Slug = slug

	if err := c.validateRegion(r); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	c.Add(r)
	return r, nil
}

// Add registers a region directly, replacing any region with the same name.
func (c *Catalog) Add(r *Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Slug == "" {
		r.Slug = Slugify(r.Name)
	}
	c.byName[r.Name] = r
	c.bySlug[r.Slug] = r
}

func (c *Catalog) Get(name string) (*Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byName[name]
	return r, ok
}

func (c *Catalog) GetBySlug(slug string) (*Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.bySlug[slug]
	return r, ok
}

// Names returns the configured region names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *Catalog) Regions() []*Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	regions := make([]*Region, 0, len(c.byName))
	for _, r := range c.byName {
		regions = append(regions, r)
	}
	slices.SortFunc(regions, func(a, b *Region) int { return cmp.Compare(a.Name, b.Name) })
	return regions
}

func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

func (c *Catalog) parseRegion(configFile string) (*Region, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var r Region
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if r.Zone == "" {
		r.Zone = r.Name
	}
	for i := range r.Sources {
		if r.Sources[i].Type == "" {
			r.Sources[i].Type = SourceTypeRSS
		}
	}

	return &r, nil
}

func (c *Catalog) validateRegion(r *Region) error {
	if r == nil {
		return fmt.Errorf("region is nil")
	}
	if r.Name == "" {
		return fmt.Errorf("region name is required")
	}

	seen := make(map[string]bool, len(r.Sources))
	for i, src := range r.Sources {
		requiredFields := map[string]string{
			"source name": src.Name,
			"source URL":  src.URL,
		}
		for fieldName, fieldValue := range requiredFields {
			if fieldValue == "" {
				return fmt.Errorf("%s is required at index %d", fieldName, i)
			}
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name at index %d: %s", i, src.Name)
		}
		seen[src.Name] = true
	}

	return nil
}

// Slugify turns a region name into a URL and file friendly identifier.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
