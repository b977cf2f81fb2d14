package mapcatalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the process-wide, immutable-after-load set of map descriptors.
type Catalog struct {
	byID    map[string]*Descriptor
	order   []string // load order, for Default()
	defaultID string
}

// Load walks dir for *.yaml files and builds a Catalog keyed by filename
// stem. Files are loaded in lexical filename order so the default map
// ("first-loaded") is reproducible across runs.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mapcatalog: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	c := &Catalog{byID: make(map[string]*Descriptor)}
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("mapcatalog: read %s: %w", path, err)
		}

		var d Descriptor
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("mapcatalog: parse %s: %w", path, err)
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		d.ID = id
		d.precomputeBounds()

		c.byID[id] = &d
		c.order = append(c.order, id)
	}

	if len(c.order) > 0 {
		c.defaultID = c.order[0]
	}

	return c, nil
}

// Get looks up a descriptor by id.
func (c *Catalog) Get(id string) (*Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Resolve returns the descriptor for id, falling back to Default() when id
// is empty or unknown.
func (c *Catalog) Resolve(id string) (*Descriptor, bool) {
	if id != "" {
		if d, ok := c.byID[id]; ok {
			return d, true
		}
	}
	return c.Default()
}

// Default returns the first-loaded map descriptor, or (nil, false) if the
// catalog is empty.
func (c *Catalog) Default() (*Descriptor, bool) {
	if c.defaultID == "" {
		return nil, false
	}
	return c.byID[c.defaultID], true
}

// List returns {id -> display name} for every loaded map, used to build the
// welcome and maps_list wire messages.
func (c *Catalog) List() map[string]string {
	out := make(map[string]string, len(c.byID))
	for id, d := range c.byID {
		out[id] = d.Name
	}
	return out
}

// Len reports how many maps are loaded.
func (c *Catalog) Len() int {
	return len(c.byID)
}
