package frame

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Catalog.Get for an unknown id.
var ErrNotFound = errors.New("template not found")

// LoadTemplate reads and validates a template from a YAML file. Artwork paths
// are resolved relative to the file's directory; an empty id defaults to the
// file name without extension.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}

	if t.ID == "" {
		t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	dir := filepath.Dir(path)
	t.Background.Image = resolveArtwork(dir, t.Background.Image)
	t.Overlay = resolveArtwork(dir, t.Overlay)

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// WriteTemplate writes t as YAML, creating the parent directory.
func WriteTemplate(t *Template, path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func resolveArtwork(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Catalog is a directory of template YAML files.
type Catalog struct {
	Dir string
}

// List loads every template in the directory, ordered by id.
func (c Catalog) List() ([]*Template, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	var out []*Template
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		t, err := LoadTemplate(filepath.Join(c.Dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns the template with the given id.
func (c Catalog) Get(id string) (*Template, error) {
	all, err := c.List()
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, id, c.Dir)
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
