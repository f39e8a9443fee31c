package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed packages/*.yaml
var builtinManifests embed.FS

// Manifest declares which intents a command package supports, partitioned into
// the high-confidence and low-confidence classifier vocabularies.
type Manifest struct {
	Name        string   `yaml:"name"`
	HighIntents []string `yaml:"high_intents"`
	LowIntents  []string `yaml:"low_intents"`
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse package manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("package manifest has no name")
	}
	return m, nil
}

var (
	manifestOnce sync.Once
	manifests    map[string]Manifest
	manifestErr  error
)

func loadBuiltinManifests() (map[string]Manifest, error) {
	manifestOnce.Do(func() {
		manifests = make(map[string]Manifest)
		manifestErr = fs.WalkDir(builtinManifests, "packages", func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := builtinManifests.ReadFile(path)
			if err != nil {
				return err
			}
			m, err := ParseManifest(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, dup := manifests[m.Name]; dup {
				return fmt.Errorf("duplicate package manifest %q", m.Name)
			}
			manifests[m.Name] = m
			return nil
		})
	})
	return manifests, manifestErr
}

func manifestFor(packageName string) (Manifest, error) {
	all, err := loadBuiltinManifests()
	if err != nil {
		return Manifest{}, err
	}
	m, ok := all[packageName]
	if !ok {
		return Manifest{}, fmt.Errorf("%w: %q", ErrUnknownPackage, packageName)
	}
	return m, nil
}

// Packages returns the sorted names of all known command packages.
func Packages() ([]string, error) {
	all, err := loadBuiltinManifests()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
