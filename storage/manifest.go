package storage

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultCacheName versions the on-disk cache; changing it orphans old blobs.
const defaultCacheName = "versefeed-v1"

// WebFontsStylesheet loads the Amiri, Inter and Vazirmatn faces the cards
// are set in.
const WebFontsStylesheet = "https://fonts.googleapis.com/css2?family=Amiri:ital,wght@0,400;0,700;1,400&family=Inter:wght@300;400;600&family=Vazirmatn:wght@300;400;700&display=swap"

// OfflineAssets are cached when no manifest file is configured. The verse
// sources are appended from configuration.
var OfflineAssets = []string{WebFontsStylesheet}

// Manifest lists the assets stored for offline use.
type Manifest struct {
	Name   string   `yaml:"name"`
	Assets []string `yaml:"assets"`
}

// LoadManifest reads a YAML manifest. Blank and duplicate entries are dropped.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read asset manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse asset manifest %s: %w", path, err)
	}
	return m.normalized(), nil
}

// DefaultManifest caches just the given references.
func DefaultManifest(refs ...string) Manifest {
	return Manifest{Name: defaultCacheName, Assets: refs}.normalized()
}

// With returns a copy of m with refs appended.
func (m Manifest) With(refs ...string) Manifest {
	assets := make([]string, 0, len(m.Assets)+len(refs))
	assets = append(assets, m.Assets...)
	assets = append(assets, refs...)
	return Manifest{Name: m.Name, Assets: assets}.normalized()
}

// Resolve maps a requested asset name to its manifest reference. A name
// matches a reference exactly or by its final path element.
func (m Manifest) Resolve(name string) (string, bool) {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", false
	}
	for _, ref := range m.Assets {
		if ref == name {
			return ref, true
		}
	}
	for _, ref := range m.Assets {
		base, _, _ := strings.Cut(ref, "?")
		if path.Base(strings.TrimSuffix(base, ".xz")) == name || path.Base(base) == name {
			return ref, true
		}
	}
	return "", false
}

func (m Manifest) normalized() Manifest {
	if m.Name == "" {
		m.Name = defaultCacheName
	}
	seen := make(map[string]struct{}, len(m.Assets))
	assets := make([]string, 0, len(m.Assets))
	for _, a := range m.Assets {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		assets = append(assets, a)
	}
	m.Assets = assets
	return m
}
