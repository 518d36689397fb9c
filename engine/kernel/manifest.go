package kernel

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-space/common"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name of the manifest inside a kernel artifact directory.
const ManifestFile = "manifest.yaml"

// Manifest describes a directory of compiled kernels.
type Manifest struct {
	Format   int             `yaml:"format"`
	Compiler string          `yaml:"compiler"`
	Kernels  []ManifestEntry `yaml:"kernels"`
}

// ManifestEntry describes one compiled kernel module.
type ManifestEntry struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	WGSL         string       `yaml:"wgsl"`
	SPIRV        string       `yaml:"spirv"`
	SHA256       string       `yaml:"sha256"`
	SourceSHA256 string       `yaml:"source_sha256"`
	EntryPoints  []EntryPoint `yaml:"entry_points"`
}

// Entry returns the manifest entry for the named kernel.
func (m Manifest) Entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Kernels {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// Names returns the kernel names in manifest order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m.Kernels))
	for _, e := range m.Kernels {
		names = append(names, e.Name)
	}
	return names
}

// ReadManifest decodes the manifest at the root of fsys.
//
// Parameters:
//   - fsys: the kernel artifact filesystem
//
// Returns:
//   - Manifest: the decoded manifest
//   - error: an error if the manifest is missing or malformed
func ReadManifest(fsys fs.FS) (Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, fmt.Errorf("failed to read %s: %w: %w", ManifestFile, common.ErrNotFound, err)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode %s: %w", ManifestFile, err)
	}
	return m, nil
}

// Encode renders the manifest as YAML.
func (m Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}
