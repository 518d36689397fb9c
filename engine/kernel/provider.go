package kernel

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/Carmen-Shannon/oxy-space/common"
	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"golang.org/x/sync/errgroup"
)

// Provider resolves kernel names to validated Binaries from a compiled artifact directory.
type Provider interface {
	// Load returns the named kernel, validating it on first use and caching the result.
	// A kernel missing from the manifest yields an error wrapping common.ErrNotFound; every failure
	// is classified common.KindFatalInit.
	//
	// Parameters:
	//   - name: the kernel name, e.g. "bodies"
	//
	// Returns:
	//   - Binary: the validated kernel
	//   - error: a fatal init error describing why the kernel cannot be used
	Load(name string) (Binary, error)

	// LoadAll loads the named kernels concurrently and fails on the first error.
	//
	// Parameters:
	//   - names: the kernel names to load
	//
	// Returns:
	//   - map[string]Binary: the loaded kernels keyed by name
	//   - error: the first load error encountered
	LoadAll(names ...string) (map[string]Binary, error)

	// Manifest returns the decoded artifact manifest.
	Manifest() (Manifest, error)

	// Dir returns the artifact directory the provider reads from.
	Dir() string
}

type provider struct {
	dir      string
	fsys     fs.FS
	sourceFS fs.FS
	format   int
	required map[string][]string

	manifestOnce sync.Once
	manifest     Manifest
	manifestErr  error

	mu    sync.Mutex
	cache map[string]Binary
}

var _ Provider = &provider{}

// NewProvider creates a Provider reading the artifact directory dir.
//
// Parameters:
//   - dir: the artifact directory holding manifest.yaml, *.wgsl and *.spv
//   - options: functional options (filesystem overrides, format version, required entry points)
//
// Returns:
//   - Provider: the kernel provider
func NewProvider(dir string, options ...ProviderBuilderOption) Provider {
	p := &provider{
		dir:      dir,
		format:   FormatVersion,
		required: make(map[string][]string),
		cache:    make(map[string]Binary),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.fsys == nil {
		p.fsys = os.DirFS(dir)
	}
	return p
}

func (p *provider) Dir() string {
	return p.dir
}

func (p *provider) Manifest() (Manifest, error) {
	p.manifestOnce.Do(func() {
		p.manifest, p.manifestErr = ReadManifest(p.fsys)
		if p.manifestErr == nil && p.manifest.Format != p.format {
			p.manifestErr = fmt.Errorf("manifest format %d, want %d", p.manifest.Format, p.format)
		}
	})
	return p.manifest, p.manifestErr
}

func (p *provider) Load(name string) (Binary, error) {
	p.mu.Lock()
	if b, ok := p.cache[name]; ok {
		p.mu.Unlock()
		return b, nil
	}
	p.mu.Unlock()

	b, err := p.load(name)
	if err != nil {
		return Binary{}, common.Fatal("load kernel "+name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.cache[name]; ok {
		return cached, nil
	}
	p.cache[name] = b
	logging.For("kernel").WithField("kernel", name).Debugf("loaded %s", b)
	return b, nil
}

func (p *provider) LoadAll(names ...string) (map[string]Binary, error) {
	results := make([]Binary, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			b, err := p.Load(name)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]Binary, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

func (p *provider) load(name string) (Binary, error) {
	m, err := p.Manifest()
	if err != nil {
		return Binary{}, err
	}
	entry, ok := m.Entry(name)
	if !ok {
		return Binary{}, fmt.Errorf("kernel %q: %w", name, common.ErrNotFound)
	}

	spirv, err := fs.ReadFile(p.fsys, entry.SPIRV)
	if err != nil {
		return Binary{}, fmt.Errorf("failed to read SPIR-V: %w", err)
	}
	if got := checksum(spirv); got != entry.SHA256 {
		return Binary{}, fmt.Errorf("%s sha256 %s, manifest %s: %w", entry.SPIRV, got, entry.SHA256, common.ErrChecksumMismatch)
	}
	if err := checkSPIRVHeader(spirv); err != nil {
		return Binary{}, err
	}

	wgsl, err := fs.ReadFile(p.fsys, entry.WGSL)
	if err != nil {
		return Binary{}, fmt.Errorf("failed to read WGSL: %w", err)
	}
	if got := checksum(wgsl); got != entry.SourceSHA256 {
		return Binary{}, fmt.Errorf("%s sha256 %s, manifest %s: %w", entry.WGSL, got, entry.SourceSHA256, common.ErrChecksumMismatch)
	}
	if p.sourceFS != nil {
		src, err := Preprocess(p.sourceFS, name+".wgsl")
		if err != nil {
			return Binary{}, fmt.Errorf("failed to preprocess source: %w", err)
		}
		if checksum([]byte(src)) != entry.SourceSHA256 {
			return Binary{}, fmt.Errorf("kernel %q source changed since it was compiled: %w", name, common.ErrStale)
		}
	}

	refl, err := Reflect(string(wgsl))
	if err != nil {
		return Binary{}, fmt.Errorf("failed to reflect WGSL: %w", err)
	}

	b := Binary{
		Name:        name,
		Version:     entry.Version,
		WGSL:        string(wgsl),
		SPIRV:       spirv,
		Checksum:    entry.SHA256,
		EntryPoints: refl.EntryPoints,
		Bindings:    refl.Bindings,
	}
	for _, want := range p.required[name] {
		if _, ok := b.EntryPoint(want); !ok {
			return Binary{}, fmt.Errorf("kernel %q has no entry point %q", name, want)
		}
	}
	for _, e := range entry.EntryPoints {
		if _, ok := b.EntryPoint(e.Name); !ok {
			return Binary{}, fmt.Errorf("manifest lists entry point %q missing from %s", e.Name, path.Base(entry.WGSL))
		}
	}
	return b, nil
}

// checkSPIRVHeader verifies the module starts with the little-endian SPIR-V magic word.
func checkSPIRVHeader(spirv []byte) error {
	if len(spirv) < 20 || len(spirv)%4 != 0 {
		return fmt.Errorf("SPIR-V module is %d bytes, not a whole header", len(spirv))
	}
	if magic := binary.LittleEndian.Uint32(spirv[:4]); magic != SPIRVMagic {
		return fmt.Errorf("SPIR-V magic 0x%08x, want 0x%08x", magic, SPIRVMagic)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// equalBytes is used by the compiler to skip rewriting unchanged outputs.
func equalBytes(fsys fs.FS, name string, data []byte) bool {
	prev, err := fs.ReadFile(fsys, name)
	return err == nil && bytes.Equal(prev, data)
}
