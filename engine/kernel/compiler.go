package kernel

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/gogpu/naga"
	"golang.org/x/sync/errgroup"
)

// CompilerName is recorded in every manifest written by Compile.
const CompilerName = "gogpu/naga"

// Compile preprocesses, reflects and cross-compiles WGSL kernels to SPIR-V and writes the artifact
// directory: one <name>.wgsl and <name>.spv per kernel plus manifest.yaml. Kernels compile
// concurrently; unchanged outputs are not rewritten.
//
// Parameters:
//   - src: the filesystem holding the kernel sources
//   - names: the kernels to build; empty builds every root-level .wgsl file that declares an entry point
//   - out: the output directory, created if missing
//
// Returns:
//   - Manifest: the manifest that was written
//   - error: the first preprocessing, reflection, compilation or write error
func Compile(src fs.FS, names []string, out string) (Manifest, error) {
	log := logging.For("kernelc")

	if len(names) == 0 {
		discovered, err := discover(src)
		if err != nil {
			return Manifest{}, err
		}
		names = discovered
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("failed to create %s: %w", out, err)
	}

	entries := make([]ManifestEntry, len(names))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		g.Go(func() error {
			e, err := compileOne(src, name, out)
			if err != nil {
				return fmt.Errorf("kernel %q: %w", name, err)
			}
			entries[i] = e
			log.WithField("kernel", name).Infof("compiled %d entry points, sha256 %s", len(e.EntryPoints), e.SHA256[:12])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Manifest{}, err
	}

	m := Manifest{Format: FormatVersion, Compiler: CompilerName, Kernels: entries}
	data, err := m.Encode()
	if err != nil {
		return Manifest{}, err
	}
	if err := writeIfChanged(out, ManifestFile, data); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func compileOne(src fs.FS, name, out string) (ManifestEntry, error) {
	wgsl, err := Preprocess(src, name+".wgsl")
	if err != nil {
		return ManifestEntry{}, err
	}
	refl, err := Reflect(wgsl)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to reflect: %w", err)
	}
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("failed to compile WGSL to SPIR-V: %w", err)
	}
	if err := checkSPIRVHeader(spirv); err != nil {
		return ManifestEntry{}, err
	}

	e := ManifestEntry{
		Name:         name,
		WGSL:         name + ".wgsl",
		SPIRV:        name + ".spv",
		SHA256:       checksum(spirv),
		SourceSHA256: checksum([]byte(wgsl)),
		EntryPoints:  refl.EntryPoints,
	}
	e.Version = e.SourceSHA256[:12]

	if err := writeIfChanged(out, e.WGSL, []byte(wgsl)); err != nil {
		return ManifestEntry{}, err
	}
	if err := writeIfChanged(out, e.SPIRV, spirv); err != nil {
		return ManifestEntry{}, err
	}
	return e, nil
}

// discover lists root-level kernel sources. Include-only files (no entry points) are skipped.
func discover(src fs.FS) ([]string, error) {
	matches, err := fs.Glob(src, "*.wgsl")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range matches {
		data, err := fs.ReadFile(src, m)
		if err != nil {
			return nil, err
		}
		if len(parseEntryPoints(stripComments(string(data)))) == 0 {
			continue
		}
		names = append(names, strings.TrimSuffix(path.Base(m), ".wgsl"))
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no kernels found")
	}
	return names, nil
}

func writeIfChanged(dir, name string, data []byte) error {
	if equalBytes(os.DirFS(dir), name, data) {
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
