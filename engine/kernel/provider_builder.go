package kernel

import "io/fs"

// ProviderBuilderOption is a functional option applied to a provider during construction via NewProvider.
type ProviderBuilderOption func(*provider)

// WithFS reads the artifact from fsys instead of the directory on disk.
//
// Parameters:
//   - fsys: the filesystem holding manifest.yaml and the kernel files at its root
//
// Returns:
//   - ProviderBuilderOption: a function that applies the filesystem option to a provider
func WithFS(fsys fs.FS) ProviderBuilderOption {
	return func(p *provider) {
		p.fsys = fsys
	}
}

// WithSourceFS enables the staleness check: every loaded kernel's source is preprocessed from fsys
// and its checksum compared against the one recorded when the artifact was compiled.
//
// Parameters:
//   - fsys: the filesystem holding the WGSL sources
//
// Returns:
//   - ProviderBuilderOption: a function that applies the source filesystem option to a provider
func WithSourceFS(fsys fs.FS) ProviderBuilderOption {
	return func(p *provider) {
		p.sourceFS = fsys
	}
}

// WithFormatVersion sets the manifest format the provider accepts.
func WithFormatVersion(version int) ProviderBuilderOption {
	return func(p *provider) {
		p.format = version
	}
}

// WithRequiredEntryPoints makes Load fail unless the named kernel declares every listed entry point.
//
// Parameters:
//   - name: the kernel name
//   - entries: the entry point names the caller will bind
//
// Returns:
//   - ProviderBuilderOption: a function that registers the requirement on a provider
func WithRequiredEntryPoints(name string, entries ...string) ProviderBuilderOption {
	return func(p *provider) {
		p.required[name] = append(p.required[name], entries...)
	}
}
