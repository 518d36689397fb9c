// Package kernels holds the WGSL sources of every GPU kernel. The build directory is produced by
// cmd/kernelc and read at runtime through kernel.Provider.
package kernels

import "embed"

//go:generate go run ../cmd/kernelc build --src . --out build

// Source is the kernel source tree, for stale-artifact checks and rebuilds.
//
//go:embed *.wgsl
var Source embed.FS

// Names lists the kernels the application loads.
var Names = []string{"bodies", "discs", "trails", "overlay"}
