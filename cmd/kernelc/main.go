// Command kernelc compiles the WGSL kernels into the artifact directory read by the space command.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
