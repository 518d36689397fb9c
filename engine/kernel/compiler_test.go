package kernel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDouble = `//#include "common.wgsl"
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(64)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2.0;
}
`

func TestCompile(t *testing.T) {
	src := fstest.MapFS{
		"common.wgsl": {Data: []byte("const SCALE: f32 = 2.0;\n")},
		"double.wgsl": {Data: []byte(testDouble)},
	}
	out := t.TempDir()

	m, err := Compile(src, nil, out)
	if err != nil && strings.Contains(err.Error(), "compile WGSL to SPIR-V") {
		t.Skipf("naga cannot compile the test kernel: %v", err)
	}
	require.NoError(t, err)

	require.Equal(t, []string{"double"}, m.Names())
	assert.Equal(t, FormatVersion, m.Format)

	p := NewProvider(out, WithSourceFS(src), WithRequiredEntryPoints("double", "cs_main"))
	b, err := p.Load("double")
	require.NoError(t, err)
	assert.Equal(t, m.Kernels[0].SHA256, b.Checksum)

	info, err := os.Stat(filepath.Join(out, ManifestFile))
	require.NoError(t, err)

	// a second build with unchanged sources leaves the outputs untouched
	_, err = Compile(src, []string{"double"}, out)
	require.NoError(t, err)
	again, err := os.Stat(filepath.Join(out, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(fstest.MapFS{"common.wgsl": {Data: []byte("struct A { x: f32, }")}}, nil, t.TempDir())
	assert.ErrorContains(t, err, "no kernels found")

	_, err = Compile(fstest.MapFS{}, []string{"missing"}, t.TempDir())
	assert.ErrorContains(t, err, "missing")
}
