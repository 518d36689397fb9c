package kernel

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
)

// includeRegex matches an include directive line: //#include "common.wgsl"
var includeRegex = regexp.MustCompile(`^\s*//#include\s+"([^"]+)"\s*$`)

// Preprocess resolves //#include "file.wgsl" directives in the named source file.
// Includes are resolved relative to the including file, recursively. Every file is inlined at most
// once; an include that is already on the inclusion stack is a cycle and fails.
//
// Parameters:
//   - fsys: the filesystem holding the kernel sources
//   - name: the path of the root source file within fsys
//
// Returns:
//   - string: the flattened WGSL source
//   - error: an error if a file is missing or the includes form a cycle
func Preprocess(fsys fs.FS, name string) (string, error) {
	p := &preprocessor{
		fsys:     fsys,
		included: make(map[string]bool),
		stack:    make(map[string]bool),
	}
	var sb strings.Builder
	if err := p.process(path.Clean(name), &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type preprocessor struct {
	fsys     fs.FS
	included map[string]bool
	stack    map[string]bool
}

func (p *preprocessor) process(name string, sb *strings.Builder) error {
	if p.stack[name] {
		return fmt.Errorf("include cycle at %q", name)
	}
	if p.included[name] {
		return nil
	}
	src, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", name, err)
	}

	p.stack[name] = true
	p.included[name] = true
	defer delete(p.stack, name)

	for i, line := range strings.Split(string(src), "\n") {
		m := includeRegex.FindStringSubmatch(line)
		if m == nil {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		target := path.Join(path.Dir(name), m[1])
		if err := p.process(target, sb); err != nil {
			return fmt.Errorf("%s:%d: %w", name, i+1, err)
		}
	}
	return nil
}
