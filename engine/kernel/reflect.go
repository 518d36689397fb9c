package kernel

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entryRegex captures the attribute run in front of a function and the function name,
	// e.g. "@compute @workgroup_size(64) fn cs_main".
	entryRegex = regexp.MustCompile(`((?:@\w+(?:\([^)]*\))?\s*)+)fn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: Camera;
	// or handle types: @group(1) @binding(0) var atlas: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Reflection is the interface of a WGSL module as seen by the pipeline builder.
type Reflection struct {
	EntryPoints []EntryPoint
	Bindings    []Binding
	// StructSizes maps every struct whose layout could be resolved to its host-shareable byte size.
	StructSizes map[string]uint64
}

// Reflect extracts entry points, workgroup sizes and resource bindings from preprocessed WGSL source.
//
// Parameters:
//   - source: the WGSL source with all includes resolved
//
// Returns:
//   - Reflection: the reflected module interface
//   - error: an error if the module declares no entry point or a binding slot twice
func Reflect(source string) (Reflection, error) {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)
	layouts := computeStructSizes(structs)

	r := Reflection{
		EntryPoints: parseEntryPoints(cleaned),
		StructSizes: make(map[string]uint64, len(layouts)),
	}
	for name, l := range layouts {
		r.StructSizes[name] = l.size
	}
	if len(r.EntryPoints) == 0 {
		return Reflection{}, errors.New("module declares no entry points")
	}

	bindings, err := parseBindings(cleaned, layouts)
	if err != nil {
		return Reflection{}, err
	}
	r.Bindings = bindings
	return r, nil
}

// parseEntryPoints finds every @vertex, @fragment and @compute function in source order.
func parseEntryPoints(cleaned string) []EntryPoint {
	var entries []EntryPoint
	for _, m := range entryRegex.FindAllStringSubmatch(cleaned, -1) {
		attrs, name := m[1], m[2]
		var e EntryPoint
		switch {
		case strings.Contains(attrs, "@vertex"):
			e = EntryPoint{Name: name, Stage: StageVertex}
		case strings.Contains(attrs, "@fragment"):
			e = EntryPoint{Name: name, Stage: StageFragment}
		case strings.Contains(attrs, "@compute"):
			e = EntryPoint{Name: name, Stage: StageCompute, WorkgroupSize: parseWorkgroupSize(attrs)}
		default:
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from an attribute run.
// Omitted dimensions default to 1; a missing annotation yields [1, 1, 1].
//
// Parameters:
//   - attrs: the attribute text in front of a compute entry point
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(attrs string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(attrs)
	if match == nil {
		return result
	}
	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseBindings extracts all @group(N) @binding(M) declarations sorted by group then binding.
func parseBindings(cleaned string, layouts map[string]typeLayout) ([]Binding, error) {
	var bindings []Binding
	seen := make(map[[2]uint32]string)

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.ParseUint(match[1], 10, 32)
		binding, _ := strconv.ParseUint(match[2], 10, 32)
		addressSpace := strings.TrimSpace(match[3])
		name := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		slot := [2]uint32{uint32(group), uint32(binding)}
		if prev, ok := seen[slot]; ok {
			return nil, fmt.Errorf("@group(%d) @binding(%d) declared by both %q and %q", group, binding, prev, name)
		}
		seen[slot] = name

		b := Binding{
			Group:   uint32(group),
			Binding: uint32(binding),
			Name:    name,
			Type:    typeName,
			Kind:    classifyResource(addressSpace, typeName),
		}
		if b.Kind == BindingUniform || b.Kind == BindingStorage || b.Kind == BindingReadOnlyStorage {
			if l, ok := resolveTypeLayout(typeName, layouts); ok {
				b.MinSize = l.size
			}
		}
		bindings = append(bindings, b)
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings, nil
}

// classifyResource determines the binding kind from the address space qualifier and type name.
//
// Parameters:
//   - addressSpace: the qualifier inside var<...> (e.g. "uniform", "storage, read_write"), empty for handle types
//   - typeName: the WGSL type string (e.g. "Camera", "texture_2d<f32>", "sampler")
//
// Returns:
//   - BindingKind: the resource category
func classifyResource(addressSpace, typeName string) BindingKind {
	switch {
	case addressSpace == "uniform":
		return BindingUniform
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.Contains(addressSpace, "read_write") {
			return BindingStorage
		}
		return BindingReadOnlyStorage
	case addressSpace != "":
		return BindingUnknown
	case typeName == "sampler" || typeName == "sampler_comparison":
		return BindingSampler
	case strings.HasPrefix(typeName, "texture_"):
		return BindingTexture
	}
	return BindingUnknown
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into fields, flagging @builtin ones.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		fields = append(fields, parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			isBuiltin: builtinRegex.MatchString(line),
		})
	}
	return fields
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets,
// so array<Body, 6> stays one field.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes both line (//) and nested block (/* */) comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}
