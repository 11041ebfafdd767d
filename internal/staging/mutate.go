package staging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ApplyAppend concatenates addition after base, inserting one newline
// separator when base is non-empty and does not already end in one.
func ApplyAppend(base, addition []byte) []byte {
	if len(base) == 0 {
		return addition
	}
	if base[len(base)-1] != '\n' {
		return append(append(append([]byte{}, base...), '\n'), addition...)
	}
	return append(append([]byte{}, base...), addition...)
}

// shebangOrEncoding reports whether line is a POSIX shebang or a PEP 263
// style source encoding declaration, the two line kinds ApplyPrepend must
// not insert ahead of.
func shebangOrEncoding(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#!") {
		return true
	}
	if strings.HasPrefix(trimmed, "#") && strings.Contains(trimmed, "coding") &&
		(strings.Contains(trimmed, ":") || strings.Contains(trimmed, "=")) {
		return true
	}
	return false
}

// ApplyPrepend inserts addition before the first line of base that is
// neither a shebang nor an encoding declaration, so generated scripts keep
// their interpreter line first.
func ApplyPrepend(base, addition []byte) []byte {
	if len(base) == 0 {
		return addition
	}
	lines := strings.SplitAfter(string(base), "\n")
	insertAt := 0
	for insertAt < len(lines) && shebangOrEncoding(lines[insertAt]) {
		insertAt++
	}
	var out strings.Builder
	out.WriteString(strings.Join(lines[:insertAt], ""))
	out.Write(addition)
	if !strings.HasSuffix(string(addition), "\n") {
		out.WriteByte('\n')
	}
	out.WriteString(strings.Join(lines[insertAt:], ""))
	return []byte(out.String())
}

// ApplySubtract removes spec's matches from base. spec is either a
// "literal:text" token (exact substring removal) or, otherwise, a regular
// expression whose matches are all deleted.
func ApplySubtract(base []byte, spec string) ([]byte, error) {
	if literal, ok := strings.CutPrefix(spec, "literal:"); ok {
		return bytes.ReplaceAll(base, []byte(literal), nil), nil
	}
	re, err := regexp.Compile(spec)
	if err != nil {
		return nil, fmt.Errorf("subtract pattern %q: %w", spec, err)
	}
	return re.ReplaceAll(base, nil), nil
}

// splitBrainSeparator marks a Transfigure spec as pattern-on-header,
// replacement-in-block: the header line (item.Path's mutation token line)
// holds the pattern, and the content block below it holds the replacement.
const splitBrainSeparator = "\n---\n"

// ApplyTransfigure rewrites base per spec, which takes one of three forms:
//   - "s/find/replace/flags": sed-style substitution; flags may contain "g"
//     (replace all, the default is first match only) and "i" (case-fold
//     the pattern).
//   - "literal:text": base is replaced wholesale by text.
//   - "pattern\n---\nreplacement": split-brain form, equivalent to
//     "s/pattern/replacement/g" but spread across the header/content split
//     a blueprint line uses for a multi-line replacement body.
func ApplyTransfigure(base []byte, spec string) ([]byte, error) {
	if literal, ok := strings.CutPrefix(spec, "literal:"); ok {
		return []byte(literal), nil
	}
	if pattern, replacement, ok := strings.Cut(spec, splitBrainSeparator); ok {
		return regexReplace(base, pattern, replacement, true, false)
	}
	if strings.HasPrefix(spec, "s/") || strings.HasPrefix(spec, "s|") {
		sep := spec[1]
		parts := strings.SplitN(spec[2:], string(sep), 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed sed expression %q", spec)
		}
		find, replace, flags := parts[0], parts[1], parts[2]
		return regexReplace(base, find, replace, strings.Contains(flags, "g"), strings.Contains(flags, "i"))
	}
	return nil, fmt.Errorf("unrecognized transfigure spec %q", spec)
}

func regexReplace(base []byte, pattern, replacement string, global, caseFold bool) ([]byte, error) {
	if caseFold {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("transfigure pattern %q: %w", pattern, err)
	}
	if global {
		return re.ReplaceAll(base, []byte(replacement)), nil
	}
	loc := re.FindSubmatchIndex(base)
	if loc == nil {
		return base, nil
	}
	expanded := re.Expand(nil, []byte(replacement), base, loc)
	var out []byte
	out = append(out, base[:loc[0]]...)
	out = append(out, expanded...)
	out = append(out, base[loc[1]:]...)
	return out, nil
}

// DeepMergeStructured merges addition into base for a structured target
// file (.json/.yaml/.yml/.toml), keyed by path's extension. Maps merge
// key-by-key recursively; any other value in addition overwrites base's.
func DeepMergeStructured(path string, base, addition []byte) ([]byte, error) {
	switch ext := lowerExt(path); ext {
	case ".json":
		return mergeJSON(base, addition)
	case ".yaml", ".yml":
		return mergeYAML(base, addition)
	case ".toml":
		return mergeTOML(base, addition)
	default:
		return nil, fmt.Errorf("%q is not a structured-merge extension", path)
	}
}

func lowerExt(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

func mergeJSON(base, addition []byte) ([]byte, error) {
	dst, err := decodeJSONMap(base)
	if err != nil {
		return nil, err
	}
	src, err := decodeJSONMap(addition)
	if err != nil {
		return nil, err
	}
	merged := deepMergeMap(dst, src)
	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func decodeJSONMap(data []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("append merge: %w", err)
	}
	return m, nil
}

func mergeYAML(base, addition []byte) ([]byte, error) {
	dst, err := decodeYAMLMap(base)
	if err != nil {
		return nil, err
	}
	src, err := decodeYAMLMap(addition)
	if err != nil {
		return nil, err
	}
	merged := deepMergeMap(dst, src)
	return yaml.Marshal(merged)
}

func decodeYAMLMap(data []byte) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]interface{}{}, nil
	}
	m := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("append merge: %w", err)
	}
	return normalizeYAMLKeys(m), nil
}

// normalizeYAMLKeys rewrites any map[interface{}]interface{} nested value
// yaml.v3 may still hand back into map[string]interface{}, so deepMergeMap
// can assume a single map shape throughout.
func normalizeYAMLKeys(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	m, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for k, val := range m {
		out[k] = normalizeYAMLValue(val)
	}
	return out
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return normalizeYAMLKeys(t)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLValue(val)
		}
		return out
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeYAMLValue(e)
		}
		return t
	default:
		return v
	}
}

func mergeTOML(base, addition []byte) ([]byte, error) {
	dst := map[string]interface{}{}
	if len(bytes.TrimSpace(base)) > 0 {
		if _, err := toml.Decode(string(base), &dst); err != nil {
			return nil, fmt.Errorf("append merge: %w", err)
		}
	}
	src := map[string]interface{}{}
	if len(bytes.TrimSpace(addition)) > 0 {
		if _, err := toml.Decode(string(addition), &src); err != nil {
			return nil, fmt.Errorf("append merge: %w", err)
		}
	}
	merged := deepMergeMap(dst, src)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(merged); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deepMergeMap(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if existing, ok := out[k]; ok {
			if existingMap, ok1 := existing.(map[string]interface{}); ok1 {
				if srcMap, ok2 := v.(map[string]interface{}); ok2 {
					out[k] = deepMergeMap(existingMap, srcMap)
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}
