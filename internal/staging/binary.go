package staging

import "strings"

// knownBinaryExtensions names seed-file extensions the Stage phase copies
// byte-for-byte and never hands to the Alchemist for transmutation.
var knownBinaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".webp": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".woff": {}, ".woff2": {},
	".ttf": {}, ".otf": {}, ".so": {}, ".dylib": {}, ".dll": {}, ".bin": {},
	".wasm": {}, ".jar": {}, ".class": {},
}

// IsKnownBinary reports whether path's extension marks it as binary, so a
// seed copy should skip Alchemist transmutation entirely.
func IsKnownBinary(path string) bool {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return false
	}
	_, ok := knownBinaryExtensions[strings.ToLower(path[idx:])]
	return ok
}

// structuredExtensions names target-file suffixes whose Append mutation
// deep-merges rather than concatenating text.
var structuredExtensions = map[string]struct{}{
	".json": {}, ".yaml": {}, ".yml": {}, ".toml": {},
}

// IsStructured reports whether path's extension takes the deep-merge Append
// path instead of plain text concatenation.
func IsStructured(path string) bool {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return false
	}
	_, ok := structuredExtensions[strings.ToLower(path[idx:])]
	return ok
}
