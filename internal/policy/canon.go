package policy

import (
	"path/filepath"
	"strings"
)

// canonicalize resolves `.`/`..` segments and symlinks of an absolute path.
// It mirrors spec §4.1's canonicalization rule exactly: resolve dots,
// resolve symlinks to their targets, then the caller checks prefix
// containment using path-component equality. A relative path is only
// cleaned and stays relative, so Validate's absolute-path check rejects it.
//
// evalSymlinks is injected so tests can simulate symlink targets without
// touching the real filesystem.
func canonicalize(path string, evalSymlinks func(string) (string, error)) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(abs)
	resolved, err := evalSymlinks(clean)
	if err != nil {
		// Path doesn't exist yet (e.g. an artifacts dir to be created) —
		// that's fine, canonicalize the clean absolute form and let
		// containment checks run against it.
		return clean, nil
	}
	return filepath.Clean(resolved), nil
}

// isPrefixPath reports whether root is a path-component prefix of path —
// never a raw string prefix, so "/home/alice2" does not satisfy root
// "/home/alice".
func isPrefixPath(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	rootParts := splitPath(root)
	pathParts := splitPath(path)
	if len(pathParts) < len(rootParts) {
		return false
	}
	for i, p := range rootParts {
		if pathParts[i] != p {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = filepath.Clean(p)
	if p == string(filepath.Separator) {
		return []string{""}
	}
	parts := strings.Split(p, string(filepath.Separator))
	return parts
}

// isForbiddenRoot reports whether path resolves to filesystem root, the
// user's home directory, or one of the host's known system root prefixes.
func isForbiddenRoot(path string, host HostInfo) bool {
	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) {
		return true
	}
	if host.Home != "" && clean == filepath.Clean(host.Home) {
		return true
	}
	for _, root := range host.SystemRoots {
		if clean == filepath.Clean(root) {
			return true
		}
	}
	return false
}

// containsMetacharacter reports whether s contains a byte the sandbox
// profile DSL treats specially when quoting string literals (spec §4.1,
// §8 scenario 5): double-quote, parens, newline, CR, or NUL.
func containsMetacharacter(s string) bool {
	return strings.ContainsAny(s, "\"()\n\r\x00")
}
