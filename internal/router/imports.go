package router

import (
	"path"
	"strings"
)

// ResolveImports converts fromFile's raw import strings to
// repo-relative file paths using language-specific rules, per §4.6.
// Imports that can't be resolved to a file in this pass are dropped —
// they remain in the stored blob for grep fallback, but the caller
// wants only structural hits here.
func ResolveImports(fromFile string, raw []string) []string {
	lang := languageFromExt(path.Ext(fromFile))
	dir := path.Dir(fromFile)

	var resolved []string
	for _, imp := range raw {
		if target := resolveOne(lang, dir, imp); target != "" {
			resolved = append(resolved, target)
		}
	}
	return resolved
}

func languageFromExt(ext string) string {
	switch ext {
	case ".go":
		return "go"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".py":
		return "python"
	case ".rb":
		return "ruby"
	case ".java":
		return "java"
	case ".php":
		return "php"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".rs":
		return "rust"
	default:
		return ""
	}
}

// resolveOne resolves a single import string to a repo-relative path,
// or "" if it can't be resolved without filesystem access (e.g. a
// third-party package name).
func resolveOne(lang, fromDir, imp string) string {
	switch lang {
	case "javascript", "typescript":
		return resolveRelative(fromDir, imp)
	case "python":
		return resolveDotted(imp)
	case "ruby":
		return resolveRelative(fromDir, imp)
	default:
		// Module systems like Go's import path, Java's package path,
		// and C/C++'s #include are resolved against compiler search
		// paths Wonk doesn't model; leave unresolved for the grep
		// fallback rather than guess.
		return ""
	}
}

// resolveRelative resolves a "./foo"/"../foo" style import relative to
// fromDir. Non-relative specifiers (bare package names) return "".
func resolveRelative(fromDir, imp string) string {
	if !strings.HasPrefix(imp, "./") && !strings.HasPrefix(imp, "../") {
		return ""
	}
	joined := path.Join(fromDir, imp)
	return strings.TrimPrefix(joined, "/")
}

// resolveDotted resolves a Python "a.b.c" module path to "a/b/c" — the
// caller still needs to check for a matching file (with .py or
// /__init__.py) at query time, which the deps router does by treating
// this as a best-effort structural hit when imports_blob already
// stored a resolvable path.
func resolveDotted(imp string) string {
	if strings.HasPrefix(imp, ".") {
		return "" // relative imports (from . import x) need package context this layer doesn't have
	}
	return strings.ReplaceAll(imp, ".", "/")
}
