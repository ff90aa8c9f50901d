package router

import (
	"regexp"

	"wonk/internal/wonktype"
)

// symbolGrepPattern builds the regex used by the `sym` text-scanner
// fallback, covering the definition keywords across Wonk's supported
// languages, per §4.6's non-exhaustive example list.
func symbolGrepPattern(name string, kind wonktype.SymbolKind) string {
	keywords := kindKeywords(kind)
	return `(` + keywords + `)\s+` + regexp.QuoteMeta(name) + `\b`
}

func kindKeywords(kind wonktype.SymbolKind) string {
	switch kind {
	case wonktype.KindFunction, wonktype.KindMethod:
		return `fn|pub\s+fn|def|function|func`
	case wonktype.KindClass:
		return `class`
	case wonktype.KindStruct:
		return `struct`
	case wonktype.KindInterface:
		return `interface`
	case wonktype.KindEnum:
		return `enum`
	case wonktype.KindTrait:
		return `trait`
	case wonktype.KindTypeAlias:
		return `type`
	case wonktype.KindConstant:
		return `const`
	case wonktype.KindVariable:
		return `let|var|val`
	case wonktype.KindModule:
		return `module|mod`
	default:
		return `fn|pub\s+fn|def|function|func|class|struct|enum|trait|interface|type|const|let|var|val|module`
	}
}

// importGrepPattern matches import/require/use/include statements
// mentioning name, used by the rdeps fallback.
func importGrepPattern(name string) string {
	return `(import|from|require|use|include)\s+.*` + regexp.QuoteMeta(name)
}
