// Package output renders query results in grep-compatible text or
// newline-delimited JSON, per §4.8. Grounded directly on
// original_source/src/output.rs's Formatter and color.rs's
// resolve_color, re-expressed with github.com/mattn/go-isatty for TTY
// detection in place of Rust's std::io::IsTerminal.
package output

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape constants matching ripgrep conventions. Red (Match) and
// green (LineNo) land on structurally distinct elements — never two
// states of the same element — and Match also carries bold+underline
// so it stays legible without color.
const (
	Reset  = "\x1b[0m"
	File   = "\x1b[35m\x1b[1m"
	LineNo = "\x1b[32m"
	Match  = "\x1b[1m\x1b[4m\x1b[31m"
	Sep    = "\x1b[36m"
)

// ResolveColor decides whether to emit ANSI color, following the fixed
// priority chain: NO_COLOR (any value) disables; CLICOLOR_FORCE=1
// forces on; config "always"/"true" forces on, "never"/"false" forces
// off; CLICOLOR=0 disables; otherwise TTY detection on stdout decides.
func ResolveColor(configColor string) bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	clicolorForce := os.Getenv("CLICOLOR_FORCE")
	clicolor := os.Getenv("CLICOLOR")
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return resolveColorInner(noColor, clicolorForce, configColor, clicolor, isTTY)
}

func resolveColorInner(noColor bool, clicolorForce, configColor, clicolor string, isTTY bool) bool {
	if noColor {
		return false
	}
	if clicolorForce == "1" {
		return true
	}
	switch configColor {
	case "always", "true":
		return true
	case "never", "false":
		return false
	}
	if clicolor == "0" {
		return false
	}
	return isTTY
}
