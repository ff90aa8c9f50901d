// Package files implements `wonk file`: read a file (optionally a
// line range) straight off disk rather than through the index, for
// the case where an agent already knows the path and just wants the
// bytes — no query, no ranking, no index required.
package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"wonk/internal/wonkerr"
)

// Result is the output of a file read.
type Result struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// maxLineBuffer bounds a single scanned line; anything longer than this
// is almost certainly a minified asset, not source an agent wants read
// line-by-line.
const maxLineBuffer = 1024 * 1024

// GetFile reads path, optionally sliced to [startLine, endLine]
// (1-indexed, inclusive). A startLine or endLine of 0 means "from the
// beginning" / "to the end" respectively.
func GetFile(path string, startLine, endLine int) (*Result, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, wonkerr.Wrap(wonkerr.IoError, "resolving path", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wonkerr.New(wonkerr.IoError, "file not found: "+path)
		}
		return nil, wonkerr.Wrap(wonkerr.IoError, "accessing file", err)
	}
	if info.IsDir() {
		return nil, wonkerr.New(wonkerr.IoError, "path is a directory: "+path)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, wonkerr.Wrap(wonkerr.IoError, "opening file", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, maxLineBuffer), maxLineBuffer)

	var lines []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if startLine > 0 && lineNum < startLine {
			continue
		}
		if endLine > 0 && lineNum > endLine {
			break
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, wonkerr.Wrap(wonkerr.IoError, "reading file", err)
	}

	if startLine > 0 && lineNum < startLine {
		return nil, wonkerr.New(wonkerr.UsageError,
			"start line is beyond end of file")
	}

	return &Result{
		Path:    path,
		Content: strings.Join(lines, "\n"),
	}, nil
}
