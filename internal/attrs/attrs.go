// Package attrs implements the attribute manager (spec.md §4.4): the
// repository-committed file associating tracked paths with this tool's
// filter and diff driver. Matching is always exact-token, never substring
// (spec.md §4.4, §8 property 6) — a path must match the first
// whitespace-separated field of a line, not merely appear within it.
//
// Parsing follows the teacher's line-oriented idiom (cmd/age/parse.go:
// bufio.Scanner over the file, every line kept, blank ones included, so a
// rewrite preserves content this package does not manage) rather than a structured
// format, since the host VCS attribute file has no richer grammar to
// respect.
package attrs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the attribute file's path relative to the repository root.
const FileName = ".gitattributes"

const directive = "filter=seekgits diff=seekgits"

// Manager binds attribute-file operations to one repository root
// (spec.md §9, "make the repository root an explicit parameter").
type Manager struct {
	root string
}

// NewManager returns a Manager rooted at root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

func (m *Manager) path() string {
	return filepath.Join(m.root, FileName)
}

func (m *Manager) readLines() ([]string, error) {
	data, err := os.ReadFile(m.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("seekgits: reading %s: %w", FileName, err)
	}
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("seekgits: scanning %s: %w", FileName, err)
	}
	return lines, nil
}

func (m *Manager) writeLines(lines []string) error {
	if len(lines) == 0 {
		err := os.Remove(m.path())
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("seekgits: removing empty %s: %w", FileName, err)
		}
		return nil
	}
	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(m.path(), []byte(content), 0o644)
}

// firstToken returns the first whitespace-separated field of line, the
// path an attribute line applies to.
func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// HasFilter reports whether path has an exact attribute line — substring
// matching is explicitly forbidden (spec.md §4.4, §8 property 6): a line
// for "prefix/x" must never match path "x".
func (m *Manager) HasFilter(path string) (bool, error) {
	lines, err := m.readLines()
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if firstToken(line) == path && strings.Contains(line, "filter=seekgits") {
			return true, nil
		}
	}
	return false, nil
}

// AddFilter idempotently appends path's attribute line, preserving
// existing content and ensuring the file ends with a newline
// (spec.md §4.4).
func (m *Manager) AddFilter(path string) error {
	has, err := m.HasFilter(path)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	lines, err := m.readLines()
	if err != nil {
		return err
	}
	lines = append(lines, fmt.Sprintf("%s %s", path, directive))
	return m.writeLines(lines)
}

// RemoveFilter removes any line whose first token equals path and which
// contains "filter=seekgits". If the resulting file would be empty, it is
// removed from disk (spec.md §4.4).
func (m *Manager) RemoveFilter(path string) error {
	lines, err := m.readLines()
	if err != nil {
		return err
	}
	kept := lines[:0:0]
	for _, line := range lines {
		if firstToken(line) == path && strings.Contains(line, "filter=seekgits") {
			continue
		}
		kept = append(kept, line)
	}
	return m.writeLines(kept)
}

// ListFiltered returns the paths of every line containing
// "filter=seekgits" (spec.md §4.4).
func (m *Manager) ListFiltered() ([]string, error) {
	lines, err := m.readLines()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range lines {
		if strings.Contains(line, "filter=seekgits") {
			paths = append(paths, firstToken(line))
		}
	}
	return paths, nil
}
