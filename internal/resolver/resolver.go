// Package resolver loads one schema source file together with its
// transitive imports and collects every declaration into a symbol
// table keyed by namespace.
//
// Loading is depth-first in import order and each file is parsed at
// most once, so the resulting file list is in dependency post-order:
// every import precedes its importer and the entry file comes last.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/manifold/internal/syntax"
)

// SourceExt is the file extension schema sources use.
const SourceExt = ".mux"

// DefaultNamespace applies to files that declare no namespace.
const DefaultNamespace = "api"

// LoadMode controls how errors are handled during source loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Program is a fully loaded schema: the entry file, every transitively
// imported file in dependency post-order, and the symbol table over
// all of them.
type Program struct {
	Entry     string // cleaned entry path
	EntryFile *syntax.File
	Files     []*syntax.File
	Table     *Table
}

// RootNamespace is the namespace of the entry file. Files without a
// namespace of their own join it, and emitters use it for the
// generated package and document titles.
func (p *Program) RootNamespace() string {
	if p.EntryFile == nil || p.EntryFile.Namespace == "" {
		return DefaultNamespace
	}
	return p.EntryFile.Namespace
}

// Load parses entry and everything it imports. In fail-fast mode the
// first error aborts the walk; in collect-all mode unreadable or
// unparsable files are recorded and the rest of the import graph still
// loads, so one pass can report every problem.
func Load(entry string, mode LoadMode) (*Program, []error) {
	l := &loader{
		mode:     mode,
		loaded:   map[string]*syntax.File{},
		visiting: map[string]bool{},
	}
	clean := filepath.Clean(entry)
	l.load(clean, syntax.Pos{})

	prog := &Program{Entry: clean, EntryFile: l.loaded[clean], Files: l.files}
	if mode == LoadModeFailFast && len(l.errs) > 0 {
		return prog, l.errs
	}

	table, errs := BuildTable(l.files, prog.RootNamespace(), mode)
	prog.Table = table
	l.errs = append(l.errs, errs...)
	if len(l.errs) > 0 {
		return prog, l.errs
	}
	return prog, nil
}

type loader struct {
	mode     LoadMode
	loaded   map[string]*syntax.File // nil marks a file that failed
	visiting map[string]bool
	chain    []string
	files    []*syntax.File
	errs     []error
}

func (l *loader) failed() bool {
	return l.mode == LoadModeFailFast && len(l.errs) > 0
}

// load parses one file and recurses into its imports. pos is the
// import statement that referenced path; the entry file has none.
func (l *loader) load(path string, pos syntax.Pos) {
	if l.failed() {
		return
	}
	if l.visiting[path] {
		l.errs = append(l.errs, cycleError(l.chain, path, pos))
		return
	}
	if _, done := l.loaded[path]; done {
		return
	}

	src, err := os.ReadFile(path)
	if err != nil {
		l.loaded[path] = nil
		l.errs = append(l.errs, &Error{
			Code:    CodeUnresolvedImport,
			Message: fmt.Sprintf("%v", err),
			Pos:     pos,
		})
		return
	}

	f, err := syntax.Parse(path, string(src))
	if err != nil {
		l.loaded[path] = nil
		l.errs = append(l.errs, err)
		return
	}

	l.visiting[path] = true
	l.chain = append(l.chain, path)
	for _, imp := range f.Imports {
		l.load(resolveImport(path, imp.Path), imp.Pos)
		if l.failed() {
			return
		}
	}
	l.chain = l.chain[:len(l.chain)-1]
	delete(l.visiting, path)

	l.loaded[path] = f
	l.files = append(l.files, f)
}

// resolveImport interprets an import path relative to the importing
// file's directory.
func resolveImport(from, imp string) string {
	if filepath.IsAbs(imp) {
		return filepath.Clean(imp)
	}
	return filepath.Join(filepath.Dir(from), imp)
}

func cycleError(chain []string, repeat string, pos syntax.Pos) *Error {
	start := 0
	for i, p := range chain {
		if p == repeat {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, chain[start:]...), repeat)
	return &Error{
		Code:    CodeCyclicImport,
		Message: "import cycle: " + strings.Join(cycle, " -> "),
		Pos:     pos,
		Chain:   cycle,
	}
}

// FindSourceFiles walks dir and returns every schema source under it.
func FindSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == SourceExt {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
