package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves upload arguments to file paths. Glob arguments (with **
// support) and directories are expanded to the files of a supported kind
// they contain. Other paths pass through unchanged so that Load reports a
// bad one. The result is de-duplicated and sorted within each argument.
func Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		clean := filepath.Clean(p)
		if !seen[clean] {
			seen[clean] = true
			out = append(out, clean)
		}
	}

	for _, arg := range args {
		pattern := arg
		switch {
		case isDir(arg):
			pattern = filepath.Join(arg, "**", "*")
		case !hasMeta(filepath.ToSlash(arg)):
			add(arg)
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := KindOf(m); ok {
				add(m)
			}
		}
	}
	return out, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
