package plate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrEmptyInput is returned when a file pattern resolves to no files.
var ErrEmptyInput = errors.New("no input files")

// ResolveFiles expands the given arguments into the sorted list of
// logical exposure base names (paths without the .inf/.img extension).
//
// A single argument is expanded with glob-style pattern matching; a bare
// base name with no matching file on disk falls back to its .inf
// sidecar. Multiple arguments are taken as an explicit file list. Known
// extensions are stripped and the result de-duplicated, so a pattern
// matching both the sidecar and the data file of an exposure still
// yields one entry per exposure.
//
// The lexical sort order of the base names is taken as the exposure
// order, lowest scanner gain first. That is a naming convention the
// caller must uphold; nothing in the files themselves is inspected to
// verify it.
func ResolveFiles(args []string) ([]string, error) {
	var files []string
	if len(args) == 1 {
		matches, err := filepath.Glob(args[0])
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", args[0], err)
		}
		if len(matches) == 0 {
			// a bare base name matches nothing; try its sidecar
			matches, _ = filepath.Glob(args[0] + ".inf")
		}
		files = matches
	} else {
		files = args
	}

	seen := make(map[string]bool)
	var bases []string
	for _, f := range files {
		base := strings.TrimSuffix(strings.TrimSuffix(f, ".img"), ".inf")
		if !seen[base] {
			seen[base] = true
			bases = append(bases, base)
		}
	}

	if len(bases) == 0 {
		if len(args) == 1 {
			return nil, fmt.Errorf("%w: pattern %q matched nothing", ErrEmptyInput, args[0])
		}
		return nil, ErrEmptyInput
	}

	sort.Strings(bases)
	return bases, nil
}
