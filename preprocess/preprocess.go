// Package preprocess resolves textual #include directives in smartBASIC
// source before it is handed to a compiler.
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Marker is the directive keyword. Some compilers reject the literal text
// anywhere in a source file, so expansion strips leftovers of it.
const Marker = "#include"

// A directive is a line consisting solely of the marker and a quoted
// relative path.
var directivePattern = regexp.MustCompile(`(?m)^#include\s+"(.*)"$`)

// MissingIncludeError reports a directive whose target does not exist. The
// original document is never partially rewritten when this happens.
type MissingIncludeError struct {
	Path string
}

func (e *MissingIncludeError) Error() string {
	return fmt.Sprintf("included file %s does not exist", e.Path)
}

// Expand resolves every include directive in doc, with relative paths
// anchored at dir. A document with no directives is returned byte-identical.
//
// Expansion works on the first directive only, splices the fully expanded
// target in its place, then reprocesses the entire result from scratch.
// Each recursive call finds just one directive, but the reprocess step
// guarantees every remaining one, including any introduced by the splice,
// is eventually resolved. The final result carries no directive and no
// leftover marker text.
func Expand(doc, dir string) (string, error) {
	loc := directivePattern.FindStringSubmatchIndex(doc)
	if loc == nil {
		return doc, nil
	}

	path := filepath.Join(dir, doc[loc[2]:loc[3]])
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &MissingIncludeError{Path: path}
		}
		return "", fmt.Errorf("read include %s: %w", path, err)
	}

	// The included file resolves its own directives relative to itself.
	inner, err := Expand(string(data), filepath.Dir(path))
	if err != nil {
		return "", err
	}
	doc = doc[:loc[0]] + "\n" + inner + "\n" + doc[loc[1]:]

	doc, err = Expand(doc, dir)
	if err != nil {
		return "", err
	}

	// The online compiler doesn't allow the marker string anywhere.
	// UwTerminalX does this replace too.
	return strings.ReplaceAll(doc, Marker, ""), nil
}
