package golang

import (
	"golang.org/x/tools/imports"
)

// Format runs gofmt on src and fixes its import block. filename is only used
// to resolve imports relative to the destination and may be empty.
func Format(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: false,
	})
}
