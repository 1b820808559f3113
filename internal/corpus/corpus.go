// Package corpus turns CLI path arguments into the ordered document
// list an indexing run works over.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
)

// Document is one input file. ID is the document's ordinal position in
// the fully expanded input list and identifies it in the index.
type Document struct {
	ID   int
	Path string
}

// Expand resolves each argument: directories contribute their immediate
// child files (sorted by name), plain files contribute themselves. A
// path that does not exist fails the whole expansion, before any
// indexing work starts.
func Expand(args []string) ([]Document, error) {
	var docs []Document
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		if !info.IsDir() {
			docs = append(docs, Document{ID: len(docs), Path: arg})
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			docs = append(docs, Document{ID: len(docs), Path: filepath.Join(arg, entry.Name())})
		}
	}
	return docs, nil
}
