package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/perbu/ragchain/pkg/index"
)

// DefaultExtension is the only file type the indexer picks up unless configured otherwise.
const DefaultExtension = ".txt"

// LoadDocuments reads every file directly under root whose name ends in ext.
// Subdirectories are not descended into and files are not split: one file
// becomes one document. Documents come back in file name order.
func LoadDocuments(fsys fs.FS, root, ext string) ([]index.Document, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", root, err)
	}

	var docs []index.Document
	for _, entry := range entries {
		// Only regular files with the wanted extension
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		docs = append(docs, index.Document{
			ID:     uuid.NewString(),
			Text:   string(content),
			Source: filepath.Join(root, entry.Name()),
		})
	}

	return docs, nil
}

// LoadDir is LoadDocuments over a directory on the local filesystem.
func LoadDir(dir, ext string) ([]index.Document, error) {
	docs, err := LoadDocuments(os.DirFS(dir), ".", ext)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Source = filepath.Join(dir, filepath.Base(docs[i].Source))
	}
	return docs, nil
}
