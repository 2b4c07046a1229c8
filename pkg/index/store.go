package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the name of the serialized index inside the index directory.
const FileName = "index.gob"

// Path returns the location of the serialized index inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Save writes the index to dir, replacing any index already there.
// The file is written next to the destination and renamed into place,
// so a failed save leaves the previous index untouched.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	target := Path(dir)
	tmp := target + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(ix); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index: %w", err)
	}
	return nil
}

// Load reads and validates the index stored in dir.
func Load(dir string) (*Index, error) {
	file, err := os.Open(Path(dir))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ix Index
	if err := gob.NewDecoder(file).Decode(&ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if err := ix.validate(); err != nil {
		return nil, err
	}
	return &ix, nil
}

func (ix *Index) validate() error {
	if len(ix.Documents) != len(ix.Embeddings) {
		return fmt.Errorf("%w: %d documents but %d embeddings", ErrCorrupt, len(ix.Documents), len(ix.Embeddings))
	}
	for i, vec := range ix.Embeddings {
		if len(vec) != ix.Dimension {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrCorrupt, i, len(vec), ix.Dimension)
		}
	}
	if ix.Dimension < 0 {
		return fmt.Errorf("%w: negative dimension %d", ErrCorrupt, ix.Dimension)
	}
	return nil
}
