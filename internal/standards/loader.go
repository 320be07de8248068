package standards

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wardenlabs/warden/internal/core/domain"
)

// LoadDirectory parses every markdown file under root, in sorted path order
// for determinism. Any malformed document aborts the whole load: a partial
// catalog with silently skipped standards is worse than no catalog.
func LoadDirectory(root string) ([]domain.StandardDocument, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("standards directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("standards directory: %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk standards directory: %w", err)
	}
	sort.Strings(paths)

	docs := make([]domain.StandardDocument, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		doc, err := ParseDocument(raw, filepath.ToSlash(path))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[doc.StandardID]; dup {
			return nil, fmt.Errorf("%w: duplicate standard_id %q in %s and %s",
				domain.ErrInvalidStandard, doc.StandardID, prev, path)
		}
		seen[doc.StandardID] = path
		docs = append(docs, *doc)
	}

	return docs, nil
}
