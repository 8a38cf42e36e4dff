// Package loader reads a product's Markdown documentation tree into memory,
// sanitizing Word-export HTML and deriving per-document metadata from the
// directory layout.
package loader

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// readParallelism bounds concurrent file reads.
const readParallelism = 8

// Document is one loaded documentation file.
type Document struct {
	// ID is the relative path with separators flattened to underscores
	// and the extension dropped, e.g. "apis_classes_workbook".
	ID      string
	Content string

	RelativePath string
	// FileName is the base name without extension.
	FileName string
	// Category derives from the first path component: apis→api, docs→doc,
	// demos→demo; anything else maps to itself lowercased.
	Category string
	// PathHierarchy is the directory components of the relative path,
	// excluding the file name.
	PathHierarchy []string
}

// categoryMap translates top-level directory names into categories.
var categoryMap = map[string]string{
	"apis":  "api",
	"docs":  "doc",
	"demos": "demo",
}

// extensions lists the file types picked up by the walk.
var extensions = []string{".md", ".java"}

// Loader enumerates and reads documents under a base directory.
type Loader struct {
	baseDir string
	logger  *slog.Logger
}

// New creates a loader rooted at baseDir. The directory must exist.
func New(baseDir string, logger *slog.Logger) (*Loader, error) {
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return nil, errors.NewConfigErrorf("document directory %q not found", baseDir)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{baseDir: baseDir, logger: logger}, nil
}

// LoadAll reads every matching file under the given subdirectories of the
// base (or the whole base when subdirs is empty). Files are read in
// parallel but returned in walk order, so the document sequence is stable
// across runs. Unreadable and empty files are skipped with a warning.
func (l *Loader) LoadAll(ctx context.Context, subdirs []string) ([]Document, error) {
	paths, err := l.enumerate(subdirs)
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readParallelism)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := l.loadFile(path)
			if err != nil {
				l.logger.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			out = append(out, *doc)
		}
	}
	l.logger.Info("documents loaded", "dir", l.baseDir, "count", len(out))
	return out, nil
}

// enumerate walks the search roots in order and collects matching paths.
func (l *Loader) enumerate(subdirs []string) ([]string, error) {
	var roots []string
	if len(subdirs) == 0 {
		roots = []string{l.baseDir}
	} else {
		for _, sub := range subdirs {
			dir := filepath.Join(l.baseDir, sub)
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				roots = append(roots, dir)
			}
		}
	}

	var paths []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			for _, want := range extensions {
				if ext == want {
					paths = append(paths, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, errors.NewIngestionError("walk "+root, err)
		}
	}
	return paths, nil
}

// loadFile reads and sanitizes one file. Returns (nil, nil) for files that
// are empty after trimming.
func (l *Loader) loadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	rel, err := filepath.Rel(l.baseDir, path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")

	doc := &Document{
		Content:       Sanitize(string(raw)),
		RelativePath:  rel,
		FileName:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		PathHierarchy: parts[:len(parts)-1],
	}

	top := strings.ToLower(parts[0])
	if mapped, ok := categoryMap[top]; ok {
		doc.Category = mapped
	} else {
		doc.Category = top
	}

	id := strings.ReplaceAll(rel, "/", "_")
	for _, ext := range extensions {
		id = strings.TrimSuffix(id, ext)
	}
	doc.ID = id

	return doc, nil
}
