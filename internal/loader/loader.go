// Package loader reads documents from disk and splits them into pages.
package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// PageBreak separates pages in plain-text documents.
const PageBreak = "\f"

var supported = map[string]bool{".txt": true, ".md": true, ".pdf": true}

// Supported reports whether path has an extension the loader can read.
func Supported(path string) bool {
	return supported[strings.ToLower(filepath.Ext(path))]
}

type Loader struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load expands globs and directories, then reads every supported file once, in
// lexical order per argument. ErrEmptyCorpus is returned when nothing matched.
func (l *Loader) Load(ctx context.Context, paths []string) ([]domain.Document, error) {
	files, err := l.expand(paths)
	if err != nil {
		return nil, err
	}

	documents := make([]domain.Document, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages, err := readPages(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		l.logger.Debug("document loaded", zap.String("path", f), zap.Int("pages", len(pages)))
		documents = append(documents, domain.Document{ID: hashString(f), Path: f, Pages: pages})
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no .txt, .md or .pdf files in %v", domain.ErrEmptyCorpus, paths)
	}
	return documents, nil
}

func (l *Loader) expand(paths []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				if Supported(m) {
					add(m)
				} else {
					l.logger.Warn("skipping unsupported file", zap.String("path", m))
				}
				continue
			}
			var found []string
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && Supported(path) {
					found = append(found, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			slices.Sort(found)
			for _, f := range found {
				add(f)
			}
		}
	}
	return out, nil
}

func readPages(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), PageBreak), nil
}

// readPDF returns one entry per PDF page so page numbers stay aligned; pages
// without a content stream come back empty.
func readPDF(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing pdf: %w", err)
	}

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages[i] = text
	}
	return pages, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
