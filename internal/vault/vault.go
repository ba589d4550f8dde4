// Package vault reads the local document hierarchy being synchronized:
// folder enumeration, file-type classification, storage metrics, and change
// watching. All paths handed out are vault-relative slash paths; the empty
// string is the vault root.
package vault

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/inkwell-labs/vaultsync/internal/scope"
)

// FileKind classifies a vault file for the per-type sync toggles.
type FileKind int

const (
	KindOther FileKind = iota
	KindMarkdown
	KindImage
	KindPDF
)

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".bmp": {},
}

// KindOf classifies a file by extension.
func KindOf(path string) FileKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".md" || ext == ".markdown":
		return KindMarkdown
	case ext == ".pdf":
		return KindPDF
	default:
		if _, ok := imageExts[ext]; ok {
			return KindImage
		}
		return KindOther
	}
}

// EnumerateFolders walks the vault and returns the set of folder paths that
// contain at least one file, plus all their ancestors and the root "".
// Hidden (dot-prefixed) directories are skipped.
func EnumerateFolders(root string) (map[string]struct{}, error) {
	folders := map[string]struct{}{"": {}}
	err := WalkFiles(root, func(rel string, _ string, _ int64) error {
		for dir := parentFolder(rel); dir != ""; dir = parentFolder(dir) {
			folders[dir] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// WalkFiles visits every regular file under root, skipping hidden
// directories and files. fn receives the vault-relative slash path, the
// absolute path, and the file size.
func WalkFiles(root string, fn func(rel, abs string, size int64) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		hidden := strings.HasPrefix(name, ".") && path != root
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), path, info.Size())
	})
	if err != nil {
		return fmt.Errorf("walk vault %s: %w", root, err)
	}
	return nil
}

// InScope decides sync membership for a folder by combining the scope sets
// with the folder hierarchy: walking from the folder up to the root, the
// nearest set entry wins, with exclusion checked first at each level. A
// folder with no entry on its ancestor chain is out of scope.
func InScope(sc *scope.Resolver, folder string) bool {
	for f := folder; ; f = parentFolder(f) {
		if sc.HasExclude(f) {
			return false
		}
		if sc.HasInclude(f) {
			return true
		}
		if f == "" {
			return false
		}
	}
}

// parentFolder returns the parent of a vault-relative slash path; the parent
// of a top-level folder is the root "".
func parentFolder(f string) string {
	if i := strings.LastIndexByte(f, '/'); i >= 0 {
		return f[:i]
	}
	return ""
}
