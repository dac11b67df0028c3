package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the largest theme file imported (4 MB).
const DefaultMaxFileSize int64 = 4 << 20

// DefaultInclude matches HTML files at any depth.
var DefaultInclude = []string{"**/*.html", "**/*.htm"}

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	".themestudio",
	".idea",
	".vscode",
}

// File is one candidate theme file.
type File struct {
	Path        string // absolute path on disk
	RelPath     string // slash-separated path relative to the import root
	Size        int64
	ContentHash string // SHA-256 hex digest of the content
	Content     []byte
}

// WalkConfig controls Walk.
type WalkConfig struct {
	RootDir     string
	Include     []string // glob patterns; DefaultInclude when empty
	Exclude     []string // glob patterns
	MaxFileSize int64    // 0 means DefaultMaxFileSize
}

// Walk returns every file under config.RootDir that passes the include and
// exclude patterns, in lexical order. Unreadable entries are skipped.
func Walk(config WalkConfig) ([]File, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("importer: resolve root: %w", err)
	}
	if fi, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("importer: %s is not a directory", root)
	}

	include := config.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchesAny(relPath, include) || matchesAny(relPath, config.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		sum := sha256.Sum256(content)
		files = append(files, File{
			Path:        path,
			RelPath:     filepath.ToSlash(relPath),
			Size:        info.Size(),
			ContentHash: hex.EncodeToString(sum[:]),
			Content:     content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importer: traversal: %w", err)
	}
	return files, nil
}

func shouldExcludeDir(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesAny checks relPath, and its base name, against doublestar patterns.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
