package compgraph

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"
)

// DefaultExtensions are the file extensions analyzed by default.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// sourceLanguages are the enry language names accepted as analyzable.
var sourceLanguages = map[string]bool{
	"JavaScript": true,
	"TypeScript": true,
	"TSX":        true,
	"JSX":        true,
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	"out":          true,
}

// SourceOptions controls file discovery.
type SourceOptions struct {
	// Extensions to keep, with leading dot. Empty means DefaultExtensions.
	Extensions []string
	// MaxFiles caps the result after sorting. Zero or negative means no cap.
	MaxFiles int
}

// ListSourceFiles returns the analyzable files under root as slash-separated
// paths relative to root, sorted and capped at opts.MaxFiles.
//
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden directories,
// node_modules, vendor and build output) if git is unavailable. Vendored
// paths are dropped either way.
func ListSourceFiles(root string, opts SourceOptions) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	keep := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		keep[ext] = true
	}

	paths, err := gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}

	var out []string
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if !keep[strings.ToLower(path.Ext(p))] || enry.IsVendor(p) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	if opts.MaxFiles > 0 && len(out) > opts.MaxFiles {
		out = out[:opts.MaxFiles]
	}
	return out, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// LoadSourceFiles reads paths (relative to root) into SourceFile records,
// keeping their order. Empty files and files whose content enry identifies
// as a language other than JavaScript or TypeScript are dropped. Read
// failures are collected and reported together.
func LoadSourceFiles(root string, paths []string) ([]SourceFile, error) {
	files := make([]SourceFile, 0, len(paths))
	var errs []error
	for _, p := range paths {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", p, err))
			continue
		}
		if len(bytes.TrimSpace(content)) == 0 {
			continue
		}
		name := path.Base(p)
		if lang := enry.GetLanguage(name, content); lang != "" && !sourceLanguages[lang] {
			continue
		}
		files = append(files, SourceFile{Path: p, Name: name, Content: string(content)})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("loading had %d error(s): %w", len(errs), errs[0])
	}
	return files, nil
}
