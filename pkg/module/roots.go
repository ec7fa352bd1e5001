package module

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
)

// Extension is the file extension of module sources.
const Extension = ".smod"

// Root is one place modules are searched for. ReadModule returns an error
// satisfying errors.Is(err, fs.ErrNotExist) when name is absent.
type Root interface {
	Name() string
	ReadModule(name string) (src []byte, origin string, err error)
}

// DirRoot searches a directory on disk.
type DirRoot struct {
	Dir string
}

func (r DirRoot) Name() string { return r.Dir }

func (r DirRoot) ReadModule(name string) ([]byte, string, error) {
	full := filepath.Join(r.Dir, filepath.FromSlash(name))
	src, err := os.ReadFile(full)
	if err != nil {
		return nil, full, pkgerrors.Wrapf(err, "read %s", full)
	}
	return src, full, nil
}

// FSRoot searches an fs.FS, such as the embedded standard library.
type FSRoot struct {
	Label string
	FS    fs.FS
}

func (r FSRoot) Name() string { return r.Label }

func (r FSRoot) ReadModule(name string) ([]byte, string, error) {
	origin := r.Label + "/" + name
	src, err := fs.ReadFile(r.FS, name)
	if err != nil {
		return nil, origin, pkgerrors.Wrapf(err, "read %s", origin)
	}
	return src, origin, nil
}

// Normalize turns an import path into the cache key used for it:
// "a.b.c", "a/b/c" and "a/b/c.smod" all become "a/b/c". It reports false
// for paths that cannot name a module.
func Normalize(importPath string) (string, bool) {
	p := strings.TrimSpace(importPath)
	p = strings.TrimSuffix(p, Extension)
	if !strings.Contains(p, "/") {
		p = strings.ReplaceAll(p, ".", "/")
	}
	if p == "" || strings.ContainsAny(p, `\:`) {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return p, true
}

// candidates lists the files tried for a normalized path, in order.
func candidates(p string) []string {
	return []string{p + Extension, path.Join(p, "index"+Extension)}
}

// RootNames lists the names of roots, for error reports.
func RootNames(roots []Root) []string {
	names := make([]string, len(roots))
	for i, r := range roots {
		names[i] = r.Name()
	}
	return names
}

// isNotDir matches reading "a/b.smod" when "a" is a file.
func isNotDir(err error) bool {
	return pkgerrors.Is(err, syscall.ENOTDIR)
}
