// Package module resolves import paths to module sources, runs each module
// once per session and caches the result.
package module

import (
	"io"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	pkgerrors "github.com/pkg/errors"

	"sona/pkg/bridge"
	sonaerrors "sona/pkg/errors"
	"sona/pkg/eval"
	"sona/pkg/parser"
)

type Options struct {
	Roots    []Root
	Cache    *Cache
	Registry *bridge.Registry
	Globals  *eval.Environment
	Out      io.Writer
	Logger   *slog.Logger
	MaxDepth int
}

// Loader implements eval.Importer on top of a list of search roots.
type Loader struct {
	roots    []Root
	cache    *Cache
	registry *bridge.Registry
	globals  *eval.Environment
	out      io.Writer
	logger   *slog.Logger
	maxDepth int
}

func NewLoader(opts Options) *Loader {
	l := &Loader{
		roots:    opts.Roots,
		cache:    opts.Cache,
		registry: opts.Registry,
		globals:  opts.Globals,
		out:      opts.Out,
		logger:   opts.Logger,
		maxDepth: opts.MaxDepth,
	}
	if l.cache == nil {
		l.cache = NewCache()
	}
	if l.out == nil {
		l.out = io.Discard
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.globals == nil {
		l.globals = eval.NewGlobals(l.out)
	}
	return l
}

func (l *Loader) Cache() *Cache { return l.cache }

// Roots returns the names of the search roots in search order.
func (l *Loader) Roots() []string { return RootNames(l.roots) }

// Load imports a module from outside any module, e.g. for tooling.
func (l *Loader) Load(importPath string) (*eval.Module, error) {
	return l.Import(eval.ImportRequest{Path: importPath})
}

// Import resolves one import request. A module is executed at most once;
// later imports get the cached instance, or the cached failure.
//
// req.Chain holds the modules currently being loaded by the importing
// goroutine. Meeting one of them again is an import cycle and fails
// immediately instead of handing out a half-built namespace.
func (l *Loader) Import(req eval.ImportRequest) (*eval.Module, error) {
	p, ok := Normalize(req.Path)
	if !ok {
		return nil, sonaerrors.ModuleNotFound(req.Path, l.Roots())
	}

	if slices.Contains(req.Chain, p) {
		chain := append(slices.Clone(req.Chain), p)
		l.logger.Debug("import cycle", slog.String("path", p), slog.Any("chain", chain))
		return nil, sonaerrors.CircularImport(chain)
	}

	if mod, done, err := l.cached(p); done {
		return mod, err
	}

	// Concurrent imports of the same path wait for the first one.
	v, err, _ := l.cache.flight.Do(p, func() (interface{}, error) {
		if mod, done, err := l.cached(p); done {
			return mod, err
		}
		return l.load(p, req.Chain)
	})
	if err != nil {
		return nil, err
	}
	return v.(*eval.Module), nil
}

// cached reports a settled cache entry. Loading entries are not settled.
func (l *Loader) cached(p string) (*eval.Module, bool, error) {
	s, ok := l.cache.lookup(p)
	if !ok {
		return nil, false, nil
	}
	switch s.state {
	case eval.StateLoaded:
		l.logger.Debug("module cache hit", slog.String("path", p))
		return s.mod, true, nil
	case eval.StateFailed:
		l.logger.Debug("module cache hit (failed)", slog.String("path", p))
		return nil, true, s.err
	}
	return nil, false, nil
}

func (l *Loader) load(p string, chain []string) (*eval.Module, error) {
	start := time.Now()

	src, origin, err := l.locate(p)
	if err != nil {
		return nil, err
	}

	mod := &eval.Module{Path: p, Origin: origin, Size: len(src)}
	mod.NativeRefs = NativeRefs(string(src))
	mod.RequiresBridge = len(mod.NativeRefs) > 0
	l.cache.insert(mod)

	l.logger.Debug("loading module",
		slog.String("path", p),
		slog.String("origin", origin),
		slog.Bool("requires-bridge", mod.RequiresBridge))

	err = l.execute(mod, string(src), append(slices.Clone(chain), p))
	l.cache.settle(mod, err)
	if err != nil {
		l.logger.Warn("module failed", slog.String("path", p), slog.Any("error", err))
		return nil, err
	}

	l.logger.Debug("module loaded",
		slog.String("path", p),
		slog.Int("exports", len(mod.Exports())),
		slog.Duration("elapsed", time.Since(start)))
	return mod, nil
}

func (l *Loader) execute(mod *eval.Module, src string, chain []string) error {
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		return sonaerrors.ModuleLoad(mod.Path, sonaerrors.Parse(mod.Origin, errs))
	}

	e := eval.New(eval.Options{
		Importer: l,
		Out:      l.out,
		Logger:   l.logger,
		Globals:  l.globals,
		MaxDepth: l.maxDepth,
		Module:   mod.Path,
		Chain:    chain,
	})
	mod.Env = e.NewScope()

	// Bridge-free modules never reach the registry.
	if mod.RequiresBridge {
		if err := l.bindBridges(mod); err != nil {
			return err
		}
	}

	if _, err := e.Run(program, mod.Env); err != nil {
		return sonaerrors.ModuleLoad(mod.Path, err)
	}
	return nil
}

// bindBridges resolves every native identifier of mod and binds it as a
// private name of the module namespace.
func (l *Loader) bindBridges(mod *eval.Module) error {
	for _, id := range mod.NativeRefs {
		if l.registry == nil {
			return sonaerrors.UnresolvedNativeBridge(mod.Path, id)
		}
		b, err := l.registry.Resolve(id)
		if err != nil {
			return sonaerrors.UnresolvedNativeBridge(mod.Path, id)
		}
		if err := mod.Env.Define(id, b); err != nil {
			return err
		}
		l.logger.Debug("bound native bridge", slog.String("path", mod.Path), slog.String("bridge", id))
	}
	return nil
}

// locate finds the source of a normalized path. Roots are tried in order
// and the first hit wins.
func (l *Loader) locate(p string) ([]byte, string, error) {
	for _, root := range l.roots {
		for _, name := range candidates(p) {
			src, origin, err := root.ReadModule(name)
			if err == nil {
				return src, origin, nil
			}
			if pkgerrors.Is(err, fs.ErrNotExist) || isNotDir(err) {
				continue
			}
			return nil, "", sonaerrors.ModuleLoad(p, pkgerrors.WithStack(err))
		}
	}
	return nil, "", sonaerrors.ModuleNotFound(p, l.Roots())
}
