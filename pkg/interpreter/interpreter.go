// Package interpreter ties the pieces together: one Interpreter is one
// session with its own module cache, bridge registry and search roots.
// Sessions share nothing, so independent runs cannot observe each other's
// modules.
package interpreter

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"

	"sona/pkg/bridge"
	"sona/pkg/config"
	sonaerrors "sona/pkg/errors"
	"sona/pkg/eval"
	"sona/pkg/module"
	"sona/pkg/parser"
	"sona/pkg/stdlib"
)

type Options struct {
	// Config defaults to config.Default().
	Config *config.Config

	// Dir is searched for modules before anything else, normally the
	// directory of the main script.
	Dir string

	// Roots are searched after the configured search paths and before the
	// standard library.
	Roots []module.Root

	// Registry defaults to a registry holding the standard library bridges.
	Registry *bridge.Registry

	Out    io.Writer
	Logger *slog.Logger
}

type Interpreter struct {
	cfg      config.Config
	out      io.Writer
	logger   *slog.Logger
	registry *bridge.Registry
	cache    *module.Cache
	loader   *module.Loader
	globals  *eval.Environment
	scope    *eval.Environment
}

func New(opts Options) (*Interpreter, error) {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	in := &Interpreter{
		cfg:      cfg,
		out:      opts.Out,
		logger:   opts.Logger,
		registry: opts.Registry,
		cache:    module.NewCache(),
	}
	if in.out == nil {
		in.out = os.Stdout
	}
	if in.logger == nil {
		in.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if in.registry == nil {
		in.registry = bridge.NewRegistry()
		if err := stdlib.RegisterAll(in.registry); err != nil {
			return nil, err
		}
	}

	var roots []module.Root
	if opts.Dir != "" {
		roots = append(roots, module.DirRoot{Dir: opts.Dir})
	}
	for _, p := range cfg.SearchPaths {
		roots = append(roots, module.DirRoot{Dir: p})
	}
	roots = append(roots, opts.Roots...)
	if cfg.Stdlib {
		roots = append(roots, stdlib.Root())
	}

	in.globals = eval.NewGlobals(in.out)
	in.loader = module.NewLoader(module.Options{
		Roots:    roots,
		Cache:    in.cache,
		Registry: in.registry,
		Globals:  in.globals,
		Out:      in.out,
		Logger:   in.logger,
		MaxDepth: cfg.MaxCallDepth,
	})
	in.scope = eval.NewEnclosedEnvironment(in.globals)

	in.logger.Debug("interpreter ready",
		slog.Any("roots", in.loader.Roots()),
		slog.Int("bridges", in.registry.Len()))
	return in, nil
}

func (in *Interpreter) Cache() *module.Cache         { return in.cache }
func (in *Interpreter) Registry() *bridge.Registry   { return in.registry }
func (in *Interpreter) Loader() *module.Loader       { return in.loader }
func (in *Interpreter) Config() config.Config        { return in.cfg }
func (in *Interpreter) Roots() []string              { return in.loader.Roots() }
func (in *Interpreter) Globals() *eval.Environment   { return in.globals }
func (in *Interpreter) ReplScope() *eval.Environment { return in.scope }

func (in *Interpreter) evaluator() *eval.Evaluator {
	return eval.New(eval.Options{
		Importer: in.loader,
		Out:      in.out,
		Logger:   in.logger,
		Globals:  in.globals,
		MaxDepth: in.cfg.MaxCallDepth,
	})
}

// Run executes a script in a fresh top-level scope. name is used in parse
// error reports. Modules imported by earlier runs stay cached.
func (in *Interpreter) Run(src, name string) (eval.Object, error) {
	return in.run(src, name, eval.NewEnclosedEnvironment(in.globals))
}

// Eval executes src in the session's persistent scope, so bindings survive
// between calls, as in a REPL.
func (in *Interpreter) Eval(src string) (eval.Object, error) {
	return in.run(src, "<repl>", in.scope)
}

func (in *Interpreter) run(src, name string, scope *eval.Environment) (eval.Object, error) {
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		return nil, sonaerrors.Parse(name, errs)
	}
	return in.evaluator().Run(program, scope)
}

// RunFile reads and runs a script.
func (in *Interpreter) RunFile(path string) (eval.Object, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read %s", path)
	}
	in.logger.Debug("running script", slog.String("path", path))
	return in.Run(string(src), filepath.Base(path))
}

// Import loads a module by path as an import statement would.
func (in *Interpreter) Import(path string) (*eval.Module, error) {
	return in.loader.Load(path)
}
