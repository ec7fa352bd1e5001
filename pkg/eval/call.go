package eval

import (
	"fmt"

	sonaerrors "sona/pkg/errors"
)

// Call invokes a callable with already evaluated arguments.
func (e *Evaluator) Call(fn Object, args []Object) (Object, error) {
	switch fn := fn.(type) {
	case *Function:
		return e.callFunction(fn, args)
	case *Builtin:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return nil, sonaerrors.Arity(fn.Name, len(args), fn.Arity)
		}
		result, err := fn.Fn(args...)
		if err != nil {
			return nil, err
		}
		return valueOrNull(result), nil
	case *Bridge:
		return e.callBridge(fn, args)
	}
	return nil, sonaerrors.Runtime("not a function: %s", fn.Kind())
}

func (e *Evaluator) callFunction(fn *Function, args []Object) (Object, error) {
	if len(args) != len(fn.Parameters) {
		return nil, sonaerrors.Arity(fn.displayName(), len(args), len(fn.Parameters))
	}
	if e.depth >= e.maxDepth {
		return nil, sonaerrors.Runtime("maximum call depth %d exceeded in %s", e.maxDepth, fn.displayName())
	}
	e.depth++
	// Functions and literals created by the body belong to fn's module.
	caller := e.module
	e.module = fn.Module
	defer func() {
		e.depth--
		e.module = caller
	}()

	frame := NewEnclosedEnvironment(fn.Env)
	for i, param := range fn.Parameters {
		frame.bind(param.Value, args[i])
	}

	sig, err := e.execBlock(fn.Body, frame)
	if err != nil {
		return nil, err
	}
	switch sig.Kind {
	case Return:
		return valueOrNull(sig.Value), nil
	case Break, Continue:
		return nil, sonaerrors.Runtime("%s outside loop in %s", sig.Kind, fn.displayName())
	}
	return NULL, nil
}

// callBridge runs host code. Its errors and panics come back as
// NativeBridgeError naming the bridge.
func (e *Evaluator) callBridge(b *Bridge, args []Object) (result Object, err error) {
	if b.Arity >= 0 && len(args) != b.Arity {
		return nil, sonaerrors.Arity(b.ID, len(args), b.Arity)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = sonaerrors.NativeBridge(b.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	e.logger.Debug("native call", "bridge", b.ID, "argument-count", len(args))
	result, err = b.Fn(args...)
	if err != nil {
		return nil, sonaerrors.NativeBridge(b.ID, err)
	}
	return valueOrNull(result), nil
}
