// Package errors defines the error kinds raised while resolving imports,
// loading modules, dispatching members and calling functions.
//
// Every failure is an *Error carrying a Kind. Errors compare equal under
// errors.Is when their kinds match, so callers can test for a category
// without caring how deeply it was wrapped:
//
//	if errors.Is(err, sonaerrors.ErrModuleNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindRuntime Kind = iota
	KindParse
	KindModuleNotFound
	KindCircularImport
	KindModuleLoad
	KindUnresolvedNativeBridge
	KindDuplicateBridge
	KindUndefinedExport
	KindUndefinedProperty
	KindArity
	KindNativeBridge
)

var kindNames = map[Kind]string{
	KindRuntime:                "RuntimeError",
	KindParse:                  "ParseError",
	KindModuleNotFound:         "ModuleNotFoundError",
	KindCircularImport:         "CircularImportError",
	KindModuleLoad:             "ModuleLoadError",
	KindUnresolvedNativeBridge: "UnresolvedNativeBridgeError",
	KindDuplicateBridge:        "DuplicateBridgeError",
	KindUndefinedExport:        "UndefinedExportError",
	KindUndefinedProperty:      "UndefinedPropertyError",
	KindArity:                  "ArityError",
	KindNativeBridge:           "NativeBridgeError",
}

// Codes shown next to the kind in user-facing reports.
var kindCodes = map[Kind]string{
	KindRuntime:                "E6000",
	KindParse:                  "E6001",
	KindModuleNotFound:         "E6101",
	KindCircularImport:         "E6102",
	KindModuleLoad:             "E6103",
	KindUnresolvedNativeBridge: "E6201",
	KindDuplicateBridge:        "E6202",
	KindUndefinedExport:        "E6301",
	KindUndefinedProperty:      "E6302",
	KindArity:                  "E6401",
	KindNativeBridge:           "E6402",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Code() string { return kindCodes[k] }

// Error is the single error type of the runtime. Only the fields relevant
// to a kind are set.
type Error struct {
	Kind    Kind
	Message string

	Path   string   // import path (module errors)
	Roots  []string // search roots tried (ModuleNotFound)
	Chain  []string // import chain (CircularImport)
	Member string   // export or property name
	Type   string   // receiver type (UndefinedProperty)
	ID     string   // native bridge identifier

	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports a match on kind, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Code returns the report code of the error's kind.
func (e *Error) Code() string { return e.Kind.Code() }

var (
	ErrRuntime                = &Error{Kind: KindRuntime}
	ErrParse                  = &Error{Kind: KindParse}
	ErrModuleNotFound         = &Error{Kind: KindModuleNotFound}
	ErrCircularImport         = &Error{Kind: KindCircularImport}
	ErrModuleLoad             = &Error{Kind: KindModuleLoad}
	ErrUnresolvedNativeBridge = &Error{Kind: KindUnresolvedNativeBridge}
	ErrDuplicateBridge        = &Error{Kind: KindDuplicateBridge}
	ErrUndefinedExport        = &Error{Kind: KindUndefinedExport}
	ErrUndefinedProperty      = &Error{Kind: KindUndefinedProperty}
	ErrArity                  = &Error{Kind: KindArity}
	ErrNativeBridge           = &Error{Kind: KindNativeBridge}
)

func Runtime(format string, a ...interface{}) *Error {
	return &Error{Kind: KindRuntime, Message: fmt.Sprintf(format, a...)}
}

// Parse reports the parser's messages for a source file.
func Parse(path string, messages []string) *Error {
	msg := strings.Join(messages, "; ")
	if path != "" {
		msg = path + ": " + msg
	}
	return &Error{Kind: KindParse, Path: path, Message: msg}
}

func ModuleNotFound(path string, roots []string) *Error {
	return &Error{
		Kind:    KindModuleNotFound,
		Path:    path,
		Roots:   roots,
		Message: fmt.Sprintf("module %q not found (searched: %s)", path, strings.Join(roots, ", ")),
	}
}

// CircularImport takes the chain of paths being loaded, ending with the
// path that closed the cycle.
func CircularImport(chain []string) *Error {
	return &Error{
		Kind:    KindCircularImport,
		Chain:   chain,
		Path:    chain[len(chain)-1],
		Message: "import cycle: " + strings.Join(chain, " -> "),
	}
}

func ModuleLoad(path string, cause error) *Error {
	return &Error{
		Kind:    KindModuleLoad,
		Path:    path,
		Cause:   cause,
		Message: fmt.Sprintf("failed to load module %q", path),
	}
}

func UnresolvedNativeBridge(path, id string) *Error {
	msg := fmt.Sprintf("no native bridge registered for %q", id)
	if path != "" {
		msg = fmt.Sprintf("module %q requires native bridge %q, which is not registered", path, id)
	}
	return &Error{Kind: KindUnresolvedNativeBridge, Path: path, ID: id, Message: msg}
}

func DuplicateBridge(id string) *Error {
	return &Error{
		Kind:    KindDuplicateBridge,
		ID:      id,
		Message: fmt.Sprintf("native bridge %q is already registered with a different implementation", id),
	}
}

func UndefinedExport(path, name string) *Error {
	return &Error{
		Kind:    KindUndefinedExport,
		Path:    path,
		Member:  name,
		Message: fmt.Sprintf("module %q has no export %q", path, name),
	}
}

func UndefinedProperty(typ, name string) *Error {
	return &Error{
		Kind:    KindUndefinedProperty,
		Type:    typ,
		Member:  name,
		Message: fmt.Sprintf("%s has no property %q", typ, name),
	}
}

func Arity(name string, got, want int) *Error {
	return &Error{
		Kind:    KindArity,
		Member:  name,
		Message: fmt.Sprintf("%s: wrong number of arguments. got=%d, want=%d", name, got, want),
	}
}

func NativeBridge(id string, cause error) *Error {
	return &Error{
		Kind:    KindNativeBridge,
		ID:      id,
		Cause:   cause,
		Message: fmt.Sprintf("native bridge %q failed", id),
	}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Root returns the innermost *Error in err's chain, which is usually the
// most specific description of what went wrong.
func Root(err error) *Error {
	var last *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			last = e
		}
		err = errors.Unwrap(err)
	}
	return last
}
