package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	inner := Arity("push", 1, 2)
	err := ModuleLoad("app", ModuleLoad("lib/stack", inner))

	if !errors.Is(err, ErrModuleLoad) {
		t.Fatalf("expected ModuleLoadError at the top of the chain")
	}
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected ArityError to be reachable through ModuleLoadError")
	}
	if errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("unexpected ModuleNotFoundError match")
	}

	wrapped := fmt.Errorf("running script: %w", err)
	if kind, ok := KindOf(wrapped); !ok || kind != KindModuleLoad {
		t.Fatalf("KindOf wrong. expected=%s, got=%s", KindModuleLoad, kind)
	}
	if root := Root(wrapped); root != inner {
		t.Fatalf("Root wrong. expected=%v, got=%v", inner, root)
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{
			ModuleNotFound("nope", []string{"/app", "<stdlib>"}),
			`ModuleNotFoundError: module "nope" not found (searched: /app, <stdlib>)`,
		},
		{
			CircularImport([]string{"a", "b", "a"}),
			"CircularImportError: import cycle: a -> b -> a",
		},
		{
			UnresolvedNativeBridge("hashing", "__native__sha256"),
			`UnresolvedNativeBridgeError: module "hashing" requires native bridge "__native__sha256", which is not registered`,
		},
		{
			UndefinedProperty("ARRAY", "enqueue"),
			`UndefinedPropertyError: ARRAY has no property "enqueue"`,
		},
		{
			Arity("add", 3, 2),
			"ArityError: add: wrong number of arguments. got=3, want=2",
		},
		{
			NativeBridge("__native__sha256", errors.New("boom")),
			`NativeBridgeError: native bridge "__native__sha256" failed: boom`,
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.expected {
			t.Errorf("message wrong.\nexpected=%q\n     got=%q", tt.expected, got)
		}
	}
}

func TestCodesAreUniquePerKind(t *testing.T) {
	seen := map[string]Kind{}
	for kind := range kindNames {
		code := kind.Code()
		if !strings.HasPrefix(code, "E6") {
			t.Fatalf("%s has no code", kind)
		}
		if other, dup := seen[code]; dup {
			t.Fatalf("%s and %s share code %s", kind, other, code)
		}
		seen[code] = kind
	}
}
