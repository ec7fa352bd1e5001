package bridge

import (
	"errors"
	"strings"
	"sync"
	"testing"

	sonaerrors "sona/pkg/errors"
	"sona/pkg/eval"
)

func one(args ...eval.Object) (eval.Object, error) { return eval.NewInteger(1), nil }
func two(args ...eval.Object) (eval.Object, error) { return eval.NewInteger(2), nil }

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("__native__one", 0, one); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := r.Resolve("__native__one")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.ID != "__native__one" || b.Arity != 0 {
		t.Fatalf("wrong bridge. got=%+v", b)
	}
	got, _ := b.Fn()
	if got.Inspect() != "1" {
		t.Fatalf("wrong function. expected=1, got=%s", got.Inspect())
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("__native__one", 0, one)
	if err := r.Register("__native__one", 0, one); err != nil {
		t.Fatalf("re-registering the same function must succeed: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 bridge, got %d", r.Len())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("__native__one", 0, one)

	err := r.Register("__native__one", 0, two)
	if !errors.Is(err, sonaerrors.ErrDuplicateBridge) {
		t.Fatalf("expected DuplicateBridgeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "__native__one") {
		t.Fatalf("error must name the bridge: %v", err)
	}

	err = r.Register("__native__one", 2, one)
	if !errors.Is(err, sonaerrors.ErrDuplicateBridge) {
		t.Fatalf("different arity must be a duplicate, got %v", err)
	}

	b, _ := r.Resolve("__native__one")
	if got, _ := b.Fn(); got.Inspect() != "1" {
		t.Fatalf("original registration was replaced")
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("__native__one", 0, one)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	r.MustRegister("__native__one", 0, two)
}

func TestRegisterRejectsBadIDs(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"sha256", "__native__", "_native_sha"} {
		if err := r.Register(id, 1, one); err == nil {
			t.Errorf("%q: expected an error", id)
		}
	}
	if err := r.Register("__native__nil", 0, nil); err == nil {
		t.Errorf("nil function must be rejected")
	}
}

func TestResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("__native__missing")
	if !errors.Is(err, sonaerrors.ErrUnresolvedNativeBridge) {
		t.Fatalf("expected UnresolvedNativeBridgeError, got %v", err)
	}
	if r.Lookups() != 1 {
		t.Fatalf("expected 1 lookup, got %d", r.Lookups())
	}
}

func TestIDsSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("__native__zeta", 0, one)
	r.MustRegister("__native__alpha", 0, two)
	ids := r.IDs()
	if strings.Join(ids, ",") != "__native__alpha,__native__zeta" {
		t.Fatalf("wrong ids: %v", ids)
	}
	if !r.Has("__native__zeta") || r.Has("__native__beta") {
		t.Fatalf("Has is wrong")
	}
	if r.Lookups() != 0 {
		t.Fatalf("IDs and Has must not count as lookups, got %d", r.Lookups())
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("__native__one", 0, one)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := r.Resolve("__native__one"); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				_ = r.Register("__native__one", 0, one)
			}
		}()
	}
	wg.Wait()
	if r.Lookups() != 1600 {
		t.Fatalf("expected 1600 lookups, got %d", r.Lookups())
	}
}
