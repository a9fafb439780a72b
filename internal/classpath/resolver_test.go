package classpath

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"kiln/internal/artifact"
	"kiln/internal/environ"
)

func lockedScope(t *testing.T, name string, local, root *environ.Handle) *environ.Scope {
	t.Helper()
	scope := environ.NewScope(name, local, root)
	scope.Lock()
	return scope
}

func fixedProvider(paths ...string) Provider {
	return func(context.Context) (*artifact.Set, error) {
		return artifact.FromPaths(paths...), nil
	}
}

func TestClasspathOrderAndExclusion(t *testing.T) {
	root := environ.NewHandle("root", nil, environ.PathSource{"/env/shared.jar", "/env/root-only.jar"})
	leaf := environ.NewHandle("leaf", root, environ.PathSource{"/env/local.jar"})
	scope := lockedScope(t, "scripts", leaf, root)

	r := NewResolver(NewIndex(), fixedProvider("/base/kit.jar"), fixedProvider("/gen/ext.jar"))
	set, err := r.ClasspathFor(context.Background(), scope)
	if err != nil {
		t.Fatalf("ClasspathFor() error: %v", err)
	}
	want := []string{"/base/kit.jar", "/gen/ext.jar", "/env/local.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ClasspathFor() = %v, want %v", got, want)
	}
}

func TestClasspathUnlockedScope(t *testing.T) {
	scope := environ.NewScope("scripts", nil, nil)

	r := NewResolver(nil, nil, nil)
	_, err := r.ClasspathFor(context.Background(), scope)
	var unlocked *environ.UnlockedScopeError
	if !errors.As(err, &unlocked) {
		t.Fatalf("ClasspathFor() error = %v, want UnlockedScopeError", err)
	}
	if unlocked.Scope != "scripts" {
		t.Fatalf("UnlockedScopeError.Scope = %q, want %q", unlocked.Scope, "scripts")
	}
}

func TestClasspathMissingScope(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	if _, err := r.ClasspathFor(context.Background(), nil); err == nil {
		t.Fatalf("ClasspathFor(nil) succeeded")
	}
}

func TestClasspathRepeatedCallsReturnSameSet(t *testing.T) {
	scope := lockedScope(t, "scripts", nil, nil)
	r := NewResolver(nil, fixedProvider("/base/kit.jar"), nil)

	first, err := r.ClasspathFor(context.Background(), scope)
	if err != nil {
		t.Fatalf("ClasspathFor() error: %v", err)
	}
	second, err := r.ClasspathFor(context.Background(), scope)
	if err != nil {
		t.Fatalf("ClasspathFor() error: %v", err)
	}
	if first != second {
		t.Fatalf("repeated ClasspathFor() returned a different set")
	}
}

func TestClasspathProvidersEvaluatedOnce(t *testing.T) {
	var baseCalls, genCalls int
	base := func(context.Context) (*artifact.Set, error) {
		baseCalls++
		return artifact.FromPaths("/base/kit.jar"), nil
	}
	gen := func(context.Context) (*artifact.Set, error) {
		genCalls++
		return artifact.FromPaths("/gen/ext.jar"), nil
	}

	r := NewResolver(nil, base, gen)
	ctx := context.Background()
	for _, name := range []string{"first", "second"} {
		if _, err := r.ClasspathFor(ctx, lockedScope(t, name, nil, nil)); err != nil {
			t.Fatalf("ClasspathFor(%s) error: %v", name, err)
		}
	}
	if baseCalls != 1 || genCalls != 1 {
		t.Fatalf("provider calls = base %d, gen %d, want 1 and 1", baseCalls, genCalls)
	}
}

func TestClasspathProviderFailureRetries(t *testing.T) {
	attempts := 0
	gen := func(context.Context) (*artifact.Set, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("transient failure")
		}
		return artifact.FromPaths("/gen/ext.jar"), nil
	}
	scope := lockedScope(t, "scripts", nil, nil)
	r := NewResolver(nil, nil, gen)
	ctx := context.Background()

	if _, err := r.ClasspathFor(ctx, scope); err == nil {
		t.Fatalf("first ClasspathFor() succeeded, want provider failure")
	}
	set, err := r.ClasspathFor(ctx, scope)
	if err != nil {
		t.Fatalf("second ClasspathFor() error: %v", err)
	}
	want := []string{"/gen/ext.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ClasspathFor() = %v, want %v", got, want)
	}
	if attempts != 2 {
		t.Fatalf("provider attempts = %d, want 2", attempts)
	}
}

func TestClasspathNilProviders(t *testing.T) {
	leaf := environ.NewHandle("leaf", nil, environ.PathSource{"/env/local.jar"})
	scope := lockedScope(t, "scripts", leaf, nil)

	r := NewResolver(nil, nil, nil)
	set, err := r.ClasspathFor(context.Background(), scope)
	if err != nil {
		t.Fatalf("ClasspathFor() error: %v", err)
	}
	want := []string{"/env/local.jar"}
	if got := set.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ClasspathFor() = %v, want %v", got, want)
	}
}

func TestClasspathConcurrentSameScope(t *testing.T) {
	var providerCalls int
	base := func(context.Context) (*artifact.Set, error) {
		providerCalls++
		return artifact.FromPaths("/base/kit.jar"), nil
	}
	scope := lockedScope(t, "scripts", nil, nil)
	r := NewResolver(nil, base, nil)

	const workers = 8
	sets := make([]*artifact.Set, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			set, err := r.ClasspathFor(context.Background(), scope)
			if err != nil {
				t.Errorf("ClasspathFor() error: %v", err)
				return
			}
			sets[i] = set
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if sets[i] != sets[0] {
			t.Fatalf("goroutine %d saw a different set", i)
		}
	}
	if providerCalls != 1 {
		t.Fatalf("provider calls = %d, want 1", providerCalls)
	}
}
