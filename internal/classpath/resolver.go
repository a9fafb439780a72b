package classpath

import (
	"context"
	"errors"
	"sync"

	"kiln/internal/artifact"
	"kiln/internal/environ"
)

// Provider supplies an externally produced artifact set, evaluated lazily on
// first use.
type Provider func(ctx context.Context) (*artifact.Set, error)

// Resolver computes and caches the effective classpath of compilation scopes.
//
// A scope's classpath is the base artifacts, then the generated artifacts,
// then the scope's effective contribution: everything its local layer sees
// minus everything its root layer already provides. Providers are evaluated
// once per resolver; per-scope results are computed once per scope identity
// and repeated calls return the identical set.
type Resolver struct {
	index     *Index
	base      Provider
	generated Provider

	baseSet lazySet
	genSet  lazySet

	mu     sync.Mutex
	scopes map[*environ.Scope]*scopeEntry
}

type scopeEntry struct {
	mu   sync.Mutex
	done bool
	set  *artifact.Set
}

// lazySet evaluates a provider once and pins the successful result. Failures
// are not pinned, so a later call retries.
type lazySet struct {
	mu   sync.Mutex
	done bool
	set  *artifact.Set
}

func (l *lazySet) get(ctx context.Context, p Provider) (*artifact.Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.set, nil
	}
	if p == nil {
		l.set = artifact.NewSet()
		l.done = true
		return l.set, nil
	}
	set, err := p(ctx)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = artifact.NewSet()
	}
	l.set = set
	l.done = true
	return set, nil
}

// NewResolver creates a resolver over the given layer index. base supplies
// the foundational artifacts every scope compiles against; generated supplies
// derived artifacts produced on demand. Either provider may be nil. A nil
// index gets a fresh one.
func NewResolver(index *Index, base, generated Provider) *Resolver {
	if index == nil {
		index = NewIndex()
	}
	return &Resolver{
		index:     index,
		base:      base,
		generated: generated,
		scopes:    make(map[*environ.Scope]*scopeEntry),
	}
}

// Index returns the layer index backing the resolver.
func (r *Resolver) Index() *Index {
	return r.index
}

// ClasspathFor returns the classpath visible to the scope. The scope must be
// locked first; asking for an unlocked scope is a usage error, reported as
// environ.UnlockedScopeError.
func (r *Resolver) ClasspathFor(ctx context.Context, scope *environ.Scope) (*artifact.Set, error) {
	if scope == nil {
		return nil, errors.New("missing scope")
	}
	if !scope.Locked() {
		return nil, &environ.UnlockedScopeError{Scope: scope.Name()}
	}

	e := r.entry(scope)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return e.set, nil
	}

	local, err := r.index.Resolve(scope.Local())
	if err != nil {
		return nil, err
	}
	root, err := r.index.Resolve(scope.Root())
	if err != nil {
		return nil, err
	}
	base, err := r.baseSet.get(ctx, r.base)
	if err != nil {
		return nil, err
	}
	generated, err := r.genSet.get(ctx, r.generated)
	if err != nil {
		return nil, err
	}

	set := base.Union(generated, local.Subtract(root))
	e.set = set
	e.done = true
	return set, nil
}

func (r *Resolver) entry(scope *environ.Scope) *scopeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.scopes[scope]
	if !ok {
		e = &scopeEntry{}
		r.scopes[scope] = e
	}
	return e
}
