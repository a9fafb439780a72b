package environ

import (
	"fmt"
	"sync/atomic"
)

// Scope pairs the local environment layer whose view a script compiles
// against with the designated root layer whose artifacts must be excluded
// from that view. A scope starts unlocked; the owner locks it once the
// underlying environment is fully assembled. Computing a classpath for an
// unlocked scope is a usage error.
type Scope struct {
	name   string
	local  *Handle
	root   *Handle
	locked atomic.Bool
}

// NewScope creates an unlocked scope over the local/root layer pair.
func NewScope(name string, local, root *Handle) *Scope {
	return &Scope{name: name, local: local, root: root}
}

// Name returns the scope name.
func (s *Scope) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Local returns the layer whose full artifact view the scope exposes.
func (s *Scope) Local() *Handle {
	if s == nil {
		return nil
	}
	return s.local
}

// Root returns the layer whose artifacts are excluded from the scope.
func (s *Scope) Root() *Handle {
	if s == nil {
		return nil
	}
	return s.root
}

// Lock seals the scope. Locking is idempotent; there is no unlock.
func (s *Scope) Lock() {
	s.locked.Store(true)
}

// Locked reports whether the scope has been sealed.
func (s *Scope) Locked() bool {
	return s.locked.Load()
}

// UnlockedScopeError reports a classpath request against a scope that is
// still open to additions.
type UnlockedScopeError struct {
	Scope string
}

func (e *UnlockedScopeError) Error() string {
	return fmt.Sprintf("classpath requested for unlocked scope %q", e.Scope)
}
