package environment

import (
	"sync"

	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/values"
)

// GlobalsManager keeps the attached global contexts. Each context becomes
// one outer scope of every compiled module, in attach order.
type GlobalsManager struct {
	mu       sync.RWMutex
	contexts []values.Context
	scopes   []*symbols.SymbolScope
}

func NewGlobalsManager() *GlobalsManager {
	return &GlobalsManager{}
}

func (g *GlobalsManager) Attach(ctx values.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contexts = append(g.contexts, ctx)
	g.scopes = append(g.scopes, symbols.ScopeFromContext(ctx))
}

// Contexts returns a snapshot of the attached contexts.
func (g *GlobalsManager) Contexts() []values.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]values.Context(nil), g.contexts...)
}

// Scopes returns the symbol scopes matching Contexts one to one.
func (g *GlobalsManager) Scopes() []*symbols.SymbolScope {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*symbols.SymbolScope(nil), g.scopes...)
}

func (g *GlobalsManager) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.contexts)
}
