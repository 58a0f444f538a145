package vm

import (
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/values"
)

// evalCacheKey identifies compiled code together with the layout of the
// scopes it was bound against.
type evalCacheKey struct {
	code     string
	location string
	frame    uuid.UUID
	batch    bool
}

// frameScopes returns the runtime scopes an expression sees in base: the
// scopes of base plus one holding its locals. With no frame it sees the
// global contexts only.
func (m *Machine) frameScopes(base *ExecutionFrame) []*Scope {
	if base == nil {
		globals := m.globalScopes()
		scopes := make([]*Scope, len(globals), len(globals)+1)
		copy(scopes, globals)
		return append(scopes, &Scope{symbols: symbols.NewScope()})
	}
	locals := &Scope{Variables: base.Locals}
	if base.ThisScope != nil {
		locals.Instance = base.ThisScope.Instance
	}
	names := symbols.NewScope()
	for _, name := range base.LocalNames() {
		names.DefineVariable(&symbols.VariableSymbol{Names: symbols.Names{Name: name}, Kind: symbols.LocalVariable})
	}
	locals.symbols = names

	scopes := make([]*Scope, len(base.Scopes), len(base.Scopes)+1)
	copy(scopes, base.Scopes)
	return append(scopes, locals)
}

func symbolTable(scopes []*Scope) *symbols.SymbolTable {
	table := symbols.NewTable()
	for _, s := range scopes {
		table.PushScope(s.symbolScope())
	}
	return table
}

// compileCached compiles code for the scopes of base, reusing an earlier
// result for the same frame.
func (m *Machine) compileCached(base *ExecutionFrame, scopes []*Scope, code string, batch bool) (*LoadedModule, error) {
	key := evalCacheKey{code: code, batch: batch}
	if base != nil {
		key.frame = base.ID
		if base.Module.Source != nil {
			key.location = base.Module.Source.Location
		}
	}
	if mod, ok := m.evalCache.Get(key); ok {
		m.logger.Debug().Str("code", code).Msg("eval cache hit")
		return mod, nil
	}

	var (
		img *ModuleImage
		err error
	)
	if batch {
		src := batchSource(code)
		if img, err = m.env.Compiler.CompileBatch(src, symbolTable(scopes)); err == nil {
			return m.cacheModule(key, img, src)
		}
	} else {
		src := expressionSource(code)
		if img, err = m.env.Compiler.CompileExpression(src, symbolTable(scopes)); err == nil {
			return m.cacheModule(key, img, src)
		}
	}
	return nil, err
}

func (m *Machine) cacheModule(key evalCacheKey, img *ModuleImage, src *sources.SourceCode) (*LoadedModule, error) {
	mod, err := Load(img, src)
	if err != nil {
		return nil, err
	}
	m.evalCache.Add(key, mod)
	m.logger.Debug().Str("code", key.code).Bool("batch", key.batch).Msg("eval cache miss")
	return mod, nil
}

// evaluateIn computes an expression in the scopes of base.
func (m *Machine) evaluateIn(base *ExecutionFrame, code string) (values.Value, error) {
	if strings.TrimSpace(code) == "" {
		return nil, values.Wrap(errNoExpression, errNoExpression.Error())
	}
	scopes := m.frameScopes(base)
	mod, err := m.compileCached(base, scopes, code, false)
	if err != nil {
		return nil, err
	}
	f := newFrame(mod, mod.EntryMethod(), scopes, scopes[len(scopes)-1])
	return m.executeCode(f)
}

// executeBatch runs statements in the scopes of the current frame.
func (m *Machine) executeBatch(code string) error {
	base := m.frame
	scopes := m.frameScopes(base)
	mod, err := m.compileCached(base, scopes, code, true)
	if err != nil {
		return err
	}
	f := newFrame(mod, mod.EntryMethod(), scopes, scopes[len(scopes)-1])
	_, err = m.executeCode(f)
	return err
}
