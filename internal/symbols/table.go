package symbols

// SymbolTable is the stack of scopes visible to the code being compiled.
type SymbolTable struct {
	scopes []*SymbolScope
}

func NewTable() *SymbolTable {
	return &SymbolTable{}
}

// PushScope adds an inner scope and returns its number.
func (t *SymbolTable) PushScope(s *SymbolScope) int {
	t.scopes = append(t.scopes, s)
	return len(t.scopes) - 1
}

func (t *SymbolTable) PopScope() *SymbolScope {
	top := t.scopes[len(t.scopes)-1]
	t.scopes = t.scopes[:len(t.scopes)-1]
	return top
}

func (t *SymbolTable) TopScope() *SymbolScope {
	if len(t.scopes) == 0 {
		return nil
	}
	return t.scopes[len(t.scopes)-1]
}

func (t *SymbolTable) Scope(n int) *SymbolScope {
	return t.scopes[n]
}

func (t *SymbolTable) Count() int {
	return len(t.scopes)
}

// FindVariable searches from the innermost scope outwards.
func (t *SymbolTable) FindVariable(name string) (Binding, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if n, ok := t.scopes[i].FindVariable(name); ok {
			return Binding{ScopeNumber: i, MemberNumber: n}, true
		}
	}
	return Binding{}, false
}

// FindMethod searches from the innermost scope outwards.
func (t *SymbolTable) FindMethod(name string) (Binding, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if n, ok := t.scopes[i].FindMethod(name); ok {
			return Binding{ScopeNumber: i, MemberNumber: n}, true
		}
	}
	return Binding{}, false
}

// VariableAt returns the symbol behind a binding.
func (t *SymbolTable) VariableAt(b Binding) Symbol {
	return t.scopes[b.ScopeNumber].Variable(b.MemberNumber)
}

func (t *SymbolTable) MethodAt(b Binding) *MethodSymbol {
	return t.scopes[b.ScopeNumber].Method(b.MemberNumber)
}
