// Package symbols resolves names to bindings at compile time.
//
// A SymbolTable is a stack of scopes. Each scope keeps its variables and
// methods in declaration order; the position of a symbol in its scope is
// the member number of its Binding, so the machine addresses it by index.
package symbols

import (
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// Names is the pair of spellings a symbol answers to.
type Names struct {
	Name  string
	Alias string
}

// Matches compares case-insensitively against both spellings.
func (n Names) Matches(name string) bool {
	return token.EqualFold(n.Name, name) || (n.Alias != "" && token.EqualFold(n.Alias, name))
}

type Symbol interface {
	SymbolNames() Names
}

// VariableKind tells how a variable slot is backed at runtime.
type VariableKind uint8

const (
	// LocalVariable lives in the frame of a method.
	LocalVariable VariableKind = iota
	// ModuleVariable lives in the state of a loaded module.
	ModuleVariable
	// ContextProperty is a property of an attached object.
	ContextProperty
)

type VariableSymbol struct {
	Names
	Kind        VariableKind
	IsExport    bool
	Annotations []values.Annotation
}

func (s *VariableSymbol) SymbolNames() Names { return s.Names }

// PropertySymbol is a property of an attached context seen as a variable.
type PropertySymbol struct {
	Names
	Readable bool
	Writable bool
}

func (s *PropertySymbol) SymbolNames() Names { return s.Names }

type MethodSymbol struct {
	Names
	Method values.MethodInfo
}

func (s *MethodSymbol) SymbolNames() Names { return s.Names }

// Binding addresses a member of a scope: ScopeNumber counts from the
// outermost scope, MemberNumber is the slot inside it.
type Binding struct {
	ScopeNumber  int
	MemberNumber int
}
