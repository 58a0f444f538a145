package symbols

import (
	"errors"
	"fmt"

	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// ErrDuplicateSymbol is wrapped by Define* when the name is taken.
var ErrDuplicateSymbol = errors.New("duplicate symbol")

// SymbolScope is one level of the table. Variables and properties share a
// namespace; methods have their own.
type SymbolScope struct {
	variables []Symbol
	methods   []*MethodSymbol

	varIndex    map[string]int
	methodIndex map[string]int
}

func NewScope() *SymbolScope {
	return &SymbolScope{
		varIndex:    make(map[string]int),
		methodIndex: make(map[string]int),
	}
}

// ScopeFromContext exposes the properties and methods of an attached
// object, in the order of the object's member numbers.
func ScopeFromContext(ctx values.Context) *SymbolScope {
	s := NewScope()
	for i := 0; i < ctx.PropertyCount(); i++ {
		p := ctx.Property(i)
		s.addVariable(&PropertySymbol{Names: Names{p.Name, p.Alias}, Readable: p.Readable, Writable: p.Writable})
	}
	for i := 0; i < ctx.MethodCount(); i++ {
		m := ctx.Method(i)
		s.addMethod(&MethodSymbol{Names: Names{m.Name, m.Alias}, Method: m})
	}
	return s
}

func (s *SymbolScope) addVariable(sym Symbol) int {
	n := len(s.variables)
	s.variables = append(s.variables, sym)
	names := sym.SymbolNames()
	index(s.varIndex, n, names)
	return n
}

func (s *SymbolScope) addMethod(sym *MethodSymbol) int {
	n := len(s.methods)
	s.methods = append(s.methods, sym)
	index(s.methodIndex, n, sym.Names)
	return n
}

func index(idx map[string]int, n int, names Names) {
	if _, taken := idx[token.Fold(names.Name)]; !taken {
		idx[token.Fold(names.Name)] = n
	}
	if names.Alias != "" {
		if _, taken := idx[token.Fold(names.Alias)]; !taken {
			idx[token.Fold(names.Alias)] = n
		}
	}
}

func (s *SymbolScope) isTaken(idx map[string]int, names Names) bool {
	if _, ok := idx[token.Fold(names.Name)]; ok {
		return true
	}
	if names.Alias != "" {
		_, ok := idx[token.Fold(names.Alias)]
		return ok
	}
	return false
}

// DefineVariable adds a variable and returns its member number.
func (s *SymbolScope) DefineVariable(sym *VariableSymbol) (int, error) {
	if s.isTaken(s.varIndex, sym.Names) {
		return -1, fmt.Errorf("%w: variable %s", ErrDuplicateSymbol, sym.Name)
	}
	return s.addVariable(sym), nil
}

// DefineMethod adds a method and returns its member number.
func (s *SymbolScope) DefineMethod(sym *MethodSymbol) (int, error) {
	if s.isTaken(s.methodIndex, sym.Names) {
		return -1, fmt.Errorf("%w: method %s", ErrDuplicateSymbol, sym.Name)
	}
	return s.addMethod(sym), nil
}

func (s *SymbolScope) FindVariable(name string) (int, bool) {
	n, ok := s.varIndex[token.Fold(name)]
	return n, ok
}

func (s *SymbolScope) FindMethod(name string) (int, bool) {
	n, ok := s.methodIndex[token.Fold(name)]
	return n, ok
}

func (s *SymbolScope) Variable(n int) Symbol      { return s.variables[n] }
func (s *SymbolScope) Method(n int) *MethodSymbol { return s.methods[n] }
func (s *SymbolScope) VariableCount() int         { return len(s.variables) }
func (s *SymbolScope) MethodCount() int           { return len(s.methods) }
func (s *SymbolScope) Variables() []Symbol        { return s.variables }
func (s *SymbolScope) Methods() []*MethodSymbol   { return s.methods }
