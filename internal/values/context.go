package values

import (
	"github.com/funvibe/oscript/internal/token"
)

// AnnotationParameter is "Имя = Значение" inside an annotation.
// Name is empty for a positional parameter; Value is nil when omitted.
type AnnotationParameter struct {
	Name  string
	Value Value
}

type Annotation struct {
	Name   string
	Params []AnnotationParameter
}

type ParameterInfo struct {
	Name    string
	ByValue bool
	// HasDefault marks an optional parameter. DefaultValue may still be
	// nil for library methods that handle a missing argument themselves.
	HasDefault   bool
	DefaultValue Value
	Annotations  []Annotation
}

// MethodInfo describes a method of a script module or a library object.
type MethodInfo struct {
	Name        string
	Alias       string
	IsFunction  bool
	IsExport    bool
	Params      []ParameterInfo
	Annotations []Annotation
}

// RequiredParams counts parameters without a default.
func (m *MethodInfo) RequiredParams() int {
	n := 0
	for _, p := range m.Params {
		if !p.HasDefault {
			n++
		}
	}
	return n
}

type PropertyInfo struct {
	Name     string
	Alias    string
	Readable bool
	Writable bool
}

// Context is an object reachable from script code: a library type
// instance, a script object or a global context.
//
// CallMethod receives one entry per declared parameter at most. A nil
// entry is an argument that was not passed. By-reference arguments arrive
// as Variable values.
type Context interface {
	Value
	FindProperty(name string) (int, bool)
	PropertyCount() int
	Property(n int) PropertyInfo
	GetProperty(n int) (Value, error)
	SetProperty(n int, v Value) error

	FindMethod(name string) (int, bool)
	MethodCount() int
	Method(n int) MethodInfo
	CallMethod(n int, args []Value) (Value, error)
}

// Indexer is implemented by objects that support obj[index].
type Indexer interface {
	GetIndexed(index Value) (Value, error)
	SetIndexed(index Value, v Value) error
}

// Iterable is implemented by collections usable in Для Каждого.
type Iterable interface {
	Iterate() Iterator
}

type Iterator interface {
	Next() (Value, bool)
}

// SliceIterator walks a snapshot of values.
type SliceIterator struct {
	items []Value
	pos   int
}

func NewSliceIterator(items []Value) *SliceIterator {
	return &SliceIterator{items: items}
}

func (it *SliceIterator) Next() (Value, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

// AsContext returns the object behind v, if any.
func AsContext(v Value) (Context, bool) {
	ctx, ok := Raw(v).(Context)
	return ctx, ok
}

// Members is a static member table shared by all instances of a library
// type. Lookups are case-insensitive and accept either the name or the alias.
type Members struct {
	props   []PropertyInfo
	methods []MethodInfo
	propIdx map[string]int
	methIdx map[string]int
}

func NewMembers(props []PropertyInfo, methods []MethodInfo) *Members {
	m := &Members{
		props:   props,
		methods: methods,
		propIdx: make(map[string]int, len(props)*2),
		methIdx: make(map[string]int, len(methods)*2),
	}
	for i, p := range props {
		index(m.propIdx, i, p.Name, p.Alias)
	}
	for i, meth := range methods {
		index(m.methIdx, i, meth.Name, meth.Alias)
	}
	return m
}

func index(idx map[string]int, i int, names ...string) {
	for _, n := range names {
		if n != "" {
			idx[token.Fold(n)] = i
		}
	}
}

func (m *Members) FindProperty(name string) (int, bool) {
	i, ok := m.propIdx[token.Fold(name)]
	return i, ok
}

func (m *Members) PropertyCount() int          { return len(m.props) }
func (m *Members) Property(n int) PropertyInfo { return m.props[n] }

func (m *Members) FindMethod(name string) (int, bool) {
	i, ok := m.methIdx[token.Fold(name)]
	return i, ok
}

func (m *Members) MethodCount() int        { return len(m.methods) }
func (m *Members) Method(n int) MethodInfo { return m.methods[n] }

// Params declares required by-value parameters.
func Params(names ...string) []ParameterInfo {
	out := make([]ParameterInfo, len(names))
	for i, n := range names {
		out[i] = ParameterInfo{Name: n, ByValue: true}
	}
	return out
}

// Optional marks the trailing parameters starting at from as optional.
func Optional(params []ParameterInfo, from int) []ParameterInfo {
	for i := from; i < len(params); i++ {
		params[i].HasDefault = true
	}
	return params
}

// Arg returns the i-th argument dereferenced, or nil when it was not passed.
func Arg(args []Value, i int) Value {
	if i >= len(args) || args[i] == nil {
		return nil
	}
	return Raw(args[i])
}
