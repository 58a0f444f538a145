// Package environment holds the registries a machine is built against:
// the named types available to Новый and the global contexts whose
// properties and methods are visible from every module.
package environment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// Factory creates an instance from constructor arguments.
type Factory func(args []values.Value) (values.Value, error)

type TypeInfo struct {
	Name  string
	Alias string
	New   Factory
}

// TypeManager maps type names (either spelling) to factories. It is
// filled at startup and read concurrently afterwards.
type TypeManager struct {
	mu    sync.RWMutex
	types map[string]*TypeInfo
	order []*TypeInfo
}

func NewTypeManager() *TypeManager {
	return &TypeManager{types: make(map[string]*TypeInfo)}
}

func (m *TypeManager) Register(name, alias string, f Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := &TypeInfo{Name: name, Alias: alias, New: f}
	for _, n := range []string{name, alias} {
		if n == "" {
			continue
		}
		if _, taken := m.types[token.Fold(n)]; taken {
			return fmt.Errorf("type %s is already registered", n)
		}
	}
	m.types[token.Fold(name)] = info
	if alias != "" {
		m.types[token.Fold(alias)] = info
	}
	m.order = append(m.order, info)
	return nil
}

func (m *TypeManager) Resolve(name string) (*TypeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.types[token.Fold(name)]
	return info, ok
}

// IsKnown reports whether name is a registered or primitive type name.
func (m *TypeManager) IsKnown(name string) bool {
	if _, ok := primitiveTypes[token.Fold(name)]; ok {
		return true
	}
	_, ok := m.Resolve(name)
	return ok
}

// TypeValue returns the value of Тип(name) under its canonical name.
func (m *TypeManager) TypeValue(name string) (values.TypeValue, error) {
	if canonical, ok := primitiveTypes[token.Fold(name)]; ok {
		return values.TypeValue{Name: canonical}, nil
	}
	if info, ok := m.Resolve(name); ok {
		return values.TypeValue{Name: info.Name}, nil
	}
	return values.TypeValue{}, values.TypeNotRegistered(name)
}

func (m *TypeManager) NewInstance(name string, args []values.Value) (values.Value, error) {
	info, ok := m.Resolve(name)
	if !ok {
		return nil, values.TypeNotRegistered(name)
	}
	return info.New(args)
}

// Names lists the registered types sorted by name.
func (m *TypeManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.order))
	for _, info := range m.order {
		out = append(out, info.Name)
	}
	sort.Strings(out)
	return out
}

var primitiveTypes = map[string]string{}

func init() {
	for _, t := range []struct {
		typ   values.DataType
		alias string
	}{
		{values.TypeUndefined, "Undefined"},
		{values.TypeNull, "Null"},
		{values.TypeBoolean, "Boolean"},
		{values.TypeNumber, "Number"},
		{values.TypeString, "String"},
		{values.TypeDate, "Date"},
		{values.TypeType, "Type"},
	} {
		primitiveTypes[token.Fold(t.typ.String())] = t.typ.String()
		primitiveTypes[token.Fold(t.alias)] = t.typ.String()
	}
}
