package vm

import (
	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/values"
)

const scriptTypeName = "Сценарий"

// ScriptObject is an instance of a loaded module: its own variables plus
// the module's methods, run by the machine that created it. From outside
// only exported members are found by name.
type ScriptObject struct {
	module  *LoadedModule
	machine *Machine
	vars    []values.Variable
	scope   *Scope
	scopes  []*Scope
}

// NewObject creates an instance of module without running its body.
func (m *Machine) NewObject(module *LoadedModule) *ScriptObject {
	obj := &ScriptObject{
		module:  module,
		machine: m,
		vars:    make([]values.Variable, len(module.Variables)),
	}
	for i, v := range module.Variables {
		obj.vars[i] = values.NewCell(v.Name, values.Undefined)
	}
	obj.scope = &Scope{Instance: obj, Variables: obj.vars, Methods: module.Methods}

	globals := m.globalScopes()
	obj.scopes = make([]*Scope, 0, len(globals)+1)
	obj.scopes = append(obj.scopes, globals...)
	obj.scopes = append(obj.scopes, obj.scope)
	return obj
}

// Instantiate creates an instance of module and runs the module body.
func (m *Machine) Instantiate(module *LoadedModule) (*ScriptObject, error) {
	obj := m.NewObject(module)
	if err := m.ExecuteModuleBody(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (o *ScriptObject) Module() *LoadedModule { return o.module }
func (o *ScriptObject) Machine() *Machine     { return o.machine }

func (o *ScriptObject) DataType() values.DataType { return values.TypeObject }
func (o *ScriptObject) TypeName() string          { return scriptTypeName }
func (o *ScriptObject) String() string            { return scriptTypeName }

func (o *ScriptObject) FindProperty(name string) (int, bool) {
	return o.module.FindExportedProperty(name)
}

func (o *ScriptObject) PropertyCount() int { return len(o.vars) }

func (o *ScriptObject) Property(n int) values.PropertyInfo {
	return values.PropertyInfo{Name: o.module.Variables[n].Name, Readable: true, Writable: true}
}

func (o *ScriptObject) GetProperty(n int) (values.Value, error) {
	return o.vars[n].Get()
}

func (o *ScriptObject) SetProperty(n int, v values.Value) error {
	return o.vars[n].Set(v)
}

func (o *ScriptObject) FindMethod(name string) (int, bool) {
	return o.module.FindExportedMethod(name)
}

func (o *ScriptObject) MethodCount() int               { return len(o.module.Methods) }
func (o *ScriptObject) Method(n int) values.MethodInfo { return o.module.Methods[n] }

// CallMethod runs method n as a call from the host.
func (o *ScriptObject) CallMethod(n int, args []values.Value) (values.Value, error) {
	return o.machine.ExecuteMethod(o, n, args)
}

// Variable returns module variable n.
func (o *ScriptObject) Variable(n int) values.Variable {
	return o.vars[n]
}

// findHandlerMethod looks up an event handler. A script object exposes all
// of its methods to its own handler statements.
func findHandlerMethod(ctx values.Context, name string) (int, bool) {
	if obj, ok := ctx.(*ScriptObject); ok {
		return obj.module.FindMethod(name)
	}
	return ctx.FindMethod(name)
}

// symbolScope describes s for the compiler of Вычислить and Выполнить.
func (s *Scope) symbolScope() *symbols.SymbolScope {
	if s.symbols == nil {
		if s.Instance != nil {
			s.symbols = symbols.ScopeFromContext(s.Instance)
		} else {
			s.symbols = symbols.NewScope()
		}
	}
	return s.symbols
}
