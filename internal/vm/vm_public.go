package vm

import (
	"errors"
	"fmt"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/values"
)

// LoadSource compiles src against the global contexts of the machine's
// environment and loads the image.
func (m *Machine) LoadSource(src *sources.SourceCode) (*LoadedModule, error) {
	img, err := m.env.Compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	return Load(img, src)
}

// ExecuteMethod calls method n of obj from the host. Exception handlers of
// script frames below the call do not catch its exceptions.
func (m *Machine) ExecuteMethod(obj *ScriptObject, n int, args []values.Value) (values.Value, error) {
	if n < 0 || n >= len(obj.module.Methods) {
		return nil, values.MethodNotFound(fmt.Sprint(n))
	}
	f := newFrame(obj.module, n, obj.scopes, obj.scope)
	if err := bindArguments(f, obj.module.Methods[n], args); err != nil {
		return nil, err
	}
	res, err := m.executeCode(f)
	if err != nil {
		return nil, err
	}
	if !obj.module.Methods[n].IsFunction {
		return values.Undefined, nil
	}
	return res, nil
}

// CallByName calls an exported method of obj.
func (m *Machine) CallByName(obj *ScriptObject, name string, args ...values.Value) (values.Value, error) {
	n, ok := obj.module.FindExportedMethod(name)
	if !ok {
		return nil, values.MethodNotFound(name)
	}
	return m.ExecuteMethod(obj, n, args)
}

// ExecuteModuleBody runs the body of the module behind obj, if it has one.
func (m *Machine) ExecuteModuleBody(obj *ScriptObject) error {
	entry := obj.module.EntryMethod()
	if entry == NoIndex {
		return nil
	}
	_, err := m.ExecuteMethod(obj, entry, nil)
	return err
}

// Run loads src, creates an object of it and runs its body.
func (m *Machine) Run(src *sources.SourceCode) (*ScriptObject, error) {
	module, err := m.LoadSource(src)
	if err != nil {
		return nil, err
	}
	return m.Instantiate(module)
}

// Evaluate computes an expression in the innermost frame, or against the
// global contexts when the machine is idle.
func (m *Machine) Evaluate(expr string) (values.Value, error) {
	m.nested++
	defer func() { m.nested-- }()
	return m.evaluateIn(m.frame, expr)
}

// EvaluateInFrame computes an expression in frame index of the call stack,
// 0 being the innermost. It runs on an auxiliary machine bound to the same
// environment, so the suspended frames are left as they are.
func (m *Machine) EvaluateInFrame(expr string, index int) (values.Value, error) {
	f, err := m.frameAt(index)
	if err != nil {
		return nil, err
	}
	return m.runner().evaluateIn(f, expr)
}

// Execute runs statements in the innermost frame. Variables they create
// are discarded afterwards.
func (m *Machine) Execute(code string) error {
	return m.executeBatch(code)
}

// runner is a machine sharing env, globals and the compile cache with m.
func (m *Machine) runner() *Machine {
	r := New(m.env)
	r.evalCache = m.evalCache
	r.globals = m.globalScopes()
	r.globalsCount = m.globalsCount
	r.ctx = m.ctx
	r.maxCallDepth = m.maxCallDepth
	r.logger = m.logger
	r.codeStat = m.codeStat
	r.trace = m.trace
	r.nested = 1
	return r
}

func (m *Machine) frameAt(index int) (*ExecutionFrame, error) {
	if index < 0 || index >= len(m.frames) {
		return nil, fmt.Errorf("%w: %d", ErrWrongStackFrame, index)
	}
	return m.frames[len(m.frames)-1-index], nil
}

// ExecutionFrames describes the call stack, innermost first.
func (m *Machine) ExecutionFrames() []FrameInfo {
	out := make([]FrameInfo, 0, len(m.frames))
	for i := len(m.frames) - 1; i >= 0; i-- {
		f := m.frames[i]
		info := FrameInfo{
			ID:         f.ID,
			Index:      len(out),
			MethodName: f.MethodName,
			ModuleName: f.Module.Name,
			LineNumber: f.LineNumber,
			Frame:      f,
		}
		if f.Module.Source != nil {
			info.Source = f.Module.Source.Location
		}
		out = append(out, info)
	}
	return out
}

// NamedValue is a variable shown by the debugger.
type NamedValue struct {
	Name  string
	Value values.Value
}

// FrameLocals lists the locals of frame index with their current values.
func (m *Machine) FrameLocals(index int) ([]NamedValue, error) {
	f, err := m.frameAt(index)
	if err != nil {
		return nil, err
	}
	names := f.LocalNames()
	out := make([]NamedValue, len(f.Locals))
	for i, v := range f.Locals {
		out[i] = NamedValue{Name: v.Name(), Value: values.Raw(v)}
		if i < len(names) {
			out[i].Name = names[i]
		}
	}
	return out, nil
}

// FrameModuleVariables lists the variables of the object frame index runs on.
func (m *Machine) FrameModuleVariables(index int) ([]NamedValue, error) {
	f, err := m.frameAt(index)
	if err != nil {
		return nil, err
	}
	obj, ok := f.ThisScope.Instance.(*ScriptObject)
	if !ok {
		return nil, nil
	}
	out := make([]NamedValue, len(obj.vars))
	for i, v := range obj.vars {
		out[i] = NamedValue{Name: obj.module.Variables[i].Name, Value: values.Raw(v)}
	}
	return out, nil
}

// IsWrongStackFrame reports a bad frame index passed to a debugger query.
func IsWrongStackFrame(err error) bool {
	return errors.Is(err, ErrWrongStackFrame)
}

var errNoExpression = errors.New(diagnostics.Localize("Пустое выражение", "Empty expression"))
