package vm

import (
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/values"
)

// skippedArg is pushed for an argument left out at the call site: Ф(1, , 3).
type skippedArg struct{}

func (skippedArg) DataType() values.DataType { return values.TypeUndefined }
func (skippedArg) TypeName() string          { return values.TypeUndefined.String() }
func (skippedArg) String() string            { return "" }

func isSkipped(v values.Value) bool {
	_, ok := v.(skippedArg)
	return ok
}

// valueArray is implemented by Массив; Новый(Тип, Аргументы) spreads it.
type valueArray interface {
	Items() []values.Value
}

// popArguments pops the count pushed by ARG_NUM and then the arguments,
// keeping references as they are.
func (m *Machine) popArguments() []values.Value {
	n, err := values.AsInt(m.pop())
	if err != nil || n < 0 {
		panic(ErrWrongStackCondition)
	}
	args := make([]values.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = m.pop()
	}
	return args
}

// callMethod calls a method bound at compile time. A method of the module
// that owns the current frame gets a new frame in this loop; anything else
// goes through the object protocol.
func (m *Machine) callMethod(ref int, asFunction bool) error {
	f := m.frame
	b := f.Module.Image.MethodRefs[ref]
	scope := f.Scopes[b.ScopeNumber]
	info := scope.Methods[b.MemberNumber]
	args := m.popArguments()

	if asFunction && !info.IsFunction {
		return values.UseProcAsFunction(info.Name)
	}
	if obj, ok := scope.Instance.(*ScriptObject); ok && scope == f.ThisScope && obj.module == f.Module {
		callee := newFrame(f.Module, b.MemberNumber, f.Scopes, f.ThisScope)
		if err := bindArguments(callee, info, args); err != nil {
			return err
		}
		callee.DiscardReturnValue = info.IsFunction && !asFunction
		m.pushFrame(callee)
		return nil
	}
	return m.callContext(scope.Instance, b.MemberNumber, info, args, asFunction)
}

// bindArguments fills the parameter slots of a new frame. A variable
// passed to a by-reference parameter becomes the slot itself; everything
// else is copied. Missing arguments take the parameter default.
func bindArguments(f *ExecutionFrame, info values.MethodInfo, args []values.Value) error {
	if len(args) > len(info.Params) {
		return values.TooManyArguments(info.Name)
	}
	for i, p := range info.Params {
		var arg values.Value
		if i < len(args) {
			arg = args[i]
		}
		if arg == nil || isSkipped(arg) {
			if p.DefaultValue != nil {
				f.Locals[i] = values.NewCell(p.Name, p.DefaultValue)
			}
			continue
		}
		if ref, ok := arg.(values.Variable); ok && !p.ByValue {
			f.Locals[i] = ref
			continue
		}
		v, err := values.Get(arg)
		if err != nil {
			return err
		}
		f.Locals[i] = values.NewCell(p.Name, v)
	}
	return nil
}

// contextArguments prepares arguments for Context.CallMethod: one entry per
// parameter, nil for an omitted optional one, a Variable for a
// by-reference parameter.
func contextArguments(info values.MethodInfo, args []values.Value) ([]values.Value, error) {
	if len(args) > len(info.Params) {
		return nil, values.TooManyArguments(info.Name)
	}
	out := make([]values.Value, len(info.Params))
	for i, p := range info.Params {
		if i >= len(args) {
			if !p.HasDefault {
				return nil, values.TooFewArguments(info.Name)
			}
			out[i] = p.DefaultValue
			continue
		}
		arg := args[i]
		if isSkipped(arg) {
			if !p.HasDefault {
				return nil, values.MissedArgument(info.Name)
			}
			out[i] = p.DefaultValue
			continue
		}
		if !p.ByValue {
			if ref, ok := arg.(values.Variable); ok {
				out[i] = ref
			} else {
				out[i] = values.NewCell(p.Name, arg)
			}
			continue
		}
		v, err := values.Get(arg)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *Machine) callContext(ctx values.Context, n int, info values.MethodInfo, args []values.Value, asFunction bool) error {
	callArgs, err := contextArguments(info, args)
	if err != nil {
		return err
	}
	res, err := ctx.CallMethod(n, callArgs)
	if err != nil {
		return err
	}
	if asFunction {
		m.push(values.Raw(res))
	}
	return nil
}

func (m *Machine) resolveProperty(name string) error {
	obj := m.popRaw()
	ctx, ok := values.AsContext(obj)
	if !ok {
		return values.ValueIsNotObject(obj)
	}
	n, ok := ctx.FindProperty(name)
	if !ok {
		return values.PropertyNotFound(name)
	}
	m.push(values.NewPropertyReference(ctx, n))
	return nil
}

func (m *Machine) resolveMethod(name string, asFunction bool) error {
	args := m.popArguments()
	obj := m.popRaw()
	ctx, ok := values.AsContext(obj)
	if !ok {
		return values.ValueIsNotObject(obj)
	}
	n, ok := ctx.FindMethod(name)
	if !ok {
		return values.MethodNotFound(name)
	}
	info := ctx.Method(n)
	if asFunction && !info.IsFunction {
		return values.UseProcAsFunction(name)
	}
	return m.callContext(ctx, n, info, args, asFunction)
}

// newInstance implements Новый Тип(аргументы).
func (m *Machine) newInstance(argc int) error {
	args := make([]values.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v := m.pop()
		if !isSkipped(v) {
			args[i] = values.Raw(v)
		}
	}
	name := values.AsString(m.popRaw())
	obj, err := m.env.Types.NewInstance(name, args)
	if err != nil {
		return err
	}
	m.push(obj)
	return nil
}

// newFunc implements Новый(ИмяТипа, МассивАргументов).
func (m *Machine) newFunc(argc int) error {
	var args []values.Value
	if argc > 0 {
		if arr, ok := m.popRaw().(valueArray); ok {
			args = arr.Items()
		}
	}
	name := values.AsString(m.popRaw())
	if _, ok := m.env.Types.Resolve(name); !ok {
		return values.TypeNotRegistered(name)
	}
	obj, err := m.env.Types.NewInstance(name, args)
	if err != nil {
		return err
	}
	m.push(obj)
	return nil
}

// handlerOp implements ДобавитьОбработчик and УдалитьОбработчик. With an
// explicit target the handler is target.Method; otherwise it is a method
// of the current module.
func (m *Machine) handlerOp(add, explicitTarget bool) error {
	methodName := values.AsString(m.popRaw())
	var target values.Value
	if explicitTarget {
		target = m.popRaw()
	} else if this := m.frame.ThisScope; this != nil && this.Instance != nil {
		target = this.Instance
	}
	eventName := values.AsString(m.popRaw())
	source := m.popRaw()

	ctx, ok := values.AsContext(target)
	if !ok {
		return values.ValueIsNotObject(values.Raw(target))
	}
	if _, ok := findHandlerMethod(ctx, methodName); !ok {
		return values.MethodNotFound(methodName)
	}
	if _, ok := values.AsContext(source); !ok {
		return values.NewRuntimeError("%s", diagnostics.Localize("Источник события не является объектом", "Event source is not an object"))
	}
	if add {
		m.env.Events.AddHandler(source, eventName, ctx, methodName)
	} else {
		m.env.Events.RemoveHandler(source, eventName, ctx, methodName)
	}
	return nil
}
