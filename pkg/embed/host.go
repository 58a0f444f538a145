package oscript

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/values"
)

var errHostFrozen = errors.New("bindings are fixed once the first module is compiled")

// callGo calls a Go function with script arguments. A trailing error
// result becomes the error of the call; several other results come back
// as an array.
func callGo(m *Marshaller, fn reflect.Value, args []values.Value) (values.Value, error) {
	ft := fn.Type()
	numIn := ft.NumIn()

	in := make([]reflect.Value, 0, numIn)
	for i := 0; i < numIn; i++ {
		target := ft.In(i)
		variadic := ft.IsVariadic() && i == numIn-1
		if variadic {
			target = target.Elem()
		}
		arg := values.Arg(args, i)
		if arg == nil && variadic {
			break
		}
		val, err := m.FromValue(arg, target)
		if err != nil {
			return nil, values.Wrap(err, fmt.Sprintf("argument %d conversion failed: %v", i+1, err))
		}
		rv, err := assign(val, target)
		if err != nil {
			return nil, values.Wrap(err, fmt.Sprintf("argument %d: %v", i+1, err))
		}
		in = append(in, rv)
	}

	out := fn.Call(in)
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return nil, err
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return values.Undefined, nil
	case 1:
		return m.ToValue(out[0].Interface())
	}
	items := make([]values.Value, len(out))
	for i, r := range out {
		v, err := m.ToValue(r.Interface())
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return stdlib.NewArray(items...), nil
}

// signatureOf describes a Go function as a script method. Parameters
// before from (a method receiver) are skipped.
func signatureOf(name string, ft reflect.Type, from int) values.MethodInfo {
	info := values.MethodInfo{Name: name, IsExport: true}
	for i := from; i < ft.NumIn(); i++ {
		info.Params = append(info.Params, values.ParameterInfo{
			Name:       fmt.Sprintf("arg%d", i-from+1),
			ByValue:    true,
			HasDefault: ft.IsVariadic() && i == ft.NumIn()-1,
		})
	}
	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		outs--
	}
	info.IsFunction = outs > 0
	return info
}

// hostType is the member table of a Go struct type seen by scripts.
type hostType struct {
	*values.Members
	name    string
	fields  []int
	methods []string
}

var hostTypes sync.Map // reflect.Type -> *hostType

func hostTypeOf(ptrType reflect.Type) *hostType {
	if ht, ok := hostTypes.Load(ptrType); ok {
		return ht.(*hostType)
	}
	st := ptrType.Elem()
	ht := &hostType{name: st.Name()}

	var props []values.PropertyInfo
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		props = append(props, values.PropertyInfo{Name: f.Name, Readable: true, Writable: true})
		ht.fields = append(ht.fields, i)
	}

	var methods []values.MethodInfo
	for i := 0; i < ptrType.NumMethod(); i++ {
		meth := ptrType.Method(i)
		methods = append(methods, signatureOf(meth.Name, meth.Type, 1))
		ht.methods = append(ht.methods, meth.Name)
	}

	ht.Members = values.NewMembers(props, methods)
	actual, _ := hostTypes.LoadOrStore(ptrType, ht)
	return actual.(*hostType)
}

// hostObject exposes a pointer to a Go struct: exported fields are
// properties and exported methods are methods.
type hostObject struct {
	*hostType
	m   *Marshaller
	ptr reflect.Value
}

func newHostObject(m *Marshaller, ptr reflect.Value) *hostObject {
	return &hostObject{hostType: hostTypeOf(ptr.Type()), m: m, ptr: ptr}
}

func (o *hostObject) DataType() values.DataType { return values.TypeObject }
func (o *hostObject) TypeName() string          { return o.name }
func (o *hostObject) String() string            { return o.name }

func (o *hostObject) GetProperty(n int) (values.Value, error) {
	return o.m.ToValue(o.ptr.Elem().Field(o.fields[n]).Interface())
}

func (o *hostObject) SetProperty(n int, v values.Value) error {
	field := o.ptr.Elem().Field(o.fields[n])
	val, err := o.m.FromValue(v, field.Type())
	if err != nil {
		return values.Wrap(err, err.Error())
	}
	rv, err := assign(val, field.Type())
	if err != nil {
		return values.Wrap(err, err.Error())
	}
	field.Set(rv)
	return nil
}

func (o *hostObject) CallMethod(n int, args []values.Value) (values.Value, error) {
	return callGo(o.m, o.ptr.MethodByName(o.methods[n]), args)
}

// hostGlobals is the global context holding what the host bound by name.
// Names are fixed when the first module is compiled; values of bound
// variables may change afterwards.
type hostGlobals struct {
	*values.Members
	m *Marshaller

	mu      sync.RWMutex
	props   []values.PropertyInfo
	vals    []values.Value
	methods []values.MethodInfo
	funcs   []reflect.Value
	frozen  bool
}

func newHostGlobals(m *Marshaller) *hostGlobals {
	return &hostGlobals{m: m, Members: values.NewMembers(nil, nil)}
}

func (g *hostGlobals) DataType() values.DataType { return values.TypeObject }
func (g *hostGlobals) TypeName() string          { return "Хост" }
func (g *hostGlobals) String() string            { return g.TypeName() }

// bind adds a variable or, for a Go function, a method.
func (g *hostGlobals) bind(name string, val any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frozen {
		return errHostFrozen
	}
	if _, ok := g.Members.FindProperty(name); ok {
		return fmt.Errorf("%q is already bound", name)
	}
	if _, ok := g.Members.FindMethod(name); ok {
		return fmt.Errorf("%q is already bound", name)
	}

	if fn := reflect.ValueOf(val); fn.Kind() == reflect.Func {
		g.methods = append(g.methods, signatureOf(name, fn.Type(), 0))
		g.funcs = append(g.funcs, fn)
	} else {
		v, err := g.m.ToValue(val)
		if err != nil {
			return err
		}
		g.props = append(g.props, values.PropertyInfo{Name: name, Readable: true, Writable: true})
		g.vals = append(g.vals, v)
	}
	g.Members = values.NewMembers(g.props, g.methods)
	return nil
}

func (g *hostGlobals) freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

func (g *hostGlobals) GetProperty(n int) (values.Value, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.vals[n], nil
}

func (g *hostGlobals) SetProperty(n int, v values.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vals[n] = values.Raw(v)
	return nil
}

func (g *hostGlobals) CallMethod(n int, args []values.Value) (values.Value, error) {
	g.mu.RLock()
	fn := g.funcs[n]
	g.mu.RUnlock()
	return callGo(g.m, fn, args)
}
