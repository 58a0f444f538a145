package vm

import (
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/values"
)

const (
	errInfoDescription = iota
	errInfoDetailed
	errInfoModule
	errInfoLine
	errInfoSourceLine
	errInfoParameters
	errInfoCause
)

var errorInfoMembers = values.NewMembers([]values.PropertyInfo{
	errInfoDescription: {Name: "Описание", Alias: "Description", Readable: true},
	errInfoDetailed:    {Name: "ПодробноеОписаниеОшибки", Alias: "DetailedDescription", Readable: true},
	errInfoModule:      {Name: "ИмяМодуля", Alias: "ModuleName", Readable: true},
	errInfoLine:        {Name: "НомерСтроки", Alias: "LineNumber", Readable: true},
	errInfoSourceLine:  {Name: "ИсходнаяСтрока", Alias: "SourceLine", Readable: true},
	errInfoParameters:  {Name: "Параметры", Alias: "Parameters", Readable: true},
	errInfoCause:       {Name: "Причина", Alias: "Cause", Readable: true},
}, []values.MethodInfo{
	{Name: "ПолучитьСтекВызовов", Alias: "GetStackTrace", IsFunction: true},
	{Name: "ПодробноеОписаниеОшибки", Alias: "DetailedErrorDescription", IsFunction: true},
})

// ErrorInfo is ИнформацияОбОшибке: the script view of a runtime error.
// One created with Новый is a template for ВызватьИсключение.
type ErrorInfo struct {
	*values.Members
	err      *values.RuntimeError
	template bool
}

// NewErrorInfo wraps err; nil gives the empty info returned outside of
// an exception handler.
func NewErrorInfo(err *values.RuntimeError) *ErrorInfo {
	if err == nil {
		err = &values.RuntimeError{}
	}
	return &ErrorInfo{Members: errorInfoMembers, err: err}
}

// newErrorInfo is Новый ИнформацияОбОшибке(Описание, Параметры, Причина).
func newErrorInfo(args []values.Value) (values.Value, error) {
	if len(args) > 3 {
		return nil, values.TooManyArguments(config.ErrorInfoTypeName)
	}
	e := &values.RuntimeError{}
	if v := values.Arg(args, 0); v != nil {
		e.Message = values.AsString(v)
	}
	if v := values.Arg(args, 1); v != nil {
		e.Parameter = v
	}
	if v := values.Arg(args, 2); v != nil {
		cause, ok := v.(*ErrorInfo)
		if !ok {
			return nil, values.InvalidArgumentType(3)
		}
		e.Cause = cause.err
	}
	info := NewErrorInfo(e)
	info.template = true
	return info, nil
}

func (e *ErrorInfo) Err() *values.RuntimeError { return e.err }

func (e *ErrorInfo) DataType() values.DataType { return values.TypeObject }
func (e *ErrorInfo) TypeName() string          { return config.ErrorInfoTypeName }
func (e *ErrorInfo) String() string            { return e.err.Message }

func (e *ErrorInfo) GetProperty(n int) (values.Value, error) {
	switch n {
	case errInfoDescription:
		return values.String(e.err.Message), nil
	case errInfoDetailed:
		return values.String(e.err.DetailedDescription()), nil
	case errInfoModule:
		return values.String(e.err.Position.ModuleName), nil
	case errInfoLine:
		return values.NumberFromInt(int64(e.err.Position.Line)), nil
	case errInfoSourceLine:
		return values.String(e.err.Position.SourceLine), nil
	case errInfoParameters:
		if e.err.Parameter == nil {
			return values.Undefined, nil
		}
		return e.err.Parameter, nil
	case errInfoCause:
		if e.err.Cause == nil {
			return values.Undefined, nil
		}
		return NewErrorInfo(values.AsRuntimeError(e.err.Cause)), nil
	}
	return nil, values.PropertyNotFound("")
}

func (e *ErrorInfo) SetProperty(n int, _ values.Value) error {
	return values.PropertyNotWritable(e.Property(n).Name)
}

func (e *ErrorInfo) CallMethod(n int, _ []values.Value) (values.Value, error) {
	switch n {
	case 0:
		return newStackTrace(e.err.CallStack), nil
	case 1:
		return values.String(e.err.DetailedDescription()), nil
	}
	return nil, values.MethodNotFound("")
}

var stackTraceMembers = values.NewMembers(nil, []values.MethodInfo{
	{Name: "Количество", Alias: "Count", IsFunction: true},
})

// StackTrace is the collection ПолучитьСтекВызовов returns.
type StackTrace struct {
	*values.Members
	frames []values.Value
}

func newStackTrace(stack []values.StackFrameInfo) *StackTrace {
	t := &StackTrace{Members: stackTraceMembers}
	for _, f := range stack {
		t.frames = append(t.frames, &stackFrame{Members: stackFrameMembers, info: f})
	}
	return t
}

func (t *StackTrace) DataType() values.DataType { return values.TypeObject }
func (t *StackTrace) TypeName() string          { return "КоллекцияКадровСтекаВызовов" }
func (t *StackTrace) String() string            { return t.TypeName() }

func (t *StackTrace) Items() []values.Value     { return t.frames }
func (t *StackTrace) Iterate() values.Iterator { return values.NewSliceIterator(t.frames) }

func (t *StackTrace) GetProperty(int) (values.Value, error) { return nil, values.PropertyNotFound("") }
func (t *StackTrace) SetProperty(int, values.Value) error   { return values.PropertyNotFound("") }

func (t *StackTrace) CallMethod(n int, _ []values.Value) (values.Value, error) {
	if n == 0 {
		return values.NumberFromInt(int64(len(t.frames))), nil
	}
	return nil, values.MethodNotFound("")
}

func (t *StackTrace) GetIndexed(idx values.Value) (values.Value, error) {
	i, err := values.AsInt(idx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(t.frames) {
		return nil, values.IndexOutOfRange()
	}
	return t.frames[i], nil
}

func (t *StackTrace) SetIndexed(values.Value, values.Value) error {
	return values.IndexedAccessNotSupported()
}

var stackFrameMembers = values.NewMembers([]values.PropertyInfo{
	{Name: "Метод", Alias: "Method", Readable: true},
	{Name: "ИмяМодуля", Alias: "ModuleName", Readable: true},
	{Name: "НомерСтроки", Alias: "LineNumber", Readable: true},
}, nil)

type stackFrame struct {
	*values.Members
	info values.StackFrameInfo
}

func (f *stackFrame) DataType() values.DataType { return values.TypeObject }
func (f *stackFrame) TypeName() string          { return "КадрСтекаВызовов" }
func (f *stackFrame) String() string            { return f.info.Method }

func (f *stackFrame) GetProperty(n int) (values.Value, error) {
	switch n {
	case 0:
		return values.String(f.info.Method), nil
	case 1:
		return values.String(f.info.Module), nil
	case 2:
		return values.NumberFromInt(int64(f.info.Line)), nil
	}
	return nil, values.PropertyNotFound("")
}

func (f *stackFrame) SetProperty(n int, _ values.Value) error {
	return values.PropertyNotWritable(f.Property(n).Name)
}

func (f *stackFrame) CallMethod(int, []values.Value) (values.Value, error) {
	return nil, values.MethodNotFound("")
}
