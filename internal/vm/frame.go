package vm

import (
	"github.com/google/uuid"

	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/values"
)

// Scope is the runtime side of a compile-time symbol scope: an object and
// its variable slots and methods addressed by member number.
type Scope struct {
	Instance  values.Context
	Variables []values.Variable
	Methods   []values.MethodInfo

	symbols *symbols.SymbolScope
}

// scopeOfContext exposes every property of ctx as a reference.
func scopeOfContext(ctx values.Context) *Scope {
	s := &Scope{
		Instance:  ctx,
		Variables: make([]values.Variable, ctx.PropertyCount()),
		Methods:   make([]values.MethodInfo, ctx.MethodCount()),
	}
	for i := range s.Variables {
		s.Variables[i] = values.NewPropertyReference(ctx, i)
	}
	for i := range s.Methods {
		s.Methods[i] = ctx.Method(i)
	}
	return s
}

// ExecutionFrame is the activation record of one method call.
type ExecutionFrame struct {
	ID          uuid.UUID
	Module      *LoadedModule
	MethodIndex int
	MethodName  string

	Locals    []values.Variable
	Scopes    []*Scope
	ThisScope *Scope

	LineNumber    int
	LastException *values.RuntimeError

	// IsReentrantCall marks a frame entered from the host; exceptions do not
	// unwind past it.
	IsReentrantCall bool
	// DiscardReturnValue is set when a function was called as a procedure.
	DiscardReturnValue bool

	ip int
	// loop limits and iterators
	frameStack []any
}

func newFrame(module *LoadedModule, method int, scopes []*Scope, this *Scope) *ExecutionFrame {
	desc := module.Method(method)
	f := &ExecutionFrame{
		ID:          uuid.New(),
		Module:      module,
		MethodIndex: method,
		MethodName:  desc.Signature.Name,
		Scopes:      scopes,
		ThisScope:   this,
		Locals:      make([]values.Variable, len(desc.LocalVariables)),
		ip:          desc.EntryPoint,
	}
	for i, name := range desc.LocalVariables {
		f.Locals[i] = values.NewCell(name, values.Undefined)
	}
	return f
}

// InstructionPointer is the address of the next command.
func (f *ExecutionFrame) InstructionPointer() int {
	return f.ip
}

func (f *ExecutionFrame) pushTmp(v any) {
	f.frameStack = append(f.frameStack, v)
}

func (f *ExecutionFrame) popTmp() any {
	n := len(f.frameStack)
	if n == 0 {
		panic(ErrWrongStackCondition)
	}
	v := f.frameStack[n-1]
	f.frameStack = f.frameStack[:n-1]
	return v
}

func (f *ExecutionFrame) peekTmp() any {
	n := len(f.frameStack)
	if n == 0 {
		panic(ErrWrongStackCondition)
	}
	return f.frameStack[n-1]
}

// LocalNames lists the local variables of the frame with their values.
func (f *ExecutionFrame) LocalNames() []string {
	return f.Module.Method(f.MethodIndex).LocalVariables
}

// FrameInfo is the debugger's view of a frame.
type FrameInfo struct {
	ID         uuid.UUID
	Index      int
	MethodName string
	ModuleName string
	Source     string
	LineNumber int
	Frame      *ExecutionFrame
}
