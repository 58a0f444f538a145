package vm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/values"
)

// Machine-internal faults. They surface as runtime errors a script can catch.
var (
	ErrWrongStackCondition = errors.New("wrong stack condition")
	ErrStackUnderflow      = errors.New("stack underflow")
	ErrStackOverflow       = errors.New("stack overflow")
	ErrWrongStackFrame     = errors.New("wrong stack frame")
	ErrCallDepthExceeded   = errors.New("call depth exceeded")
	ErrNoModule            = errors.New("no module is loaded")
)

// exceptionHandler is the record BEGIN_TRY leaves on the handler stack.
type exceptionHandler struct {
	address        int
	frame          *ExecutionFrame
	stackSize      int
	frameStackSize int
}

// Machine runs loaded modules. A machine executes on one goroutine at a
// time; machines made from the same Env may run concurrently.
type Machine struct {
	id  uuid.UUID
	env *Env

	stack    []values.Value
	frames   []*ExecutionFrame
	frame    *ExecutionFrame
	handlers []exceptionHandler

	globals      []*Scope
	globalsCount int

	evalCache *lru.Cache[evalCacheKey, *LoadedModule]
	debugger  *Debugger
	codeStat  *CodeStat

	ctx          context.Context
	stopped      atomic.Bool
	maxCallDepth int
	trace        bool
	opsSinceStop int
	// nested counts evaluations run for the debugger or Вычислить; the
	// debugger does not stop inside them
	nested int

	logger zerolog.Logger
}

// New creates a machine bound to env.
func New(env *Env) *Machine {
	size := env.ExpressionCacheSize
	if size <= 0 {
		size = config.DefaultExpressionCacheSize
	}
	cache, err := lru.New[evalCacheKey, *LoadedModule](size)
	if err != nil {
		panic(err)
	}
	m := &Machine{
		id:           uuid.New(),
		env:          env,
		stack:        make([]values.Value, 0, 256),
		evalCache:    cache,
		ctx:          context.Background(),
		maxCallDepth: config.DefaultMaxCallDepth,
		logger:       zerolog.Nop(),
	}
	if env.CodeStat {
		m.codeStat = NewCodeStat()
	}
	return m
}

func (m *Machine) ID() uuid.UUID { return m.id }
func (m *Machine) Env() *Env     { return m.env }

func (m *Machine) SetLogger(l zerolog.Logger) {
	m.logger = l.With().Str("machine", m.id.String()[:8]).Logger()
}

// SetContext sets a context whose cancellation interrupts the running script.
func (m *Machine) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.ctx = ctx
}

// Configure applies machine settings.
func (m *Machine) Configure(s config.MachineSettings) {
	if s.MaxCallDepth > 0 {
		m.maxCallDepth = s.MaxCallDepth
	}
	m.trace = s.Trace
}

// Stop asks the running script to stop at the next line boundary.
func (m *Machine) Stop() {
	m.stopped.Store(true)
}

// EnableCodeStat starts collecting line hit counters.
func (m *Machine) EnableCodeStat() *CodeStat {
	if m.codeStat == nil {
		m.codeStat = NewCodeStat()
	}
	return m.codeStat
}

func (m *Machine) CodeStat() *CodeStat {
	return m.codeStat
}

// IsRunning reports whether any frame is active.
func (m *Machine) IsRunning() bool {
	return m.frame != nil
}

// CurrentFrame is the innermost frame, or nil when idle.
func (m *Machine) CurrentFrame() *ExecutionFrame {
	return m.frame
}

// StackSize is the depth of the operand stack.
func (m *Machine) StackSize() int {
	return len(m.stack)
}

// globalScopes returns the runtime scopes of the attached global contexts,
// rebuilt when contexts were attached since the last call.
func (m *Machine) globalScopes() []*Scope {
	if n := m.env.Globals.Count(); n != m.globalsCount || m.globals == nil {
		contexts := m.env.Globals.Contexts()
		names := m.env.Globals.Scopes()
		m.globals = make([]*Scope, len(contexts))
		for i, ctx := range contexts {
			m.globals[i] = scopeOfContext(ctx)
			if i < len(names) {
				m.globals[i].symbols = names[i]
			}
		}
		m.globalsCount = len(contexts)
	}
	return m.globals
}

// Stack operations
func (m *Machine) push(v values.Value) {
	if len(m.stack) >= config.MaxOperandStackSize {
		panic(ErrStackOverflow)
	}
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() values.Value {
	n := len(m.stack)
	if n == 0 {
		panic(ErrStackUnderflow)
	}
	v := m.stack[n-1]
	m.stack[n-1] = nil
	m.stack = m.stack[:n-1]
	return v
}

func (m *Machine) peek() values.Value {
	if len(m.stack) == 0 {
		panic(ErrStackUnderflow)
	}
	return m.stack[len(m.stack)-1]
}

// popRaw pops a value and dereferences it. A failed read of a property or
// an element is raised as the error of the current command.
func (m *Machine) popRaw() values.Value {
	v, err := values.Get(m.pop())
	if err != nil {
		panic(err)
	}
	return v
}

func (m *Machine) truncateStack(size int) {
	for i := size; i < len(m.stack); i++ {
		m.stack[i] = nil
	}
	if size < len(m.stack) {
		m.stack = m.stack[:size]
	}
}

func (m *Machine) pushFrame(f *ExecutionFrame) {
	if len(m.frames) >= m.maxCallDepth {
		panic(values.Wrap(ErrCallDepthExceeded, fmt.Sprintf(diagnostics.Localize("Превышена глубина стека вызовов (%d)", "Call depth exceeded (%d)"), m.maxCallDepth)))
	}
	m.frames = append(m.frames, f)
	m.frame = f
	m.logger.Debug().Str("method", f.MethodName).Str("module", f.Module.Name).Int("depth", len(m.frames)).Msg("frame pushed")
}

func (m *Machine) popFrame() {
	n := len(m.frames)
	if n == 0 {
		panic(ErrWrongStackFrame)
	}
	m.logger.Debug().Str("method", m.frames[n-1].MethodName).Int("depth", n-1).Msg("frame popped")
	m.frames[n-1] = nil
	m.frames = m.frames[:n-1]
	if n > 1 {
		m.frame = m.frames[n-2]
	} else {
		m.frame = nil
	}
}

// truncateFrames drops frames above depth.
func (m *Machine) truncateFrames(depth int) {
	for len(m.frames) > depth {
		m.popFrame()
	}
}

// step executes one command of the current frame. Faults raised as panics
// by the stack helpers come back as the error of the command.
func (m *Machine) step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = &values.ExternalError{Err: fmt.Errorf("%v", r)}
		}
	}()

	f := m.frame
	if f.ip < 0 || f.ip >= len(f.Module.Code) {
		return ErrWrongStackCondition
	}
	cmd := f.Module.Code[f.ip]
	f.ip++

	if m.trace {
		m.logger.Trace().
			Str("cmd", DisassembleCommand(f.Module.Image, f.ip-1)).
			Str("module", f.Module.Name).
			Int("line", f.LineNumber).
			Msg("exec")
	}
	return m.executeOneOp(cmd)
}

// mainCommandLoop runs until the call stack shrinks back to depth. Errors
// go to the nearest handler; the ones nobody handles are returned.
func (m *Machine) mainCommandLoop(depth int) error {
	const checkInterval = 1000

	for len(m.frames) > depth {
		m.opsSinceStop++
		if m.opsSinceStop >= checkInterval {
			m.opsSinceStop = 0
			if err := m.checkInterrupt(); err != nil {
				return err
			}
		}

		if err := m.step(); err != nil {
			if rethrow := m.handleError(err); rethrow != nil {
				return rethrow
			}
		}
	}
	return nil
}

// checkInterrupt reports a stop request or a cancelled context.
func (m *Machine) checkInterrupt() error {
	if m.stopped.Load() {
		return fmt.Errorf("%w: %s", values.ErrScriptInterrupted, diagnostics.Localize("выполнение прервано", "execution stopped"))
	}
	select {
	case <-m.ctx.Done():
		return fmt.Errorf("%w: %w", values.ErrScriptInterrupted, m.ctx.Err())
	default:
	}
	return nil
}

// handleError transfers control to the innermost exception handler and
// returns nil, or returns the error when it must leave the loop: nobody
// handles it, or the handler lies beyond a reentrant frame.
func (m *Machine) handleError(err error) error {
	if errors.Is(err, values.ErrScriptInterrupted) {
		return err
	}
	re := values.AsRuntimeError(err)
	if f := m.frame; f != nil {
		re.SetPosition(values.ErrorPosition{
			ModuleName: f.Module.Name,
			Line:       f.LineNumber,
			SourceLine: f.Module.SourceLine(f.LineNumber),
		})
	}
	if re.CallStack == nil {
		re.CallStack = m.callStack()
	}

	if len(m.handlers) == 0 {
		return re
	}
	h := m.handlers[len(m.handlers)-1]
	m.handlers = m.handlers[:len(m.handlers)-1]

	for m.frame != h.frame {
		if m.frame == nil {
			m.handlers = append(m.handlers, h)
			return re
		}
		if m.frame.IsReentrantCall {
			m.handlers = append(m.handlers, h)
			m.logger.Debug().Str("method", m.frame.MethodName).Msg("exception crosses a reentrant call")
			return re
		}
		m.popFrame()
	}

	f := m.frame
	f.ip = h.address
	f.LastException = re
	m.truncateStack(h.stackSize)
	if len(f.frameStack) > h.frameStackSize {
		f.frameStack = f.frameStack[:h.frameStackSize]
	}
	m.logger.Debug().
		Str("method", f.MethodName).
		Int("handler", h.address).
		Str("error", re.Message).
		Msg("exception caught")
	return nil
}

// callStack lists the active frames, innermost first.
func (m *Machine) callStack() []values.StackFrameInfo {
	out := make([]values.StackFrameInfo, 0, len(m.frames))
	for i := len(m.frames) - 1; i >= 0; i-- {
		f := m.frames[i]
		out = append(out, values.StackFrameInfo{
			Method: f.MethodName,
			Module: f.Module.Name,
			Line:   f.LineNumber,
		})
	}
	return out
}

// executeCode runs f to completion as a call from the host. Handlers of
// the frames below it never see its exceptions; they come back as the
// error. The value a function returns is popped and returned.
func (m *Machine) executeCode(f *ExecutionFrame) (result values.Value, err error) {
	f.IsReentrantCall = true
	depth := len(m.frames)
	handlers := len(m.handlers)
	stackSize := len(m.stack)
	if depth >= m.maxCallDepth {
		return nil, values.Wrap(ErrCallDepthExceeded, fmt.Sprintf(diagnostics.Localize("Превышена глубина стека вызовов (%d)", "Call depth exceeded (%d)"), m.maxCallDepth))
	}

	m.pushFrame(f)
	err = m.mainCommandLoop(depth)
	if len(m.handlers) > handlers {
		m.handlers = m.handlers[:handlers]
	}
	if err != nil {
		m.truncateFrames(depth)
		m.truncateStack(stackSize)
		return nil, err
	}

	result = values.Undefined
	if len(m.stack) > stackSize {
		result = values.Raw(m.stack[len(m.stack)-1])
	}
	m.truncateStack(stackSize)
	return result, nil
}
