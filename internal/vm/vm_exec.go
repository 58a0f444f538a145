package vm

import (
	"fmt"

	"github.com/funvibe/oscript/internal/values"
)

func (m *Machine) executeOneOp(cmd Command) error {
	f := m.frame
	switch cmd.Op {
	case OP_NOP:

	case OP_PUSH_VAR, OP_PUSH_REF:
		m.push(m.variable(cmd.Arg))

	case OP_PUSH_CONST:
		m.push(f.Module.Constants[cmd.Arg])

	case OP_PUSH_INT:
		m.push(values.NumberFromInt(int64(cmd.Arg)))

	case OP_PUSH_BOOL:
		m.push(values.Boolean(cmd.Arg == 1))

	case OP_PUSH_UNDEF:
		m.push(values.Undefined)

	case OP_PUSH_NULL:
		m.push(values.Null)

	case OP_PUSH_LOC:
		m.push(f.Locals[cmd.Arg])

	case OP_LOAD_VAR:
		return m.variable(cmd.Arg).Set(m.popRaw())

	case OP_LOAD_LOC:
		return f.Locals[cmd.Arg].Set(m.popRaw())

	case OP_ASSIGN_REF:
		v := m.popRaw()
		ref, ok := m.pop().(values.Variable)
		if !ok {
			return ErrWrongStackCondition
		}
		return ref.Set(v)

	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD:
		return m.binaryOp(cmd.Op)

	case OP_NEG:
		v, err := values.Neg(m.popRaw())
		if err != nil {
			return err
		}
		m.push(v)

	case OP_EQUALS:
		b, a := m.popRaw(), m.popRaw()
		m.push(values.Boolean(values.Equals(a, b)))

	case OP_NOT_EQUAL:
		b, a := m.popRaw(), m.popRaw()
		m.push(values.Boolean(!values.Equals(a, b)))

	case OP_LESS, OP_GREATER, OP_LESS_OR_EQUAL, OP_GREATER_OR_EQUAL:
		return m.comparisonOp(cmd.Op)

	case OP_NOT:
		b, err := values.AsBoolean(m.popRaw())
		if err != nil {
			return err
		}
		m.push(values.Boolean(!b))

	case OP_AND, OP_OR:
		b, err := values.AsBoolean(m.peek())
		if err != nil {
			return err
		}
		if b == (cmd.Op == OP_OR) {
			f.ip = cmd.Arg
		} else {
			m.pop()
		}

	case OP_CALL_FUNC, OP_CALL_PROC:
		return m.callMethod(cmd.Arg, cmd.Op == OP_CALL_FUNC)

	case OP_ARG_NUM:
		m.push(values.NumberFromInt(int64(cmd.Arg)))

	case OP_PUSH_DEFAULT_ARG:
		m.push(skippedArg{})

	case OP_RESOLVE_PROP:
		return m.resolveProperty(m.constantString(cmd.Arg))

	case OP_RESOLVE_METHOD_PROC, OP_RESOLVE_METHOD_FUNC:
		return m.resolveMethod(m.constantString(cmd.Arg), cmd.Op == OP_RESOLVE_METHOD_FUNC)

	case OP_JMP:
		f.ip = cmd.Arg

	case OP_JMP_FALSE:
		b, err := values.AsBoolean(m.popRaw())
		if err != nil {
			return err
		}
		if !b {
			f.ip = cmd.Arg
		}

	case OP_PUSH_INDEXED:
		index := m.popRaw()
		target, ok := m.popRaw().(values.Indexer)
		if !ok {
			return values.IndexedAccessNotSupported()
		}
		m.push(values.NewIndexedReference(target, index))

	case OP_RETURN:
		m.doReturn()

	case OP_JMP_COUNTER:
		counter := m.popRaw()
		limit, _ := f.peekTmp().(values.Value)
		c, err := values.Compare(counter, limit)
		if err != nil {
			return err
		}
		if c > 0 {
			f.ip = cmd.Arg
		}

	case OP_INC:
		n, err := values.AsNumber(m.popRaw())
		if err != nil {
			return err
		}
		next, err := n.Add(values.One)
		if err != nil {
			return err
		}
		m.push(next)

	case OP_NEW_INSTANCE:
		return m.newInstance(cmd.Arg)

	case OP_NEW_FUNC:
		return m.newFunc(cmd.Arg)

	case OP_PUSH_ITERATOR:
		coll, ok := m.popRaw().(values.Iterable)
		if !ok {
			return values.IteratorNotDefined()
		}
		f.pushTmp(coll.Iterate())

	case OP_ITERATOR_NEXT:
		it, ok := f.peekTmp().(values.Iterator)
		if !ok {
			return ErrWrongStackCondition
		}
		item, more := it.Next()
		if more {
			m.push(item)
		}
		m.push(values.Boolean(more))

	case OP_STOP_ITERATOR:
		f.popTmp()

	case OP_BEGIN_TRY:
		m.handlers = append(m.handlers, exceptionHandler{
			address:        cmd.Arg,
			frame:          f,
			stackSize:      len(m.stack),
			frameStackSize: len(f.frameStack),
		})

	case OP_END_TRY:
		if n := len(m.handlers); n > 0 {
			if h := m.handlers[n-1]; h.frame == f && h.address == cmd.Arg {
				m.handlers = m.handlers[:n-1]
			}
		}
		f.LastException = nil

	case OP_EXIT_TRY:
		for i := 0; i < cmd.Arg; i++ {
			n := len(m.handlers)
			if n == 0 || m.handlers[n-1].frame != f {
				break
			}
			m.handlers = m.handlers[:n-1]
		}

	case OP_RAISE_EXCEPTION:
		return m.raiseException(cmd.Arg)

	case OP_LINE_NUM:
		return m.lineNum(cmd.Arg)

	case OP_MAKE_RAW_VALUE:
		m.push(m.popRaw())

	case OP_MAKE_BOOL:
		b, err := values.AsBoolean(m.popRaw())
		if err != nil {
			return err
		}
		m.push(values.Boolean(b))

	case OP_PUSH_TMP:
		f.pushTmp(m.popRaw())

	case OP_POP_TMP:
		v := f.popTmp()
		if cmd.Arg == 0 {
			if val, ok := v.(values.Value); ok {
				m.push(val)
			}
		}

	case OP_EXECUTE:
		return m.executeBatch(values.AsString(m.popRaw()))

	case OP_ADD_HANDLER, OP_REMOVE_HANDLER:
		return m.handlerOp(cmd.Op == OP_ADD_HANDLER, cmd.Arg == 0)

	default:
		if cmd.Op >= OP_EVAL && cmd.Op < opcodeCount {
			return m.executeBuiltin(cmd)
		}
		return fmt.Errorf("%w: unknown opcode %d", ErrWrongStackCondition, cmd.Op)
	}
	return nil
}

// variable resolves a module variable reference of the current frame.
func (m *Machine) variable(ref int) values.Variable {
	f := m.frame
	b := f.Module.Image.VariableRefs[ref]
	return f.Scopes[b.ScopeNumber].Variables[b.MemberNumber]
}

func (m *Machine) constantString(n int) string {
	return values.AsString(m.frame.Module.Constants[n])
}

// doReturn leaves the current method. The value of a function is already
// on the stack; it stays there unless the call discards it.
func (m *Machine) doReturn() {
	f := m.frame
	if f.DiscardReturnValue {
		m.pop()
	}
	for n := len(m.handlers); n > 0 && m.handlers[n-1].frame == f; n-- {
		m.handlers = m.handlers[:n-1]
	}
	m.popFrame()
}

// lineNum marks the start of a source line: it counts the line, honours a
// stop request and gives the debugger a chance to suspend.
func (m *Machine) lineNum(line int) error {
	f := m.frame
	if f.LineNumber != line {
		f.LineNumber = line
		if m.codeStat != nil {
			m.codeStat.Hit(f.Module, line)
		}
	}
	if m.stopped.Load() {
		return m.checkInterrupt()
	}
	if d := m.debugger; d != nil && d.Enabled && m.nested == 0 && d.ShouldBreak(m) {
		d.suspend(m)
	}
	return nil
}
