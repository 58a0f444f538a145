package vm

import (
	"github.com/funvibe/oscript/internal/values"
)

var arithmeticOps = map[Opcode]func(a, b values.Value) (values.Value, error){
	OP_ADD: values.Add,
	OP_SUB: values.Sub,
	OP_MUL: values.Mul,
	OP_DIV: values.Div,
	OP_MOD: values.Mod,
}

func (m *Machine) binaryOp(op Opcode) error {
	b := m.popRaw()
	a := m.popRaw()
	res, err := arithmeticOps[op](a, b)
	if err != nil {
		return err
	}
	m.push(res)
	return nil
}

func (m *Machine) comparisonOp(op Opcode) error {
	b := m.popRaw()
	a := m.popRaw()
	c, err := values.Compare(a, b)
	if err != nil {
		return err
	}
	var res bool
	switch op {
	case OP_LESS:
		res = c < 0
	case OP_GREATER:
		res = c > 0
	case OP_LESS_OR_EQUAL:
		res = c <= 0
	case OP_GREATER_OR_EQUAL:
		res = c >= 0
	}
	m.push(values.Boolean(res))
	return nil
}

// raiseException implements ВызватьИсключение. A negative argument is the
// bare form: it rethrows the exception being handled.
func (m *Machine) raiseException(arg int) error {
	if arg < 0 {
		if last := m.frame.LastException; last != nil {
			return last
		}
		return &values.RuntimeError{}
	}

	v := m.popRaw()
	info, ok := v.(*ErrorInfo)
	if !ok {
		return values.NewRuntimeError("%s", values.AsString(v))
	}
	if info.template {
		return &values.RuntimeError{
			Message:   info.err.Message,
			Parameter: info.err.Parameter,
			Cause:     info.err.Cause,
		}
	}
	return &values.RuntimeError{Message: info.err.Message, Cause: info.err}
}
