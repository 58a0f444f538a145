package vm

import (
	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// declareLocal adds a parameter or a declared local to the current method.
func (c *Compiler) declareLocal(node ast.NodeID, name string) {
	sym := &symbols.VariableSymbol{Names: symbols.Names{Name: name}, Kind: symbols.LocalVariable}
	if _, err := c.method.locals.DefineVariable(sym); err != nil {
		c.addError(diagnostics.DuplicateVarDefinition, node, name)
		return
	}
	c.method.desc.LocalVariables = append(c.method.desc.LocalVariables, name)
}

// defineImplicit creates the variable behind the first write to an unknown
// name and returns its binding.
func (c *Compiler) defineImplicit(name string) symbols.Binding {
	if c.method.isBody && c.module != nil {
		sym := &symbols.VariableSymbol{Names: symbols.Names{Name: name}, Kind: symbols.ModuleVariable}
		n, _ := c.module.DefineVariable(sym)
		c.img.Variables = append(c.img.Variables, VariableDescriptor{Name: name})
		return symbols.Binding{ScopeNumber: c.thisScope, MemberNumber: n}
	}
	sym := &symbols.VariableSymbol{Names: symbols.Names{Name: name}, Kind: symbols.LocalVariable}
	n, _ := c.method.locals.DefineVariable(sym)
	c.method.desc.LocalVariables = append(c.method.desc.LocalVariables, name)
	return symbols.Binding{ScopeNumber: c.method.scope, MemberNumber: n}
}

// emitVariableRead pushes the variable itself, so it can be passed by reference.
func (c *Compiler) emitVariableRead(node ast.NodeID) {
	name := c.tree.Lexem(node).Content
	b, ok := c.table.FindVariable(name)
	if !ok {
		c.addError(diagnostics.SymbolNotFound, node, name)
		c.emit(OP_PUSH_UNDEF, 0)
		return
	}
	if b.ScopeNumber == c.method.scope {
		c.emit(OP_PUSH_LOC, b.MemberNumber)
		return
	}
	if _, isProp := c.table.VariableAt(b).(*symbols.PropertySymbol); isProp {
		c.emit(OP_PUSH_REF, c.variableRef(b))
		return
	}
	c.emit(OP_PUSH_VAR, c.variableRef(b))
}

// emitVariableWrite pops a value into the named variable, creating it on
// first write.
func (c *Compiler) emitVariableWrite(name string) {
	b, ok := c.table.FindVariable(name)
	if !ok {
		b = c.defineImplicit(name)
	}
	if b.ScopeNumber == c.method.scope {
		c.emit(OP_LOAD_LOC, b.MemberNumber)
		return
	}
	c.emit(OP_LOAD_VAR, c.variableRef(b))
}

func (c *Compiler) variableRef(b symbols.Binding) int {
	if n, ok := c.varRefs[b]; ok {
		return n
	}
	n := len(c.img.VariableRefs)
	c.img.VariableRefs = append(c.img.VariableRefs, b)
	c.varRefs[b] = n
	return n
}

func (c *Compiler) methodRef(b symbols.Binding) int {
	if n, ok := c.methodRefs[b]; ok {
		return n
	}
	n := len(c.img.MethodRefs)
	c.img.MethodRefs = append(c.img.MethodRefs, b)
	c.methodRefs[b] = n
	return n
}

func (c *Compiler) constantIndex(lex token.Lexem) int {
	return c.addConstant(constantOf(lex))
}

func (c *Compiler) stringConstant(s string) int {
	return c.addConstant(ConstantDefinition{Type: values.TypeString, Presentation: s})
}

func (c *Compiler) addConstant(def ConstantDefinition) int {
	if n, ok := c.constants[def]; ok {
		return n
	}
	n := len(c.img.Constants)
	c.img.Constants = append(c.img.Constants, def)
	c.constants[def] = n
	return n
}

func constantOf(lex token.Lexem) ConstantDefinition {
	switch lex.Type {
	case token.NumberLiteral:
		return ConstantDefinition{Type: values.TypeNumber, Presentation: lex.Content}
	case token.StringLiteral:
		return ConstantDefinition{Type: values.TypeString, Presentation: lex.Content}
	case token.DateLiteral:
		return ConstantDefinition{Type: values.TypeDate, Presentation: lex.Content}
	case token.BooleanLiteral:
		if lex.Token == token.True {
			return ConstantDefinition{Type: values.TypeBoolean, Presentation: "true"}
		}
		return ConstantDefinition{Type: values.TypeBoolean, Presentation: "false"}
	case token.NullLiteral:
		return ConstantDefinition{Type: values.TypeNull}
	}
	return ConstantDefinition{Type: values.TypeUndefined}
}

// constantValue parses a constant back from its presentation.
func constantValue(def ConstantDefinition) (values.Value, bool) {
	switch def.Type {
	case values.TypeNumber:
		n, ok := values.ParseNumber(def.Presentation)
		return n, ok
	case values.TypeString:
		return values.String(def.Presentation), true
	case values.TypeDate:
		d, ok := values.ParseDate(def.Presentation)
		return d, ok
	case values.TypeBoolean:
		return values.Boolean(def.Presentation == "true"), true
	case values.TypeNull:
		return values.Null, true
	case values.TypeUndefined:
		return values.Undefined, true
	}
	return values.Undefined, false
}

func (c *Compiler) emit(op Opcode, arg int) int {
	c.img.Code = append(c.img.Code, Command{Op: op, Arg: arg})
	return len(c.img.Code) - 1
}

// emitJump emits a jump with an unknown target and returns its address
func (c *Compiler) emitJump(op Opcode) int {
	return c.emit(op, -1)
}

// patchJump points a jump emitted by emitJump at the next command
func (c *Compiler) patchJump(at int) {
	c.img.Code[at].Arg = len(c.img.Code)
}

// emitLine marks the start of the source line of node. Consecutive marks
// for one line collapse into one.
func (c *Compiler) emitLine(node ast.NodeID) {
	line := c.tree.Lexem(node).Location.Line
	if line <= 0 {
		return
	}
	if !c.debugCode && line == c.method.lastLine {
		return
	}
	c.method.lastLine = line
	if n := len(c.img.Code); n > 0 && n > c.method.desc.EntryPoint {
		if last := c.img.Code[n-1]; last.Op == OP_LINE_NUM && last.Arg == line {
			return
		}
	}
	c.emit(OP_LINE_NUM, line)
}

// lineMark returns the address of a line mark for node at the end of the
// code, reusing the one just emitted for the statement.
func (c *Compiler) lineMark(node ast.NodeID) int {
	line := c.tree.Lexem(node).Location.Line
	if n := len(c.img.Code); n > c.method.desc.EntryPoint {
		if last := c.img.Code[n-1]; last.Op == OP_LINE_NUM && last.Arg == line {
			return n - 1
		}
	}
	return c.emit(OP_LINE_NUM, line)
}
