package vm

import (
	"strconv"

	"github.com/funvibe/oscript/internal/ast"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

var binaryOps = map[token.Token]Opcode{
	token.Plus:        OP_ADD,
	token.Minus:       OP_SUB,
	token.Multiply:    OP_MUL,
	token.Division:    OP_DIV,
	token.Modulo:      OP_MOD,
	token.Equal:       OP_EQUALS,
	token.NotEqual:    OP_NOT_EQUAL,
	token.LessThan:    OP_LESS,
	token.LessOrEqual: OP_LESS_OR_EQUAL,
	token.MoreThan:    OP_GREATER,
	token.MoreOrEqual: OP_GREATER_OR_EQUAL,
}

// compileExpression leaves exactly one value on the stack.
func (c *Compiler) compileExpression(node ast.NodeID) {
	switch c.tree.Kind(node) {
	case ast.KindConstant:
		c.compileConstant(node)
	case ast.KindIdentifier:
		c.emitVariableRead(node)
	case ast.KindBinaryOperation:
		c.compileBinaryOperation(node)
	case ast.KindUnaryOperation:
		c.compileUnaryOperation(node)
	case ast.KindGlobalCall:
		c.compileGlobalCall(node, true)
	case ast.KindDereference:
		c.compileDereference(node, true)
	case ast.KindIndexAccess:
		c.compileExpression(c.tree.Child(node, 0))
		c.compileExpression(c.tree.Child(node, 1))
		c.emit(OP_PUSH_INDEXED, 0)
	case ast.KindTernary:
		c.compileTernary(node)
	case ast.KindNewObject:
		c.compileNewObject(node)
	default:
		c.addError(diagnostics.ExpressionSyntax, node)
		c.emit(OP_PUSH_UNDEF, 0)
	}
}

func (c *Compiler) compileConstant(node ast.NodeID) {
	lex := c.tree.Lexem(node)
	switch lex.Type {
	case token.BooleanLiteral:
		if lex.Token == token.True {
			c.emit(OP_PUSH_BOOL, 1)
		} else {
			c.emit(OP_PUSH_BOOL, 0)
		}
	case token.UndefinedLiteral:
		c.emit(OP_PUSH_UNDEF, 0)
	case token.NullLiteral:
		c.emit(OP_PUSH_NULL, 0)
	case token.NumberLiteral:
		if n, err := strconv.ParseInt(lex.Content, 10, 32); err == nil {
			c.emit(OP_PUSH_INT, int(n))
			return
		}
		c.emit(OP_PUSH_CONST, c.constantIndex(lex))
	default:
		c.emit(OP_PUSH_CONST, c.constantIndex(lex))
	}
}

func (c *Compiler) compileBinaryOperation(node ast.NodeID) {
	op := c.tree.Lexem(node).Token
	left, right := c.tree.Child(node, 0), c.tree.Child(node, 1)

	if op == token.And || op == token.Or {
		c.compileLogicalOperation(op, left, right)
		return
	}
	c.compileExpression(left)
	c.compileExpression(right)
	code, ok := binaryOps[op]
	if !ok {
		c.addError(diagnostics.UnexpectedOperation, node)
		return
	}
	c.emit(code, 0)
}

// compileLogicalOperation short-circuits: AND jumps over the right operand
// when the left one is false, OR when it is true. The jump keeps the left
// value on the stack as the result.
func (c *Compiler) compileLogicalOperation(op token.Token, left, right ast.NodeID) {
	c.compileExpression(left)
	c.emit(OP_MAKE_BOOL, 0)
	code := OP_AND
	if op == token.Or {
		code = OP_OR
	}
	skip := c.emitJump(code)
	c.compileExpression(right)
	c.emit(OP_MAKE_BOOL, 0)
	c.patchJump(skip)
}

func (c *Compiler) compileUnaryOperation(node ast.NodeID) {
	c.compileExpression(c.tree.Child(node, 0))
	switch c.tree.Lexem(node).Token {
	case token.Minus:
		c.emit(OP_NEG, 0)
	case token.Not:
		c.emit(OP_NOT, 0)
	case token.Plus:
		c.emit(OP_NUMBER, 1)
	default:
		c.addError(diagnostics.UnexpectedOperation, node)
	}
}

// compileTernary compiles ?(condition, then, else).
func (c *Compiler) compileTernary(node ast.NodeID) {
	c.compileExpression(c.tree.Child(node, 0))
	elseJump := c.emitJump(OP_JMP_FALSE)
	c.compileExpression(c.tree.Child(node, 1))
	c.emit(OP_MAKE_RAW_VALUE, 0)
	endJump := c.emitJump(OP_JMP)
	c.patchJump(elseJump)
	c.compileExpression(c.tree.Child(node, 2))
	c.emit(OP_MAKE_RAW_VALUE, 0)
	c.patchJump(endJump)
}

// compileNewObject handles "Новый Тип(аргументы)" and the dynamic form
// "Новый(ИмяТипа, МассивАргументов)".
func (c *Compiler) compileNewObject(node ast.NodeID) {
	args := c.tree.ChildOfKind(node, ast.KindCallArgumentList)
	if c.tree.Flags(node).Has(ast.FlagDynamic) {
		list := c.tree.Children(args)
		c.compileExpression(c.tree.Child(list[0], 0))
		argc := 0
		if len(list) > 1 {
			if expr := c.tree.Child(list[1], 0); expr != ast.NoNode {
				c.compileExpression(expr)
				argc = 1
			}
		}
		c.emit(OP_NEW_FUNC, argc)
		return
	}
	c.emit(OP_PUSH_CONST, c.stringConstant(c.tree.Lexem(node).Content))
	argc := c.compileArguments(args)
	c.emit(OP_NEW_INSTANCE, argc)
}

// compileArguments pushes call arguments as they are: a variable, a
// property or an element stays a reference so the callee can write back.
// A skipped argument pushes a marker that the callee replaces with the
// parameter default.
func (c *Compiler) compileArguments(list ast.NodeID) int {
	if list == ast.NoNode {
		return 0
	}
	args := c.tree.Children(list)
	for _, arg := range args {
		if expr := c.tree.Child(arg, 0); expr != ast.NoNode {
			c.compileExpression(expr)
		} else {
			c.emit(OP_PUSH_DEFAULT_ARG, 0)
		}
	}
	return len(args)
}

// compileGlobalCall compiles a call of a built-in function, a module method
// or a method of a global context.
func (c *Compiler) compileGlobalCall(node ast.NodeID, asFunction bool) {
	name := c.tree.Lexem(node).Content
	args := c.tree.ChildOfKind(node, ast.KindCallArgumentList)

	if fn, ok := lookupBuiltin(name); ok {
		c.compileBuiltinCall(node, fn, args, asFunction)
		return
	}

	b, ok := c.table.FindMethod(name)
	if !ok {
		c.addError(diagnostics.MethodNotFound, node, name)
		if asFunction {
			c.emit(OP_PUSH_UNDEF, 0)
		}
		return
	}
	info := c.table.MethodAt(b).Method
	if asFunction && !info.IsFunction {
		c.addError(diagnostics.UseProcAsFunction, node, name)
	}

	argc := c.compileArguments(args)
	c.checkArity(node, name, argc, info.Params)
	c.emit(OP_ARG_NUM, argc)
	if asFunction {
		c.emit(OP_CALL_FUNC, c.methodRef(b))
	} else {
		c.emit(OP_CALL_PROC, c.methodRef(b))
	}
}

func (c *Compiler) compileBuiltinCall(node ast.NodeID, fn builtinFunction, args ast.NodeID, asFunction bool) {
	name := c.tree.Lexem(node).Content
	if !asFunction {
		c.addError(diagnostics.BuiltinAsProcedure, node, name)
		return
	}
	argc := c.compileArguments(args)
	switch {
	case fn.maxArgs >= 0 && argc > fn.maxArgs:
		c.addError(diagnostics.TooManyArgumentsPassed, node, name)
	case argc < fn.minArgs:
		c.addError(diagnostics.TooFewArgumentsPassed, node, name)
	}
	c.emit(fn.op, argc)
}

// checkArity reports calls with more arguments than parameters, or with
// a required parameter left out at the end.
func (c *Compiler) checkArity(node ast.NodeID, name string, argc int, params []values.ParameterInfo) {
	if argc > len(params) {
		c.addError(diagnostics.TooManyArgumentsPassed, node, name)
		return
	}
	for _, p := range params[argc:] {
		if !p.HasDefault {
			c.addError(diagnostics.TooFewArgumentsPassed, node, name)
			return
		}
	}
}

// compileDereference compiles obj.Property and obj.Method(args).
func (c *Compiler) compileDereference(node ast.NodeID, asFunction bool) {
	c.compileExpression(c.tree.Child(node, 0))
	member := c.tree.Child(node, 1)
	name := c.tree.Lexem(member).Content

	if c.tree.Kind(member) != ast.KindMethodCall {
		if !asFunction {
			c.addError(diagnostics.UnexpectedOperation, member)
			return
		}
		c.emit(OP_RESOLVE_PROP, c.stringConstant(name))
		return
	}

	argc := c.compileArguments(c.tree.ChildOfKind(member, ast.KindCallArgumentList))
	c.emit(OP_ARG_NUM, argc)
	if asFunction {
		c.emit(OP_RESOLVE_METHOD_FUNC, c.stringConstant(name))
	} else {
		c.emit(OP_RESOLVE_METHOD_PROC, c.stringConstant(name))
	}
}
